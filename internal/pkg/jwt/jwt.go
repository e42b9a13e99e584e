package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

type Service struct {
	secret    []byte
	accessTTL time.Duration
	unlockTTL time.Duration
}

// Claims identify an authenticated uploader.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

// UnlockClaims are a capability token proving a batch password was entered
// correctly. The token is scoped to one batch and expires on its own,
// independent of the batch lifetime.
type UnlockClaims struct {
	BatchUUID string `json:"batch_uuid"`
	jwtlib.RegisteredClaims
}

func New(secret string, accessTTL, unlockTTL time.Duration) *Service {
	return &Service{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		unlockTTL: unlockTTL,
	}
}

func (s *Service) GenerateToken(userID int64, role string) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(s.accessTTL)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}

	return claims, nil
}

func (s *Service) GenerateUnlockToken(batchUUID string) (string, error) {
	claims := UnlockClaims{
		BatchUUID: batchUUID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(s.unlockTTL)),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateUnlockToken checks signature and expiry and returns the batch UUID
// the token unlocks.
func (s *Service) ValidateUnlockToken(tokenStr string) (string, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &UnlockClaims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(*UnlockClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}

	return claims.BatchUUID, nil
}
