package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"quickshare/internal/domain/batch"
	"quickshare/internal/pkg/jwt"
)

// Batches is the read-only slice of the batch repository the gate needs.
type Batches interface {
	GetByUUID(ctx context.Context, urlUUID string) (*batch.Batch, error)
}

type VerifyResult struct {
	Token     string
	Remaining int64
}

// Service is the password gate in front of protected batches. Failed
// submissions are counted per (origin, batch); once the limit is hit the
// gate locks for the remainder of the window regardless of the password
// sent. A correct password clears the counter and mints an unlock token.
type Service struct {
	batches  Batches
	attempts AttemptStore
	tokens   *jwt.Service
	limit    int64
	window   time.Duration
	log      *logrus.Logger
}

func NewService(
	batches Batches,
	attempts AttemptStore,
	tokens *jwt.Service,
	limit int,
	window time.Duration,
	log *logrus.Logger,
) *Service {
	return &Service{
		batches:  batches,
		attempts: attempts,
		tokens:   tokens,
		limit:    int64(limit),
		window:   window,
		log:      log,
	}
}

// Verify checks a password submission against a batch. On success the
// returned token unlocks the batch's download endpoints until it expires.
// Batches without a password grant a token unconditionally.
func (s *Service) Verify(ctx context.Context, urlUUID, origin, password string) (VerifyResult, error) {
	b, err := s.batches.GetByUUID(ctx, urlUUID)
	if err != nil {
		return VerifyResult{}, err
	}
	if b.Expired(time.Now()) {
		return VerifyResult{}, batch.ErrBatchExpired
	}

	if !b.HasPassword() {
		return s.grant(b)
	}

	key := attemptKey(origin, b.ID)
	count, err := s.attempts.Count(ctx, key)
	if err != nil {
		s.log.WithError(err).Error("attempt counter unavailable")
		return VerifyResult{}, err
	}
	if count >= s.limit {
		return VerifyResult{}, ErrTooManyAttempts
	}

	if bcrypt.CompareHashAndPassword([]byte(b.PasswordHash), []byte(password)) != nil {
		n, err := s.attempts.Incr(ctx, key, s.window)
		if err != nil {
			s.log.WithError(err).Error("failed to record attempt")
			return VerifyResult{}, err
		}
		if n >= s.limit {
			return VerifyResult{}, ErrTooManyAttempts
		}
		return VerifyResult{Remaining: s.limit - n}, ErrWrongPassword
	}

	if err := s.attempts.Clear(ctx, key); err != nil {
		s.log.WithError(err).Warn("failed to clear attempt counter")
	}
	return s.grant(b)
}

// Authorize decides whether a request may read a protected batch. Open
// batches always pass; protected ones need a valid unlock token scoped to
// this exact batch.
func (s *Service) Authorize(b *batch.Batch, token string) error {
	if !b.HasPassword() {
		return nil
	}
	if token == "" {
		return ErrLocked
	}
	unlocked, err := s.tokens.ValidateUnlockToken(token)
	if err != nil || unlocked != b.URLUUID {
		return ErrLocked
	}
	return nil
}

func (s *Service) grant(b *batch.Batch) (VerifyResult, error) {
	token, err := s.tokens.GenerateUnlockToken(b.URLUUID)
	if err != nil {
		return VerifyResult{}, errors.New("failed to issue unlock token")
	}
	return VerifyResult{Token: token, Remaining: s.limit}, nil
}

func attemptKey(origin string, batchID uint64) string {
	return fmt.Sprintf("brute:%s:%d", origin, batchID)
}
