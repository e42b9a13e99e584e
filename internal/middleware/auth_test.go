package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"quickshare/internal/pkg/jwt"
)

func identityEcho(c *gin.Context) {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")
	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"role":    role,
	})
}

func TestOptionalAuth_ValidToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour, time.Hour)
	validToken, _ := jwtService.GenerateToken(42, "user")

	router := gin.New()
	router.Use(OptionalAuth(jwtService))
	router.GET("/upload", identityEcho)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/upload", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "42")
	assert.Contains(t, w.Body.String(), "user")
}

func TestOptionalAuth_NoTokenStaysAnonymous(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour, time.Hour)

	router := gin.New()
	router.Use(OptionalAuth(jwtService))
	router.GET("/upload", func(c *gin.Context) {
		_, hasUser := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"has_user": hasUser})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/upload", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")
}

func TestOptionalAuth_BadTokenStaysAnonymous(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour, time.Hour)

	router := gin.New()
	router.Use(OptionalAuth(jwtService))
	router.GET("/upload", func(c *gin.Context) {
		_, hasUser := c.Get("user_id")
		c.JSON(http.StatusOK, gin.H{"has_user": hasUser})
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/upload", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	router.ServeHTTP(w, req)

	// A garbage token must not break public endpoints.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "false")
}

func TestRequireAuth_ValidToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour, time.Hour)
	validToken, _ := jwtService.GenerateToken(7, "admin")

	router := gin.New()
	router.Use(RequireAuth(jwtService))
	router.GET("/my/batches", identityEcho)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/my/batches", nil)
	req.Header.Set("Authorization", "Bearer "+validToken)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "admin")
}

func TestRequireAuth_NoToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour, time.Hour)

	router := gin.New()
	router.Use(RequireAuth(jwtService))
	router.GET("/my/batches", func(c *gin.Context) {
		t.Fatal("handler should not be reached")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/my/batches", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	jwtService := jwt.New("test-secret-123", time.Hour, time.Hour)

	router := gin.New()
	router.Use(RequireAuth(jwtService))
	router.GET("/my/batches", func(c *gin.Context) {
		t.Fatal("handler should not be reached")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/my/batches", nil)
	req.Header.Set("Authorization", "Bearer invalid-jwt-here")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid token")
}
