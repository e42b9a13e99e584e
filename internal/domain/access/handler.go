package access

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quickshare/internal/domain/batch"
	"quickshare/internal/pkg/response"
)

type unlockDTO struct {
	Password string `json:"password"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Unlock handles POST /d/:uuid: a password submission for a protected batch.
// The token in the response must accompany subsequent download requests.
func (h *Handler) Unlock(c *gin.Context) {
	var dto unlockDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		// Browser form fallback.
		dto.Password = c.PostForm("password")
	}

	result, err := h.service.Verify(c.Request.Context(), c.Param("uuid"), c.ClientIP(), dto.Password)
	if err != nil {
		switch {
		case errors.Is(err, batch.ErrBatchNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "batch not found")
		case errors.Is(err, batch.ErrBatchExpired):
			response.Error(c, http.StatusGone, "EXPIRED", "link has expired")
		case errors.Is(err, ErrTooManyAttempts):
			response.Error(c, http.StatusForbidden, "TOO_MANY_ATTEMPTS", err.Error())
		case errors.Is(err, ErrWrongPassword):
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":               "WRONG_PASSWORD",
					"message":            err.Error(),
					"remaining_attempts": result.Remaining,
				},
			})
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to verify password")
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{"unlock_token": result.Token})
}

// TokenFromRequest pulls an unlock token from wherever a client may put it:
// the X-Unlock-Token header, the token query parameter or a bearer-less
// cookie set by the landing page.
func TokenFromRequest(c *gin.Context) string {
	if token := c.GetHeader("X-Unlock-Token"); token != "" {
		return token
	}
	if token := c.Query("token"); token != "" {
		return token
	}
	if token, err := c.Cookie("unlock_token"); err == nil {
		return token
	}
	return ""
}
