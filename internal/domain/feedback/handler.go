package feedback

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quickshare/internal/domain/identity"
	"quickshare/internal/pkg/response"
)

type submitDTO struct {
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message" binding:"required"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Submit handles POST /feedback.
func (h *Handler) Submit(c *gin.Context) {
	var dto submitDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	err := h.service.Submit(c.Request.Context(), SubmitRequest{
		Identity: identity.FromGin(c),
		Email:    dto.Email,
		Subject:  dto.Subject,
		Message:  dto.Message,
	})
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to save feedback")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"message": "thank you"})
}
