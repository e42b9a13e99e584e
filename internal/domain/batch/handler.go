package batch

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quickshare/internal/domain/identity"
	"quickshare/internal/domain/quota"
	"quickshare/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Finalize handles POST /finalize-batch: turns completed uploads into a
// shareable batch and returns the link, QR code and short code right away.
// The files are encrypted in the background after the response.
func (h *Handler) Finalize(c *gin.Context) {
	var dto FinalizeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.service.Finalize(c.Request.Context(), FinalizeRequest{
		Identity:  identity.FromGin(c),
		UploadIDs: dto.UploadIDs,
		Password:  dto.Password,
		Comment:   dto.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			response.Error(c, http.StatusForbidden, "QUOTA_EXCEEDED", "monthly batch quota exceeded")
		case errors.Is(err, ErrNoUploads), errors.Is(err, ErrIncompleteUpload):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to finalize batch")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "success",
		"download_url": result.DownloadURL,
		"qr_code":      result.QRCode,
		"short_code":   result.Batch.ShortCode,
		"expires_at":   result.Batch.ExpiresAt,
		"info":         "files are being processed in the background",
	})
}

// Lookup handles GET /?code=XXXXXX: resolves a short code and redirects to
// the batch landing URL. Without a code it answers with a service banner.
func (h *Handler) Lookup(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		response.Success(c, http.StatusOK, gin.H{"service": "quickshare"})
		return
	}

	b, err := h.service.LookupShortCode(c.Request.Context(), code)
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "code not found")
		return
	}

	c.Redirect(http.StatusFound, "/d/"+b.URLUUID)
}

// Status handles GET /d/:uuid/status: background-encryption progress.
func (h *Handler) Status(c *gin.Context) {
	status, err := h.service.Status(c.Request.Context(), c.Param("uuid"))
	if err != nil {
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "batch not found")
		return
	}
	response.Success(c, http.StatusOK, status)
}

// ListMy handles GET /my/batches for authenticated owners.
func (h *Handler) ListMy(c *gin.Context) {
	id := identity.FromGin(c)
	if !id.Authenticated() {
		response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized")
		return
	}

	batches, err := h.service.ListByOwner(c.Request.Context(), *id.UserID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list batches")
		return
	}

	summaries := make([]Summary, 0, len(batches))
	for i := range batches {
		summaries = append(summaries, NewSummary(&batches[i]))
	}
	response.Success(c, http.StatusOK, summaries)
}

// Delete handles DELETE /d/:uuid: immediate removal by the owner or an admin.
func (h *Handler) Delete(c *gin.Context) {
	err := h.service.Delete(c.Request.Context(), c.Param("uuid"), identity.FromGin(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrBatchNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "batch not found")
		case errors.Is(err, ErrNotOwner):
			response.Error(c, http.StatusForbidden, "FORBIDDEN", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to delete batch")
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "deleted"})
}
