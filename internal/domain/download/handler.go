package download

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"quickshare/internal/domain/access"
	"quickshare/internal/domain/batch"
	"quickshare/internal/pkg/response"
	"quickshare/internal/storage"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Meta handles GET /d/:uuid: the landing page data for a share link.
func (h *Handler) Meta(c *gin.Context) {
	page, err := h.service.Meta(c.Request.Context(), c.Param("uuid"), access.TokenFromRequest(c))
	if err != nil {
		h.mapError(c, err)
		return
	}
	response.Success(c, http.StatusOK, page)
}

// One handles GET /decrypt/:file_id: a single decrypted file as an
// attachment.
func (h *Handler) One(c *gin.Context) {
	fileID, err := strconv.ParseUint(c.Param("file_id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid file id")
		return
	}

	f, err := h.service.FetchOne(c.Request.Context(), fileID, access.TokenFromRequest(c))
	if err != nil {
		h.mapError(c, err)
		return
	}

	c.Header("Content-Disposition", attachment(f.Name))
	c.Data(http.StatusOK, f.MIME, f.Data)
}

// Zip handles GET /d/:uuid/zip: all files of a batch in one archive. Files
// that could not be included are listed in the X-Skipped-Files header.
func (h *Handler) Zip(c *gin.Context) {
	archive, err := h.service.FetchZip(c.Request.Context(), c.Param("uuid"), access.TokenFromRequest(c))
	if err != nil {
		h.mapError(c, err)
		return
	}

	if len(archive.Skipped) > 0 {
		c.Header("X-Skipped-Files", strings.Join(archive.Skipped, ", "))
	}
	c.Header("Content-Disposition", attachment(archive.Name))
	c.Data(http.StatusOK, "application/zip", archive.Data)
}

func (h *Handler) mapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, batch.ErrBatchNotFound), errors.Is(err, batch.ErrFileNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "not found")
	case errors.Is(err, batch.ErrBatchExpired):
		response.Error(c, http.StatusGone, "EXPIRED", "link has expired")
	case errors.Is(err, access.ErrLocked):
		response.Error(c, http.StatusForbidden, "PASSWORD_REQUIRED", "password required")
	case errors.Is(err, ErrDecryption), errors.Is(err, ErrIntegrity):
		response.Error(c, http.StatusBadRequest, "CORRUPTED_FILE", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "file not available")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "download failed")
	}
}

// attachment builds a Content-Disposition value that survives non-ASCII
// filenames.
func attachment(name string) string {
	return "attachment; filename*=UTF-8''" + url.PathEscape(name)
}
