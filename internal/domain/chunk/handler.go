package chunk

import (
	"errors"
	"io"
	"net/http"
	"strconv"

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

// Append handles POST /upload: one multipart chunk of a resumable upload.
// Fields: upload_id, filename, total_size, offset, chunk (file).
func (h *Handler) Append(c *gin.Context) {
	totalSize, err := strconv.ParseInt(c.PostForm("total_size"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid total_size")
		return
	}
	offset, err := strconv.ParseInt(c.DefaultPostForm("offset", "0"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid offset")
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "no chunk provided")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "failed to open chunk")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "failed to read chunk")
		return
	}

	progress, err := h.service.Append(c.Request.Context(), AppendRequest{
		UploadID:  c.PostForm("upload_id"),
		Filename:  c.PostForm("filename"),
		TotalSize: totalSize,
		Offset:    offset,
		Chunk:     data,
		Identity:  identity.FromGin(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, quota.ErrQuotaExceeded):
			response.Error(c, http.StatusForbidden, "QUOTA_EXCEEDED", "monthly upload limit reached, try again next month")
		case errors.Is(err, ErrFileTooLarge):
			response.Error(c, http.StatusBadRequest, "FILE_TOO_LARGE", err.Error())
		case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidSize), errors.Is(err, ErrInvalidOffset):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		case errors.Is(err, ErrStorage):
			response.Error(c, http.StatusInternalServerError, "STORAGE_ERROR", "failed to store chunk")
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "upload failed")
		}
		return
	}

	c.JSON(http.StatusOK, progress)
}
