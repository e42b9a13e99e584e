package chunk

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the chunk upload endpoint. Anonymous uploads are
// allowed; the optional auth middleware decides the identity.
func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.POST("/upload", h.Append)
}
