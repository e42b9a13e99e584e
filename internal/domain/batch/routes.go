package batch

import "github.com/gin-gonic/gin"

// RegisterRoutes wires the batch lifecycle endpoints. Gated read paths
// (landing page, downloads) live in the download package.
func RegisterRoutes(r *gin.RouterGroup, protected *gin.RouterGroup, h *Handler, ws *WSHandler) {
	r.GET("/", h.Lookup)
	r.POST("/finalize-batch", h.Finalize)
	r.GET("/d/:uuid/status", h.Status)
	r.GET("/ws/batches/:uuid/status", ws.HandleStatus)

	protected.GET("/my/batches", h.ListMy)
	protected.DELETE("/d/:uuid", h.Delete)
}
