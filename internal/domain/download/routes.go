package download

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.RouterGroup, h *Handler) {
	r.GET("/d/:uuid", h.Meta)
	r.GET("/d/:uuid/zip", h.Zip)
	r.GET("/decrypt/:file_id", h.One)
}
