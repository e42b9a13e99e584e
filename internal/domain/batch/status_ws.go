package batch

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The endpoint only exposes file counts of a batch the caller
		// already knows the UUID of.
		return true
	},
}

// WSHandler pushes batch processing status over a websocket so upload pages
// don't have to poll GET /d/:uuid/status.
type WSHandler struct {
	service *Service
	log     *logrus.Logger
}

func NewWSHandler(service *Service, log *logrus.Logger) *WSHandler {
	return &WSHandler{service: service, log: log}
}

// HandleStatus upgrades GET /ws/batches/:uuid/status and streams Status
// updates until the batch is complete, the batch disappears, or the client
// goes away.
func (h *WSHandler) HandleStatus(c *gin.Context) {
	urlUUID := c.Param("uuid")

	if _, err := h.service.Status(c.Request.Context(), urlUUID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Drain client frames so pings/pongs and close messages are handled.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		status, err := h.service.Status(c.Request.Context(), urlUUID)
		if errors.Is(err, ErrBatchNotFound) {
			conn.WriteJSON(gin.H{"error": "batch deleted"})
			return
		}
		if err != nil {
			h.log.WithError(err).Warn("status lookup failed")
			return
		}

		if err := conn.WriteJSON(status); err != nil {
			return
		}
		if status.Complete {
			return
		}

		select {
		case <-ticker.C:
		case <-c.Request.Context().Done():
			return
		}
	}
}
