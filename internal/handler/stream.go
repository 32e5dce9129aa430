package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rachelfoods/payoutgate/internal/stream"
)

type StreamHandler struct {
	hub *stream.Hub
}

func NewStreamHandler(hub *stream.Hub) *StreamHandler {
	return &StreamHandler{hub: hub}
}

// Escalations GET /v1/admin/escalations/stream (websocket)
func (h *StreamHandler) Escalations(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
