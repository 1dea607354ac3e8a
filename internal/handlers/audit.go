package handlers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/logger"
	"github.com/huangang/projecthub/pkg/response"
)

type AuditHandler struct {
	auditService *services.AuditService
	hub          *services.AuditHub
}

func NewAuditHandler(audit *services.AuditService, hub *services.AuditHub) *AuditHandler {
	return &AuditHandler{auditService: audit, hub: hub}
}

// List GET /api/audit?page=&pageSize=&entityType=&entityId=&userId=
func (h *AuditHandler) List(c *gin.Context) {
	page, err := h.auditService.List(c.Request.Context(), services.AuditFilter{
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
		UserID:     c.Query("userId"),
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "pageSize", 0),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	setPageHeaders(c, page.Total, page.Page, page.PageSize)
	response.Success(c, page)
}

// Stream pushes committed audit rows as server-sent events.
// GET /api/audit/stream
func (h *AuditHandler) Stream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Int("total", h.hub.ClientCount()).Msg("audit stream client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case entry, ok := <-events:
			if !ok {
				return false
			}
			data, err := json.Marshal(entry)
			if err != nil {
				logger.Error().Err(err).Msg("audit stream marshal error")
				return true
			}
			fmt.Fprintf(w, "event: audit\ndata: %s\n\n", data)
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("audit stream client disconnected")
			return false
		}
	})
}
