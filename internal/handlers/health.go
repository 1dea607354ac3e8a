package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/services"
)

// HealthHandler reports the state of the database, queue and audit stream.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	hub   *services.AuditHub
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, hub *services.AuditHub) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, hub: hub}
}

// CheckHealth GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "projecthub",
		"components": gin.H{
			"database":    dbStatus,
			"queue_mode":  queueMode,
			"sse_clients": h.hub.ClientCount(),
		},
	})
}
