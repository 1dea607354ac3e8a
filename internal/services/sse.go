package services

import (
	"sync"

	"github.com/huangang/projecthub/internal/models"
)

// AuditHub fans persisted audit rows out to live subscribers.
type AuditHub struct {
	clients map[string]chan models.AuditLog
	mu      sync.RWMutex
}

func NewAuditHub() *AuditHub {
	return &AuditHub{
		clients: make(map[string]chan models.AuditLog),
	}
}

func (h *AuditHub) Subscribe(clientID string) <-chan models.AuditLog {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan models.AuditLog, 100)
	h.clients[clientID] = ch
	return ch
}

func (h *AuditHub) Unsubscribe(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[clientID]; ok {
		close(ch)
		delete(h.clients, clientID)
	}
}

// Publish never blocks; a subscriber with a full buffer misses the event.
func (h *AuditHub) Publish(entry models.AuditLog) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients {
		select {
		case ch <- entry:
		default:
		}
	}
}

func (h *AuditHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
