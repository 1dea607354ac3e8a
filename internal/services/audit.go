package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/metrics"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/pkg/logger"
)

const (
	EntityOrganization  = "Organization"
	EntityWorkspace     = "Workspace"
	EntityProject       = "Project"
	EntityProjectMember = "ProjectMember"
	EntityTask          = "Task"
	EntityProjectFile   = "ProjectFile"
)

// AuditEvent is one mutation to record.
type AuditEvent struct {
	EntityType  string
	EntityID    string
	Action      string
	Actor       Actor
	Description string
	OldValue    string
	NewValue    string
}

type AuditService struct {
	uow *UnitOfWork
	hub *AuditHub
}

func NewAuditService(uow *UnitOfWork, hub *AuditHub) *AuditService {
	return &AuditService{uow: uow, hub: hub}
}

// Record appends one audit row using tx, which must be the handle of the
// surrounding unit of work. The returned error is nil in best-effort mode.
func (s *AuditService) Record(ctx context.Context, tx *gorm.DB, ev AuditEvent) error {
	client := ClientInfoFrom(ctx)
	entry := models.AuditLog{
		EntityType:  ev.EntityType,
		EntityID:    ev.EntityID,
		Action:      ev.Action,
		UserID:      ev.Actor.UserID,
		UserName:    ev.Actor.Name,
		Description: ev.Description,
		OldValue:    ev.OldValue,
		NewValue:    ev.NewValue,
		IPAddress:   client.IP,
		UserAgent:   client.UserAgent,
	}

	// savepoint inside an open transaction, so a failed insert does not
	// poison the caller's transaction in best-effort mode
	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(&entry).Error
	})
	if err != nil {
		metrics.AuditFailures.Inc()
		logger.Error().Err(err).
			Str("entity_type", ev.EntityType).
			Str("entity_id", ev.EntityID).
			Str("action", ev.Action).
			Msg("failed to write audit log")
		return s.uow.Secondary(err, "audit")
	}

	metrics.AuditEvents.WithLabelValues(ev.EntityType, ev.Action).Inc()
	if s.hub != nil {
		afterCommit(tx, func() { s.hub.Publish(entry) })
	}
	return nil
}

// AuditPage is one page of audit rows, newest first.
type AuditPage struct {
	Items    []models.AuditLog `json:"items"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
}

type AuditFilter struct {
	EntityType string
	EntityID   string
	UserID     string
	Page       int
	PageSize   int
}

func (s *AuditService) List(ctx context.Context, f AuditFilter) (*AuditPage, error) {
	page, size := normalizePage(f.Page, f.PageSize)

	query := s.uow.DB(ctx).Model(&models.AuditLog{})
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != "" {
		query = query.Where("entity_id = ?", f.EntityID)
	}
	if f.UserID != "" {
		query = query.Where("user_id = ?", f.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.AuditLog
	if err := query.Order("timestamp DESC").Offset((page - 1) * size).Limit(size).Find(&items).Error; err != nil {
		return nil, err
	}
	return &AuditPage{Items: items, Total: total, Page: page, PageSize: size}, nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}
