package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AuditActionCreate = "Create"
	AuditActionUpdate = "Update"
	AuditActionDelete = "Delete"
)

// AuditLog is append-only. Nothing updates or deletes these rows.
type AuditLog struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	EntityType  string    `gorm:"size:100;index;not null" json:"entityType"`
	EntityID    string    `gorm:"size:36;index;not null" json:"entityId"`
	Action      string    `gorm:"size:20;index;not null" json:"action"`
	UserID      string    `gorm:"size:36;index" json:"userId"`
	UserName    string    `gorm:"size:255" json:"userName"`
	Description string    `gorm:"type:text" json:"description"`
	OldValue    string    `gorm:"type:text" json:"oldValue,omitempty"`
	NewValue    string    `gorm:"type:text" json:"newValue,omitempty"`
	IPAddress   string    `gorm:"size:64" json:"ipAddress,omitempty"`
	UserAgent   string    `gorm:"size:500" json:"userAgent,omitempty"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	a.ID = ensureID(a.ID)
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}
