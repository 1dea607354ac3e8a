package models

import (
	"time"

	"gorm.io/gorm"
)

// Workspace groups projects inside an organization.
type Workspace struct {
	ID             string        `gorm:"primaryKey;size:36" json:"id"`
	Name           string        `gorm:"size:200;not null" json:"name"`
	Description    string        `gorm:"size:1000" json:"description"`
	OrganizationID string        `gorm:"size:36;index;not null" json:"organizationId"`
	Organization   *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:RESTRICT" json:"organization,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      *time.Time    `gorm:"autoUpdateTime:false" json:"updatedAt"`
}

func (Workspace) TableName() string { return "workspaces" }

func (w *Workspace) BeforeCreate(tx *gorm.DB) error {
	w.ID = ensureID(w.ID)
	return nil
}
