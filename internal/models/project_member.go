package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectMember binds a user to a project with a role. At most one row per
// (project, user) pair.
type ProjectMember struct {
	ID        string      `gorm:"primaryKey;size:36" json:"id"`
	ProjectID string      `gorm:"size:36;uniqueIndex:idx_project_user;not null" json:"projectId"`
	Project   *Project    `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UserID    string      `gorm:"size:36;uniqueIndex:idx_project_user;not null" json:"userId"`
	User      *User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Role      ProjectRole `gorm:"not null" json:"role"`
	JoinedAt  time.Time   `json:"joinedAt"`
}

func (ProjectMember) TableName() string { return "project_members" }

func (m *ProjectMember) BeforeCreate(tx *gorm.DB) error {
	m.ID = ensureID(m.ID)
	if m.JoinedAt.IsZero() {
		m.JoinedAt = time.Now().UTC()
	}
	return nil
}
