package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Project owns its members, tasks and files; deleting it deletes them.
type Project struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	Name        string          `gorm:"size:200;not null" json:"name"`
	Description string          `gorm:"size:1000" json:"description"`
	Status      ProjectStatus   `gorm:"not null;default:0" json:"status"`
	WorkspaceID string          `gorm:"size:36;index;not null" json:"workspaceId"`
	Workspace   *Workspace      `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:RESTRICT" json:"workspace,omitempty"`
	CreatedBy   string          `gorm:"size:36;not null" json:"createdBy"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `gorm:"autoUpdateTime:false" json:"updatedAt"`
	StartDate   *time.Time      `json:"startDate"`
	EndDate     *time.Time      `json:"endDate"`
	Members     []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Tasks       []Task          `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Files       []ProjectFile   `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Project) TableName() string { return "projects" }

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	p.ID = ensureID(p.ID)
	return nil
}

// MarshalJSON adds statusName next to the integer status.
func (p Project) MarshalJSON() ([]byte, error) {
	type plain Project
	return json.Marshal(struct {
		plain
		StatusName string `json:"statusName"`
	}{plain(p), p.Status.String()})
}
