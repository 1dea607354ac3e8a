package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

type Task struct {
	ID           string       `gorm:"primaryKey;size:36" json:"id"`
	Title        string       `gorm:"size:200;not null" json:"title"`
	Description  string       `gorm:"size:2000" json:"description"`
	Status       TaskStatus   `gorm:"not null;default:0" json:"status"`
	Priority     TaskPriority `gorm:"not null" json:"priority"`
	ProjectID    string       `gorm:"size:36;index;not null" json:"projectId"`
	Project      *Project     `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	AssignedToID *string      `gorm:"size:36;index" json:"assignedToId"`
	AssignedTo   *User        `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"assignedTo,omitempty"`
	CreatedBy    string       `gorm:"size:36;not null" json:"createdBy"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    *time.Time   `gorm:"autoUpdateTime:false" json:"updatedAt"`
	DueDate      *time.Time   `json:"dueDate"`
}

func (Task) TableName() string { return "tasks" }

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	t.ID = ensureID(t.ID)
	return nil
}

func (t Task) MarshalJSON() ([]byte, error) {
	type plain Task
	return json.Marshal(struct {
		plain
		StatusName   string `json:"statusName"`
		PriorityName string `json:"priorityName"`
	}{plain(t), t.Status.String(), t.Priority.String()})
}
