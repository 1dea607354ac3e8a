package models

import (
	"time"

	"gorm.io/gorm"
)

// ProjectFile is the metadata row for an uploaded blob. FilePath is the
// opaque key handed back by the storage backend.
type ProjectFile struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	FileName         string    `gorm:"size:300;not null" json:"fileName"`
	OriginalFileName string    `gorm:"size:255;not null" json:"originalFileName"`
	ContentType      string    `gorm:"size:100;not null" json:"contentType"`
	FileSize         int64     `json:"fileSize"`
	FilePath         string    `gorm:"size:500;not null;index" json:"-"`
	ProjectID        string    `gorm:"size:36;index;not null" json:"projectId"`
	Project          *Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	UploadedBy       string    `gorm:"size:36;not null" json:"uploadedBy"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

func (ProjectFile) TableName() string { return "project_files" }

func (f *ProjectFile) BeforeCreate(tx *gorm.DB) error {
	f.ID = ensureID(f.ID)
	if f.UploadedAt.IsZero() {
		f.UploadedAt = time.Now().UTC()
	}
	return nil
}
