package models

import (
	"time"

	"gorm.io/gorm"
)

// SchedulerLock is a named lease that keeps a periodic job on one instance
// at a time. A lease whose ExpiresAt has passed may be taken over.
type SchedulerLock struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	LockName  string    `gorm:"uniqueIndex;size:100;not null" json:"lockName"`
	LockedBy  string    `gorm:"size:100;not null" json:"lockedBy"`
	LockedAt  time.Time `json:"lockedAt"`
	ExpiresAt time.Time `gorm:"index" json:"expiresAt"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }

func (l *SchedulerLock) BeforeCreate(tx *gorm.DB) error {
	l.ID = ensureID(l.ID)
	return nil
}
