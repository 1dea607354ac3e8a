package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/models"
)

// leaseHolder names this process in scheduler_locks rows.
func leaseHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s-%d-%s", host, os.Getpid(), uuid.NewString()[:8])
}

// acquireLease takes or renews the named lease for holder. It reports false
// while another holder's lease is unexpired.
func acquireLease(ctx context.Context, db *gorm.DB, name, holder string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	lock := models.SchedulerLock{
		LockName:  name,
		LockedBy:  holder,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	err := db.WithContext(ctx).Create(&lock).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	res := db.WithContext(ctx).Model(&models.SchedulerLock{}).
		Where("lock_name = ? AND (expires_at < ? OR locked_by = ?)", name, now, holder).
		Updates(map[string]interface{}{
			"locked_by":  holder,
			"locked_at":  now,
			"expires_at": now.Add(ttl),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func releaseLease(ctx context.Context, db *gorm.DB, name, holder string) error {
	return db.WithContext(ctx).
		Where("lock_name = ? AND locked_by = ?", name, holder).
		Delete(&models.SchedulerLock{}).Error
}
