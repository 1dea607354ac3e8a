package services

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/huangang/projecthub/internal/metrics"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/storage"
	"github.com/huangang/projecthub/pkg/logger"
)

// StorageJanitor removes blobs that no ProjectFile row references. A blob
// is deleted only when it was already orphaned on the previous sweep, so
// an upload whose row is still being written is never collected.
type StorageJanitor struct {
	uow      *UnitOfWork
	store    storage.Storage
	schedule string
	holder   string
	cron     *cron.Cron
	entryID  cron.EntryID

	mu       sync.Mutex
	suspects map[string]struct{}
}

const (
	janitorLease    = "storage_janitor"
	janitorLeaseTTL = 10 * time.Minute
)

func NewStorageJanitor(uow *UnitOfWork, store storage.Storage, schedule string) *StorageJanitor {
	return &StorageJanitor{
		uow:      uow,
		store:    store,
		schedule: schedule,
		holder:   leaseHolder(),
		suspects: make(map[string]struct{}),
	}
}

// Start schedules Sweep on the configured cron expression. An empty
// expression disables the janitor.
func (j *StorageJanitor) Start() error {
	if j.schedule == "" {
		logger.Infof("[Janitor] disabled")
		return nil
	}
	j.cron = cron.New()
	id, err := j.cron.AddFunc(j.schedule, func() {
		j.runScheduled(context.Background())
	})
	if err != nil {
		return err
	}
	j.entryID = id
	j.cron.Start()
	logger.Infof("[Janitor] Scheduled (cron: %s)", j.schedule)
	return nil
}

func (j *StorageJanitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

// runScheduled sweeps only while holding the janitor lease, so replicas
// sharing a database and bucket do not race each other. It reports whether
// a sweep ran.
func (j *StorageJanitor) runScheduled(ctx context.Context) bool {
	db := j.uow.DB(ctx)
	ok, err := acquireLease(ctx, db, janitorLease, j.holder, janitorLeaseTTL)
	if err != nil {
		logger.Errorf("[Janitor] lease error: %v", err)
		return false
	}
	if !ok {
		logger.Debug().Str("holder", j.holder).Msg("janitor lease held elsewhere, skipping sweep")
		return false
	}
	defer func() {
		if err := releaseLease(ctx, db, janitorLease, j.holder); err != nil {
			logger.Warn().Err(err).Msg("janitor failed to release lease")
		}
	}()

	if _, err := j.Sweep(ctx); err != nil {
		logger.Errorf("[Janitor] sweep failed: %v", err)
	}
	return true
}

// Sweep runs one pass and returns how many blobs were removed.
func (j *StorageJanitor) Sweep(ctx context.Context) (int, error) {
	keys, err := j.store.List(ctx)
	if err != nil {
		return 0, err
	}

	var referenced []string
	if err := j.uow.DB(ctx).Model(&models.ProjectFile{}).Pluck("file_path", &referenced).Error; err != nil {
		return 0, err
	}
	live := make(map[string]struct{}, len(referenced))
	for _, k := range referenced {
		live[k] = struct{}{}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	next := make(map[string]struct{})
	removed := 0
	for _, key := range keys {
		if _, ok := live[key]; ok {
			continue
		}
		if _, seen := j.suspects[key]; !seen {
			next[key] = struct{}{}
			continue
		}
		if err := j.store.Delete(ctx, key); err != nil {
			metrics.StorageDeletes.WithLabelValues("failed").Inc()
			logger.Warn().Err(err).Str("key", key).Msg("janitor failed to delete blob")
			next[key] = struct{}{}
			continue
		}
		metrics.StorageDeletes.WithLabelValues("ok").Inc()
		removed++
	}
	j.suspects = next

	if removed > 0 {
		logger.Info().Int("removed", removed).Msg("janitor removed orphaned blobs")
	}
	return removed, nil
}
