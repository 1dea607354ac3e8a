package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/models"
)

func TestAuditList_NewestFirstAndPaged(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	actor := env.createUser(t, "pm@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		entry := models.AuditLog{
			EntityType: EntityTask,
			EntityID:   "task",
			Action:     models.AuditActionUpdate,
			UserID:     actor.UserID,
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}
		if err := env.db.Create(&entry).Error; err != nil {
			t.Fatalf("seed audit: %v", err)
		}
	}

	page, err := env.audit.List(ctx, AuditFilter{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if page.Total != 5 || len(page.Items) != 2 {
		t.Fatalf("List() total=%d items=%d, expected 5/2", page.Total, len(page.Items))
	}
	if !page.Items[0].Timestamp.After(page.Items[1].Timestamp) {
		t.Error("items are not newest first")
	}

	last, err := env.audit.List(ctx, AuditFilter{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(last.Items) != 1 {
		t.Errorf("page 3 items = %d, expected 1", len(last.Items))
	}
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 50},
		{2, 10, 2, 10},
		{-1, 1000, 1, 200},
	}
	for _, tt := range tests {
		page, size := normalizePage(tt.page, tt.size)
		if page != tt.wantPage || size != tt.wantSize {
			t.Errorf("normalizePage(%d, %d) = %d, %d, expected %d, %d", tt.page, tt.size, page, size, tt.wantPage, tt.wantSize)
		}
	}
}

func TestAuditRecord_PublishesAfterCommit(t *testing.T) {
	env := newTestEnv(t, true)
	ctx := context.Background()
	ch := env.hub.Subscribe("test")
	defer env.hub.Unsubscribe("test")
	actor := env.createUser(t, "pm@example.com")

	err := env.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := env.audit.Record(ctx, tx, AuditEvent{EntityType: EntityTask, EntityID: "t1", Action: models.AuditActionCreate, Actor: actor}); err != nil {
			return err
		}
		select {
		case <-ch:
			t.Error("event published before commit")
		default:
		}
		return errors.New("roll back")
	})
	if err == nil {
		t.Fatal("expected rollback error")
	}
	select {
	case <-ch:
		t.Error("event published for a rolled back unit of work")
	default:
	}

	err = env.uow.Do(ctx, func(tx *gorm.DB) error {
		return env.audit.Record(ctx, tx, AuditEvent{EntityType: EntityTask, EntityID: "t2", Action: models.AuditActionCreate, Actor: actor})
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	select {
	case entry := <-ch:
		if entry.EntityID != "t2" {
			t.Errorf("EntityID = %q, expected %q", entry.EntityID, "t2")
		}
	case <-time.After(time.Second):
		t.Error("no event after commit")
	}
}

func TestAuditRecord_FailureModes(t *testing.T) {
	for _, tt := range []struct {
		name          string
		transactional bool
		wantErr       bool
	}{
		{"best effort swallows", false, false},
		{"transactional propagates", true, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.transactional)
			actor := env.createUser(t, "pm@example.com")
			if err := env.db.Migrator().DropTable(&models.AuditLog{}); err != nil {
				t.Fatalf("drop audit table: %v", err)
			}

			_, err := env.orgs.Create(context.Background(), OrganizationInput{Name: "Acme"}, actor)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}

			var n int64
			env.db.Model(&models.Organization{}).Count(&n)
			want := int64(1)
			if tt.wantErr {
				want = 0
			}
			if n != want {
				t.Errorf("organizations = %d, expected %d", n, want)
			}
		})
	}
}
