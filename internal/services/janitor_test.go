package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/huangang/projecthub/internal/models"
)

func TestStorageJanitor_SweepNeedsTwoPasses(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	actor := env.createUser(t, "pm@example.com")
	p := env.createProject(t, actor, "Janitor")

	kept, err := env.files.Upload(ctx, p.ID, UploadInput{
		FileName: "keep.txt", ContentType: "text/plain", Size: 4, Content: strings.NewReader("keep"),
	}, actor)
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	orphan, err := env.store.Save(ctx, "orphan.txt", "text/plain", strings.NewReader("lost"), 4)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	j := NewStorageJanitor(env.uow, env.store, "")

	removed, err := j.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 0 {
		t.Errorf("first Sweep() removed %d, expected 0", removed)
	}

	removed, err = j.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("second Sweep() removed %d, expected 1", removed)
	}

	if ok, _ := env.store.Exists(ctx, orphan); ok {
		t.Error("orphan blob should be gone")
	}
	if ok, _ := env.store.Exists(ctx, kept.FilePath); !ok {
		t.Error("referenced blob should be kept")
	}
}

func TestStorageJanitor_StartDisabledAndInvalid(t *testing.T) {
	env := newTestEnv(t, false)

	if err := NewStorageJanitor(env.uow, env.store, "").Start(); err != nil {
		t.Errorf("Start() with empty schedule error = %v", err)
	}
	if err := NewStorageJanitor(env.uow, env.store, "not a cron").Start(); err == nil {
		t.Error("Start() with invalid schedule should fail")
	}

	j := NewStorageJanitor(env.uow, env.store, "@every 1h")
	if err := j.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	j.Stop()
}

func TestAcquireLease(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()

	ok, err := acquireLease(ctx, env.db, "job", "a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("acquireLease(a) = %v, %v, expected true", ok, err)
	}
	if ok, _ := acquireLease(ctx, env.db, "job", "b", time.Minute); ok {
		t.Error("acquireLease(b) should fail while a holds the lease")
	}
	if ok, _ := acquireLease(ctx, env.db, "job", "a", time.Minute); !ok {
		t.Error("acquireLease(a) should renew its own lease")
	}
	if ok, _ := acquireLease(ctx, env.db, "other", "b", time.Minute); !ok {
		t.Error("leases with different names should not conflict")
	}

	if err := releaseLease(ctx, env.db, "job", "a"); err != nil {
		t.Fatalf("releaseLease() error = %v", err)
	}
	if ok, _ := acquireLease(ctx, env.db, "job", "b", -time.Minute); !ok {
		t.Error("acquireLease(b) should succeed after release")
	}
	// b's lease is already expired
	if ok, _ := acquireLease(ctx, env.db, "job", "c", time.Minute); !ok {
		t.Error("acquireLease(c) should take over an expired lease")
	}
}

func TestStorageJanitor_RunScheduledRespectsLease(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	j := NewStorageJanitor(env.uow, env.store, "")

	if ok, _ := acquireLease(ctx, env.db, janitorLease, "other-instance", time.Minute); !ok {
		t.Fatal("setup lease not acquired")
	}
	if j.runScheduled(ctx) {
		t.Error("runScheduled() should skip while another instance holds the lease")
	}

	if err := releaseLease(ctx, env.db, janitorLease, "other-instance"); err != nil {
		t.Fatalf("releaseLease() error = %v", err)
	}
	if !j.runScheduled(ctx) {
		t.Error("runScheduled() should sweep once the lease is free")
	}

	var count int64
	env.db.Model(&models.SchedulerLock{}).Count(&count)
	if count != 0 {
		t.Errorf("lease rows after run = %d, expected 0", count)
	}
}
