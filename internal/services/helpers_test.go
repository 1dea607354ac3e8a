package services

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/storage"
)

type testEnv struct {
	db         *gorm.DB
	uow        *UnitOfWork
	hub        *AuditHub
	audit      *AuditService
	store      *storage.Memory
	authority  *Authority
	orgs       *OrganizationService
	workspaces *WorkspaceService
	projects   *ProjectService
	members    *MembershipService
	tasks      *TaskService
	files      *FileService
	users      *UserService
}

func newTestEnv(t *testing.T, transactional bool) *testEnv {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, "test")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	uow := NewUnitOfWork(db, transactional)
	hub := NewAuditHub()
	audit := NewAuditService(uow, hub)
	store := storage.NewMemory()

	return &testEnv{
		db:         db,
		uow:        uow,
		hub:        hub,
		audit:      audit,
		store:      store,
		authority:  NewAuthority(db),
		orgs:       NewOrganizationService(uow, audit),
		workspaces: NewWorkspaceService(uow, audit),
		projects:   NewProjectService(uow, audit, store),
		members:    NewMembershipService(uow, audit, nil),
		tasks:      NewTaskService(uow, audit),
		files:      NewFileService(uow, audit, store, config.DefaultConfig().Upload),
		users:      NewUserService(uow),
	}
}

func (e *testEnv) createUser(t *testing.T, email string, roles ...models.SystemRole) Actor {
	t.Helper()
	user := models.User{Email: email, FirstName: "Test", LastName: email, AuthType: models.AuthTypeLocal}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	for _, r := range roles {
		if err := e.db.Create(&models.UserRole{UserID: user.ID, Role: r}).Error; err != nil {
			t.Fatalf("assign role %s: %v", r, err)
		}
	}
	return Actor{UserID: user.ID, Email: email, Name: user.FullName(), Roles: roles}
}

// createProject builds an organization, a workspace and a project owned by actor.
func (e *testEnv) createProject(t *testing.T, actor Actor, name string) *models.Project {
	t.Helper()
	ctx := context.Background()
	org, err := e.orgs.Create(ctx, OrganizationInput{Name: name + " org"}, actor)
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	ws, err := e.workspaces.Create(ctx, WorkspaceInput{Name: name + " ws", OrganizationID: org.ID}, actor)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	project, err := e.projects.Create(ctx, ProjectInput{Name: name, WorkspaceID: ws.ID}, actor)
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return project
}

func (e *testEnv) auditCount(t *testing.T, entityType, entityID, action string) int64 {
	t.Helper()
	var n int64
	err := e.db.Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", entityType, entityID, action).
		Count(&n).Error
	if err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	return n
}

func (e *testEnv) roster(t *testing.T, projectID string) map[string]models.ProjectRole {
	t.Helper()
	members, err := e.members.ListMembers(context.Background(), projectID)
	if err != nil {
		t.Fatalf("ListMembers() error = %v", err)
	}
	out := make(map[string]models.ProjectRole, len(members))
	for _, m := range members {
		out[m.UserID] = m.Role
	}
	return out
}
