package services

import (
	"context"
	"testing"

	"github.com/huangang/projecthub/internal/models"
)

func TestResolveSystemRole(t *testing.T) {
	tests := []struct {
		name   string
		roles  []models.SystemRole
		want   models.SystemRole
		wantOK bool
	}{
		{"none", nil, "", false},
		{"single", []models.SystemRole{models.SystemRoleTeamMember}, models.SystemRoleTeamMember, true},
		{"admin wins", []models.SystemRole{models.SystemRoleTeamMember, models.SystemRoleAdmin}, models.SystemRoleAdmin, true},
		{"pm over member", []models.SystemRole{models.SystemRoleTeamMember, models.SystemRoleProjectManager}, models.SystemRoleProjectManager, true},
		{"unknown ignored", []models.SystemRole{"Janitor"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveSystemRole(Actor{Roles: tt.roles})
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ResolveSystemRole() = %q, %v, expected %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestAuthority_ProjectChecks(t *testing.T) {
	env := newTestEnv(t, false)
	ctx := context.Background()
	owner := env.createUser(t, "owner@example.com")
	viewer := env.createUser(t, "viewer@example.com")
	stranger := env.createUser(t, "stranger@example.com")
	admin := env.createUser(t, "admin@example.com", models.SystemRoleAdmin)
	p := env.createProject(t, owner, "Auth")

	if _, err := env.members.AddMember(ctx, p.ID, viewer.UserID, models.ProjectRoleViewer, owner); err != nil {
		t.Fatalf("AddMember() error = %v", err)
	}

	tests := []struct {
		name       string
		actor      Actor
		wantManage bool
		wantView   bool
	}{
		{"manager", owner, true, true},
		{"viewer", viewer, false, true},
		{"stranger", stranger, false, false},
		{"admin without membership", admin, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			manage, err := env.authority.CanManageMembers(ctx, tt.actor, p.ID)
			if err != nil {
				t.Fatalf("CanManageMembers() error = %v", err)
			}
			if manage != tt.wantManage {
				t.Errorf("CanManageMembers() = %v, expected %v", manage, tt.wantManage)
			}
			view, err := env.authority.CanViewMembers(ctx, tt.actor, p.ID)
			if err != nil {
				t.Fatalf("CanViewMembers() error = %v", err)
			}
			if view != tt.wantView {
				t.Errorf("CanViewMembers() = %v, expected %v", view, tt.wantView)
			}
		})
	}

	role, ok, err := env.authority.ResolveProjectRole(ctx, p.ID, viewer.UserID)
	if err != nil || !ok || role != models.ProjectRoleViewer {
		t.Errorf("ResolveProjectRole() = %v, %v, %v", role, ok, err)
	}

	last, err := env.authority.IsLastManager(ctx, p.ID, owner.UserID)
	if err != nil || !last {
		t.Errorf("IsLastManager(owner) = %v, %v, expected true", last, err)
	}
	last, err = env.authority.IsLastManager(ctx, p.ID, viewer.UserID)
	if err != nil || last {
		t.Errorf("IsLastManager(viewer) = %v, %v, expected false", last, err)
	}
}
