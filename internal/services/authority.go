package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/models"
)

// ResolveSystemRole picks the highest-precedence system role the actor
// holds. ok is false when the actor holds none.
func ResolveSystemRole(actor Actor) (role models.SystemRole, ok bool) {
	best := -1
	for _, r := range actor.Roles {
		if !r.Valid() {
			continue
		}
		if best == -1 || r.Precedence() < best {
			best = r.Precedence()
			role = r
		}
	}
	return role, best != -1
}

// Authority answers project-scoped permission questions from live
// membership rows. System roles come from the actor; Admin passes every
// project check.
type Authority struct {
	db *gorm.DB
}

func NewAuthority(db *gorm.DB) *Authority {
	return &Authority{db: db}
}

// ResolveProjectRole looks up the user's membership. ok is false for non-members.
func (a *Authority) ResolveProjectRole(ctx context.Context, projectID, userID string) (models.ProjectRole, bool, error) {
	return resolveProjectRole(a.db.WithContext(ctx), projectID, userID)
}

func resolveProjectRole(tx *gorm.DB, projectID, userID string) (models.ProjectRole, bool, error) {
	var member models.ProjectMember
	err := tx.Select("role").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return member.Role, true, nil
}

// CanManageMembers is true for Admins and for the project's managers.
func (a *Authority) CanManageMembers(ctx context.Context, actor Actor, projectID string) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	role, ok, err := a.ResolveProjectRole(ctx, projectID, actor.UserID)
	if err != nil {
		return false, err
	}
	return ok && role == models.ProjectRoleManager, nil
}

// CanViewMembers is true for Admins and for any member of the project.
func (a *Authority) CanViewMembers(ctx context.Context, actor Actor, projectID string) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	_, ok, err := a.ResolveProjectRole(ctx, projectID, actor.UserID)
	return ok, err
}

// IsLastManager reports whether removing userID would leave the project
// without a ProjectManager.
func (a *Authority) IsLastManager(ctx context.Context, projectID, userID string) (bool, error) {
	return isLastManager(a.db.WithContext(ctx), projectID, userID)
}

func isLastManager(tx *gorm.DB, projectID, userID string) (bool, error) {
	role, ok, err := resolveProjectRole(tx, projectID, userID)
	if err != nil || !ok || role != models.ProjectRoleManager {
		return false, err
	}
	var managers int64
	err = tx.Model(&models.ProjectMember{}).
		Where("project_id = ? AND role = ?", projectID, models.ProjectRoleManager).
		Count(&managers).Error
	if err != nil {
		return false, err
	}
	return managers <= 1, nil
}
