package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/pkg/logger"
	"github.com/huangang/projecthub/pkg/response"
)

var ErrLastProjectManager = response.NewInvalidOperation("cannot remove the last project manager from a project")

// MembershipService maintains project rosters.
type MembershipService struct {
	uow      *UnitOfWork
	audit    *AuditService
	notifier MemberNotifier
}

// MemberNotifier is told about new memberships after they are stored.
type MemberNotifier interface {
	MemberAdded(ctx context.Context, member *models.ProjectMember, actor Actor)
}

func NewMembershipService(uow *UnitOfWork, audit *AuditService, notifier MemberNotifier) *MembershipService {
	return &MembershipService{uow: uow, audit: audit, notifier: notifier}
}

func (s *MembershipService) ListMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	err := s.uow.DB(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

func (s *MembershipService) AddMember(ctx context.Context, projectID, userID string, role models.ProjectRole, actor Actor) (*models.ProjectMember, error) {
	if !role.Valid() {
		return nil, response.NewValidation("invalid project role", map[string][]string{"role": {"must be between 0 and 2"}})
	}

	var member models.ProjectMember
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Select("id", "name").Take(&project, "id = ?", projectID).Error; err != nil {
			return notFoundOr(err, "project not found")
		}
		var user models.User
		if err := tx.Select("id", "email").Take(&user, "id = ?", userID).Error; err != nil {
			return notFoundOr(err, "user not found")
		}

		_, exists, err := resolveProjectRole(tx, projectID, userID)
		if err != nil {
			return err
		}
		if exists {
			return response.NewConflict("user is already a member of this project")
		}

		member = models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
		if err := tx.Create(&member).Error; err != nil {
			// a concurrent insert of the same pair lost the race on the unique index
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return response.NewConflict("user is already a member of this project")
			}
			return err
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityProjectMember,
			EntityID:    member.ID,
			Action:      models.AuditActionCreate,
			Actor:       actor,
			Description: fmt.Sprintf("Added member %s to project %s with role %s", user.Email, project.Name, role),
			NewValue:    role.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("project_id", projectID).
		Str("user_id", userID).
		Str("role", role.String()).
		Msg("member added to project")

	loaded, err := s.loadMember(ctx, member.ID)
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.MemberAdded(ctx, loaded, actor)
	}
	return loaded, nil
}

// RemoveMember deletes a membership. The last-manager guard and the delete
// run in one transaction with the project row locked, so two concurrent
// removals cannot both see a second manager.
func (s *MembershipService) RemoveMember(ctx context.Context, projectID, userID string, actor Actor) error {
	return s.uow.Atomic(ctx, func(tx *gorm.DB) error {
		var project models.Project
		if err := lockForUpdate(tx).Select("id", "name").Take(&project, "id = ?", projectID).Error; err != nil {
			return notFoundOr(err, "project not found")
		}

		var member models.ProjectMember
		err := tx.Preload("User").
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Take(&member).Error
		if err != nil {
			return notFoundOr(err, "member not found in this project")
		}

		last, err := isLastManager(tx, projectID, userID)
		if err != nil {
			return err
		}
		if last {
			return ErrLastProjectManager
		}

		if err := tx.Delete(&member).Error; err != nil {
			return err
		}

		email := userID
		if member.User != nil {
			email = member.User.Email
		}
		if err := s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityProjectMember,
			EntityID:    member.ID,
			Action:      models.AuditActionDelete,
			Actor:       actor,
			Description: fmt.Sprintf("Removed member %s from project %s", email, project.Name),
			OldValue:    member.Role.String(),
		}); err != nil {
			return err
		}

		logger.Info().Str("project_id", projectID).Str("user_id", userID).Msg("member removed from project")
		return nil
	})
}

// UpdateMemberRole overwrites the member's role. Any transition is allowed.
func (s *MembershipService) UpdateMemberRole(ctx context.Context, projectID, userID string, role models.ProjectRole, actor Actor) (*models.ProjectMember, error) {
	if !role.Valid() {
		return nil, response.NewValidation("invalid project role", map[string][]string{"role": {"must be between 0 and 2"}})
	}

	var member models.ProjectMember
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		err := tx.Preload("User").Preload("Project").
			Where("project_id = ? AND user_id = ?", projectID, userID).
			Take(&member).Error
		if err != nil {
			return notFoundOr(err, "member not found in this project")
		}

		oldRole := member.Role
		if err := tx.Model(&member).Update("role", role).Error; err != nil {
			return err
		}
		member.Role = role

		email, projectName := userID, projectID
		if member.User != nil {
			email = member.User.Email
		}
		if member.Project != nil {
			projectName = member.Project.Name
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityProjectMember,
			EntityID:    member.ID,
			Action:      models.AuditActionUpdate,
			Actor:       actor,
			Description: fmt.Sprintf("Updated member %s role in project %s from %s to %s", email, projectName, oldRole, role),
			OldValue:    oldRole.String(),
			NewValue:    role.String(),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("project_id", projectID).
		Str("user_id", userID).
		Str("role", role.String()).
		Msg("member role updated")
	return &member, nil
}

func (s *MembershipService) loadMember(ctx context.Context, id string) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := s.uow.DB(ctx).Preload("User").Preload("Project").Take(&member, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error with msg.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return response.NewNotFound(msg)
	}
	return err
}
