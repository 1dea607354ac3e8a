package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/pkg/logger"
	"github.com/huangang/projecthub/pkg/response"
)

type WorkspaceInput struct {
	Name           string
	Description    string
	OrganizationID string
}

type WorkspaceService struct {
	uow   *UnitOfWork
	audit *AuditService
}

func NewWorkspaceService(uow *UnitOfWork, audit *AuditService) *WorkspaceService {
	return &WorkspaceService{uow: uow, audit: audit}
}

func (s *WorkspaceService) List(ctx context.Context, organizationID string) ([]models.Workspace, error) {
	query := s.uow.DB(ctx).Preload("Organization").Order("name ASC")
	if organizationID != "" {
		query = query.Where("organization_id = ?", organizationID)
	}
	var workspaces []models.Workspace
	err := query.Find(&workspaces).Error
	return workspaces, err
}

func (s *WorkspaceService) GetByID(ctx context.Context, id string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := s.uow.DB(ctx).Preload("Organization").Take(&ws, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "workspace not found")
	}
	return &ws, nil
}

func (s *WorkspaceService) Create(ctx context.Context, in WorkspaceInput, actor Actor) (*models.Workspace, error) {
	ws := models.Workspace{
		Name:           in.Name,
		Description:    in.Description,
		OrganizationID: in.OrganizationID,
		CreatedAt:      time.Now().UTC(),
	}
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := requireExists(tx, &models.Organization{}, in.OrganizationID, "organization not found"); err != nil {
			return err
		}
		if err := tx.Create(&ws).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityWorkspace,
			EntityID:    ws.ID,
			Action:      models.AuditActionCreate,
			Actor:       actor,
			Description: fmt.Sprintf("Created workspace: %s", ws.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("workspace_id", ws.ID).Str("organization_id", ws.OrganizationID).Msg("workspace created")
	return s.GetByID(ctx, ws.ID)
}

func (s *WorkspaceService) Update(ctx context.Context, id string, in WorkspaceInput, actor Actor) (*models.Workspace, error) {
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var ws models.Workspace
		if err := tx.Take(&ws, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "workspace not found")
		}
		if ws.OrganizationID != in.OrganizationID {
			if err := requireExists(tx, &models.Organization{}, in.OrganizationID, "organization not found"); err != nil {
				return err
			}
		}
		now := time.Now().UTC()
		err := tx.Model(&ws).Select("name", "description", "organization_id", "updated_at").
			Updates(models.Workspace{
				Name:           in.Name,
				Description:    in.Description,
				OrganizationID: in.OrganizationID,
				UpdatedAt:      &now,
			}).Error
		if err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityWorkspace,
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Actor:       actor,
			Description: fmt.Sprintf("Updated workspace: %s", in.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetByID(ctx, id)
}

// Delete refuses while projects still live in the workspace.
func (s *WorkspaceService) Delete(ctx context.Context, id string, actor Actor) (bool, error) {
	found := true
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var ws models.Workspace
		if err := tx.Take(&ws, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		var projects int64
		if err := tx.Model(&models.Project{}).Where("workspace_id = ?", id).Count(&projects).Error; err != nil {
			return err
		}
		if projects > 0 {
			return response.NewConflict("workspace still has projects")
		}
		if err := tx.Delete(&ws).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityWorkspace,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Actor:       actor,
			Description: fmt.Sprintf("Deleted workspace: %s", ws.Name),
		})
	})
	if err != nil || !found {
		return false, err
	}
	return true, nil
}
