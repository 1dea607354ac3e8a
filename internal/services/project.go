package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/metrics"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/storage"
	"github.com/huangang/projecthub/pkg/logger"
	"github.com/huangang/projecthub/pkg/response"
)

type ProjectInput struct {
	Name        string
	Description string
	Status      models.ProjectStatus
	WorkspaceID string
	StartDate   *time.Time
	EndDate     *time.Time
}

func (in ProjectInput) validate() error {
	fields := map[string][]string{}
	if !in.Status.Valid() {
		fields["status"] = append(fields["status"], "must be between 0 and 4")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		fields["endDate"] = append(fields["endDate"], "must not be before startDate")
	}
	if len(fields) > 0 {
		return response.NewValidation("one or more validation errors occurred", fields)
	}
	return nil
}

type ProjectService struct {
	uow   *UnitOfWork
	audit *AuditService
	store storage.Storage
}

func NewProjectService(uow *UnitOfWork, audit *AuditService, store storage.Storage) *ProjectService {
	return &ProjectService{uow: uow, audit: audit, store: store}
}

func (s *ProjectService) List(ctx context.Context, workspaceID string) ([]models.Project, error) {
	query := s.uow.DB(ctx).Preload("Workspace").Order("created_at DESC")
	if workspaceID != "" {
		query = query.Where("workspace_id = ?", workspaceID)
	}
	var projects []models.Project
	err := query.Find(&projects).Error
	return projects, err
}

func (s *ProjectService) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := s.uow.DB(ctx).Preload("Workspace").Take(&project, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	return &project, nil
}

// Create stores the project and makes the creator its first ProjectManager.
func (s *ProjectService) Create(ctx context.Context, in ProjectInput, actor Actor) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	project := models.Project{
		Name:        in.Name,
		Description: in.Description,
		Status:      in.Status,
		WorkspaceID: in.WorkspaceID,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedBy:   actor.UserID,
		CreatedAt:   time.Now().UTC(),
	}

	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := requireExists(tx, &models.Workspace{}, in.WorkspaceID, "workspace not found"); err != nil {
			return err
		}
		if err := tx.Create(&project).Error; err != nil {
			return err
		}

		creator := models.ProjectMember{
			ProjectID: project.ID,
			UserID:    actor.UserID,
			Role:      models.ProjectRoleManager,
		}
		if err := s.uow.Secondary(tx.Create(&creator).Error, "creator membership"); err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityProject,
			EntityID:    project.ID,
			Action:      models.AuditActionCreate,
			Actor:       actor,
			Description: fmt.Sprintf("Created project: %s", project.Name),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("project_id", project.ID).Str("user_id", actor.UserID).Msg("project created")
	return s.GetByID(ctx, project.ID)
}

func (s *ProjectService) Update(ctx context.Context, id string, in ProjectInput, actor Actor) (*models.Project, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var project models.Project
		if err := tx.Take(&project, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "project not found")
		}
		if project.WorkspaceID != in.WorkspaceID {
			if err := requireExists(tx, &models.Workspace{}, in.WorkspaceID, "workspace not found"); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		err := tx.Model(&project).Select("name", "description", "status", "workspace_id", "start_date", "end_date", "updated_at").
			Updates(models.Project{
				Name:        in.Name,
				Description: in.Description,
				Status:      in.Status,
				WorkspaceID: in.WorkspaceID,
				StartDate:   in.StartDate,
				EndDate:     in.EndDate,
				UpdatedAt:   &now,
			}).Error
		if err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityProject,
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Actor:       actor,
			Description: fmt.Sprintf("Updated project: %s", in.Name),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("project_id", id).Str("user_id", actor.UserID).Msg("project updated")
	return s.GetByID(ctx, id)
}

// Delete removes the project with its members, tasks and files. It
// returns false when the project does not exist. Stored blobs are removed
// after the rows are gone; blob failures are logged and ignored.
func (s *ProjectService) Delete(ctx context.Context, id string, actor Actor) (bool, error) {
	var project models.Project
	var files []models.ProjectFile
	found := true

	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Take(&project, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		if err := tx.Where("project_id = ?", id).Find(&files).Error; err != nil {
			return err
		}

		for _, child := range []interface{}{&models.ProjectFile{}, &models.Task{}, &models.ProjectMember{}} {
			if err := tx.Where("project_id = ?", id).Delete(child).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&project).Error; err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityProject,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Actor:       actor,
			Description: fmt.Sprintf("Deleted project: %s", project.Name),
		})
	})
	if err != nil || !found {
		return false, err
	}

	for _, f := range files {
		removeBlob(ctx, s.store, f.FilePath, "project_id", id)
	}

	logger.Info().Str("project_id", id).Int("files", len(files)).Str("user_id", actor.UserID).Msg("project deleted")
	return true, nil
}

// removeBlob deletes a stored blob and only logs on failure.
func removeBlob(ctx context.Context, store storage.Storage, key, ownerField, ownerID string) {
	if store == nil || key == "" {
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		metrics.StorageDeletes.WithLabelValues("failed").Inc()
		logger.Warn().Err(err).Str("key", key).Str(ownerField, ownerID).Msg("failed to delete stored file")
		return
	}
	metrics.StorageDeletes.WithLabelValues("ok").Inc()
}

// requireExists returns NotFound when no row of model's table has id.
func requireExists(tx *gorm.DB, model interface{}, id, msg string) error {
	if id == "" {
		return response.NewNotFound(msg)
	}
	var count int64
	if err := tx.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return response.NewNotFound(msg)
	}
	return nil
}
