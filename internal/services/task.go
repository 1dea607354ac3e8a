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

type TaskInput struct {
	Title        string
	Description  string
	Status       models.TaskStatus
	Priority     models.TaskPriority
	ProjectID    string
	AssignedToID *string
	DueDate      *time.Time
}

func (in TaskInput) validate() error {
	fields := map[string][]string{}
	if !in.Status.Valid() {
		fields["status"] = append(fields["status"], "must be between 0 and 4")
	}
	if !in.Priority.Valid() {
		fields["priority"] = append(fields["priority"], "must be between 0 and 3")
	}
	if len(fields) > 0 {
		return response.NewValidation("one or more validation errors occurred", fields)
	}
	return nil
}

type TaskFilter struct {
	ProjectID    string
	AssignedToID string
	Status       *models.TaskStatus
}

type TaskService struct {
	uow   *UnitOfWork
	audit *AuditService
}

func NewTaskService(uow *UnitOfWork, audit *AuditService) *TaskService {
	return &TaskService{uow: uow, audit: audit}
}

func (s *TaskService) List(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	query := s.uow.DB(ctx).Preload("AssignedTo").Order("created_at DESC")
	if f.ProjectID != "" {
		query = query.Where("project_id = ?", f.ProjectID)
	}
	if f.AssignedToID != "" {
		query = query.Where("assigned_to_id = ?", f.AssignedToID)
	}
	if f.Status != nil {
		query = query.Where("status = ?", *f.Status)
	}
	var tasks []models.Task
	err := query.Find(&tasks).Error
	return tasks, err
}

func (s *TaskService) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.uow.DB(ctx).Preload("Project").Preload("AssignedTo").Take(&task, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "task not found")
	}
	return &task, nil
}

func (s *TaskService) Create(ctx context.Context, in TaskInput, actor Actor) (*models.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.AssignedToID = normalizeOptionalID(in.AssignedToID)

	task := models.Task{
		Title:        in.Title,
		Description:  in.Description,
		Status:       in.Status,
		Priority:     in.Priority,
		ProjectID:    in.ProjectID,
		AssignedToID: in.AssignedToID,
		DueDate:      in.DueDate,
		CreatedBy:    actor.UserID,
		CreatedAt:    time.Now().UTC(),
	}

	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := requireExists(tx, &models.Project{}, in.ProjectID, "project not found"); err != nil {
			return err
		}
		if in.AssignedToID != nil {
			if err := requireExists(tx, &models.User{}, *in.AssignedToID, "assigned user not found"); err != nil {
				return err
			}
		}
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityTask,
			EntityID:    task.ID,
			Action:      models.AuditActionCreate,
			Actor:       actor,
			Description: fmt.Sprintf("Created task: %s", task.Title),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("task_id", task.ID).Str("project_id", task.ProjectID).Msg("task created")
	return s.GetByID(ctx, task.ID)
}

func (s *TaskService) Update(ctx context.Context, id string, in TaskInput, actor Actor) (*models.Task, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	in.AssignedToID = normalizeOptionalID(in.AssignedToID)

	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Take(&task, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "task not found")
		}
		if task.ProjectID != in.ProjectID {
			if err := requireExists(tx, &models.Project{}, in.ProjectID, "project not found"); err != nil {
				return err
			}
		}
		if in.AssignedToID != nil && !sameID(task.AssignedToID, in.AssignedToID) {
			if err := requireExists(tx, &models.User{}, *in.AssignedToID, "assigned user not found"); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		err := tx.Model(&task).
			Select("title", "description", "status", "priority", "project_id", "assigned_to_id", "due_date", "updated_at").
			Updates(models.Task{
				Title:        in.Title,
				Description:  in.Description,
				Status:       in.Status,
				Priority:     in.Priority,
				ProjectID:    in.ProjectID,
				AssignedToID: in.AssignedToID,
				DueDate:      in.DueDate,
				UpdatedAt:    &now,
			}).Error
		if err != nil {
			return err
		}

		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityTask,
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Actor:       actor,
			Description: fmt.Sprintf("Updated task: %s", in.Title),
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info().Str("task_id", id).Str("user_id", actor.UserID).Msg("task updated")
	return s.GetByID(ctx, id)
}

// Delete reports false when the task does not exist.
func (s *TaskService) Delete(ctx context.Context, id string, actor Actor) (bool, error) {
	found := true
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.Take(&task, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		if err := tx.Delete(&task).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityTask,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Actor:       actor,
			Description: fmt.Sprintf("Deleted task: %s", task.Title),
		})
	})
	if err != nil || !found {
		return false, err
	}
	logger.Info().Str("task_id", id).Str("user_id", actor.UserID).Msg("task deleted")
	return true, nil
}

func normalizeOptionalID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	return id
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
