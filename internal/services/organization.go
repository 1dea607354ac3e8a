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

type OrganizationInput struct {
	Name        string
	Description string
}

type OrganizationService struct {
	uow   *UnitOfWork
	audit *AuditService
}

func NewOrganizationService(uow *UnitOfWork, audit *AuditService) *OrganizationService {
	return &OrganizationService{uow: uow, audit: audit}
}

func (s *OrganizationService) List(ctx context.Context) ([]models.Organization, error) {
	var orgs []models.Organization
	err := s.uow.DB(ctx).Order("name ASC").Find(&orgs).Error
	return orgs, err
}

func (s *OrganizationService) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := s.uow.DB(ctx).Take(&org, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "organization not found")
	}
	return &org, nil
}

func (s *OrganizationService) Create(ctx context.Context, in OrganizationInput, actor Actor) (*models.Organization, error) {
	org := models.Organization{Name: in.Name, Description: in.Description, CreatedAt: time.Now().UTC()}
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&org).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityOrganization,
			EntityID:    org.ID,
			Action:      models.AuditActionCreate,
			Actor:       actor,
			Description: fmt.Sprintf("Created organization: %s", org.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Info().Str("organization_id", org.ID).Msg("organization created")
	return &org, nil
}

func (s *OrganizationService) Update(ctx context.Context, id string, in OrganizationInput, actor Actor) (*models.Organization, error) {
	var org models.Organization
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Take(&org, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "organization not found")
		}
		now := time.Now().UTC()
		org.Name, org.Description, org.UpdatedAt = in.Name, in.Description, &now
		if err := tx.Model(&org).Select("name", "description", "updated_at").Updates(&org).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityOrganization,
			EntityID:    id,
			Action:      models.AuditActionUpdate,
			Actor:       actor,
			Description: fmt.Sprintf("Updated organization: %s", org.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// Delete refuses while workspaces still reference the organization.
func (s *OrganizationService) Delete(ctx context.Context, id string, actor Actor) (bool, error) {
	found := true
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		var org models.Organization
		if err := tx.Take(&org, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		var workspaces int64
		if err := tx.Model(&models.Workspace{}).Where("organization_id = ?", id).Count(&workspaces).Error; err != nil {
			return err
		}
		if workspaces > 0 {
			return response.NewConflict("organization still has workspaces")
		}
		if err := tx.Delete(&org).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityOrganization,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Actor:       actor,
			Description: fmt.Sprintf("Deleted organization: %s", org.Name),
		})
	})
	if err != nil || !found {
		return false, err
	}
	return true, nil
}
