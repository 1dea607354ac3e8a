package services

import (
	"context"
	"strings"

	"github.com/huangang/projecthub/internal/models"
)

type UserFilter struct {
	Search         string
	OrganizationID string
	WorkspaceID    string
	Page           int
	PageSize       int
}

type UserPage struct {
	Items    []models.User
	Total    int64
	Page     int
	PageSize int
}

type UserService struct {
	uow *UnitOfWork
}

func NewUserService(uow *UnitOfWork) *UserService {
	return &UserService{uow: uow}
}

// List searches email and names case-insensitively, ordered by email.
func (s *UserService) List(ctx context.Context, f UserFilter) (*UserPage, error) {
	page, size := normalizePage(f.Page, f.PageSize)

	query := s.uow.DB(ctx).Model(&models.User{})
	if f.OrganizationID != "" {
		query = query.Where("organization_id = ?", f.OrganizationID)
	}
	if f.WorkspaceID != "" {
		query = query.Where("workspace_id = ?", f.WorkspaceID)
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + escapeLike(search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? ESCAPE '!' OR LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!'",
			like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var users []models.User
	err := query.Preload("Roles").Order("email ASC").Offset((page - 1) * size).Limit(size).Find(&users).Error
	if err != nil {
		return nil, err
	}
	return &UserPage{Items: users, Total: total, Page: page, PageSize: size}, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.uow.DB(ctx).Preload("Roles").Take(&user, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}
	return &user, nil
}

// escapeLike quotes LIKE wildcards with '!', which needs no string
// escaping on any supported dialect.
func escapeLike(s string) string {
	r := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)
	return r.Replace(s)
}
