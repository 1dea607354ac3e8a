package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/storage"
	"github.com/huangang/projecthub/pkg/logger"
	"github.com/huangang/projecthub/pkg/response"
)

type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Content     io.Reader
}

type FileService struct {
	uow    *UnitOfWork
	audit  *AuditService
	store  storage.Storage
	limits config.UploadConfig
}

func NewFileService(uow *UnitOfWork, audit *AuditService, store storage.Storage, limits config.UploadConfig) *FileService {
	return &FileService{uow: uow, audit: audit, store: store, limits: limits}
}

// ValidateUpload checks size, extension and content type.
func (s *FileService) ValidateUpload(in UploadInput) error {
	fields := map[string][]string{}
	if in.Size <= 0 {
		fields["file"] = append(fields["file"], "file is empty")
	} else if max := s.limits.MaxBytes(); max > 0 && in.Size > max {
		fields["file"] = append(fields["file"], fmt.Sprintf("file exceeds the %d MB limit", s.limits.MaxSizeMB))
	}

	ext := strings.ToLower(filepath.Ext(in.FileName))
	if !s.extensionAllowed(ext) {
		fields["file"] = append(fields["file"], fmt.Sprintf("extension %q is not allowed", ext))
	}
	if strings.TrimSpace(in.ContentType) == "" {
		fields["contentType"] = append(fields["contentType"], "is required")
	}

	if len(fields) > 0 {
		return response.NewValidation("invalid file upload", fields)
	}
	return nil
}

func (s *FileService) extensionAllowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, allowed := range s.limits.AllowedExtensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func (s *FileService) ListByProject(ctx context.Context, projectID string) ([]models.ProjectFile, error) {
	if err := requireExists(s.uow.DB(ctx), &models.Project{}, projectID, "project not found"); err != nil {
		return nil, err
	}
	var files []models.ProjectFile
	err := s.uow.DB(ctx).Where("project_id = ?", projectID).Order("uploaded_at DESC").Find(&files).Error
	return files, err
}

func (s *FileService) GetByID(ctx context.Context, id string) (*models.ProjectFile, error) {
	var file models.ProjectFile
	if err := s.uow.DB(ctx).Take(&file, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "file not found")
	}
	return &file, nil
}

// Upload stores the blob then the metadata row. The blob is removed again
// when the row cannot be written.
func (s *FileService) Upload(ctx context.Context, projectID string, in UploadInput, actor Actor) (*models.ProjectFile, error) {
	if err := s.ValidateUpload(in); err != nil {
		return nil, err
	}
	if err := requireExists(s.uow.DB(ctx), &models.Project{}, projectID, "project not found"); err != nil {
		return nil, err
	}

	key, err := s.store.Save(ctx, in.FileName, in.ContentType, in.Content, in.Size)
	if err != nil {
		return nil, errors.Wrapf(err, "save blob for project %s", projectID)
	}

	file := models.ProjectFile{
		FileName:         key,
		OriginalFileName: filepath.Base(in.FileName),
		ContentType:      in.ContentType,
		FileSize:         in.Size,
		FilePath:         key,
		ProjectID:        projectID,
		UploadedBy:       actor.UserID,
	}

	err = s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&file).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityProjectFile,
			EntityID:    file.ID,
			Action:      models.AuditActionCreate,
			Actor:       actor,
			Description: fmt.Sprintf("Uploaded file: %s", file.OriginalFileName),
		})
	})
	if err != nil {
		removeBlob(ctx, s.store, key, "project_id", projectID)
		return nil, err
	}

	logger.Info().Str("file_id", file.ID).Str("project_id", projectID).Int64("size", file.FileSize).Msg("file uploaded")
	return &file, nil
}

// Open returns the metadata and a reader for the blob. The caller closes it.
func (s *FileService) Open(ctx context.Context, id string) (*models.ProjectFile, io.ReadCloser, error) {
	file, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Open(ctx, file.FilePath)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, response.NewNotFound("file content not found")
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open blob %s", file.FilePath)
	}
	return file, rc, nil
}

// Delete removes the row and then the blob; blob failures are only logged.
func (s *FileService) Delete(ctx context.Context, id string, actor Actor) (bool, error) {
	var file models.ProjectFile
	found := true
	err := s.uow.Do(ctx, func(tx *gorm.DB) error {
		if err := tx.Take(&file, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				found = false
				return nil
			}
			return err
		}
		if err := tx.Delete(&file).Error; err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, AuditEvent{
			EntityType:  EntityProjectFile,
			EntityID:    id,
			Action:      models.AuditActionDelete,
			Actor:       actor,
			Description: fmt.Sprintf("Deleted file: %s", file.OriginalFileName),
		})
	})
	if err != nil || !found {
		return false, err
	}
	removeBlob(ctx, s.store, file.FilePath, "file_id", id)
	return true, nil
}
