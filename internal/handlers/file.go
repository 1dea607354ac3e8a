package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/logger"
	"github.com/huangang/projecthub/pkg/response"
)

type FileHandler struct {
	fileService *services.FileService
	maxBytes    int64
}

// NewFileHandler caps multipart bodies at maxBytes plus a little envelope slack.
func NewFileHandler(files *services.FileService, maxBytes int64) *FileHandler {
	return &FileHandler{fileService: files, maxBytes: maxBytes}
}

// multipart headers and boundaries on top of the file itself
const multipartSlack = 1 << 20

// Upload POST /api/files/upload/:projectId (multipart field "file")
func (h *FileHandler) Upload(c *gin.Context) {
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartSlack)
	}

	header, err := c.FormFile("file")
	if err != nil {
		msg := "a file is required"
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("file exceeds the %d MB limit", h.maxBytes>>20)
		}
		response.Error(c, response.NewValidation("invalid file upload", map[string][]string{"file": {msg}}))
		return
	}

	in := services.UploadInput{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	// reject before touching the blob
	if err := h.fileService.ValidateUpload(in); err != nil {
		response.Error(c, err)
		return
	}

	f, err := header.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()
	in.Content = f

	file, err := h.fileService.Upload(c.Request.Context(), projectID, in, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// ListByProject GET /api/files/project/:projectId
func (h *FileHandler) ListByProject(c *gin.Context) {
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}
	files, err := h.fileService.ListByProject(c.Request.Context(), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, files)
}

// GetByID GET /api/files/:id
func (h *FileHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	file, err := h.fileService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, file)
}

// Download GET /api/files/:id/download
func (h *FileHandler) Download(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	file, rc, err := h.fileService.Open(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.OriginalFileName}))
	c.Header("Content-Length", strconv.FormatInt(file.FileSize, 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		// headers are gone; all we can do is log
		logger.Warn().Err(err).Str("file_id", id).Msg("download interrupted")
	}
}

// Delete DELETE /api/files/:id
func (h *FileHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	found, err := h.fileService.Delete(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "file not found")
		return
	}
	response.NoContent(c)
}
