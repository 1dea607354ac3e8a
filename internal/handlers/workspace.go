package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/response"
)

type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

func NewWorkspaceHandler(workspaces *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaceService: workspaces}
}

type workspaceRequest struct {
	Name           string `json:"name" binding:"required,max=200"`
	Description    string `json:"description" binding:"max=1000"`
	OrganizationID string `json:"organizationId" binding:"required,uuid"`
}

func (r workspaceRequest) input() services.WorkspaceInput {
	return services.WorkspaceInput{Name: r.Name, Description: r.Description, OrganizationID: r.OrganizationID}
}

// List GET /api/workspaces?organizationId=
func (h *WorkspaceHandler) List(c *gin.Context) {
	workspaces, err := h.workspaceService.List(c.Request.Context(), c.Query("organizationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, workspaces)
}

// GetByID GET /api/workspaces/:id
func (h *WorkspaceHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	ws, err := h.workspaceService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws)
}

// Create POST /api/workspaces
func (h *WorkspaceHandler) Create(c *gin.Context) {
	var req workspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ws, err := h.workspaceService.Create(c.Request.Context(), req.input(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ws)
}

// Update PUT /api/workspaces/:id
func (h *WorkspaceHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req workspaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ws, err := h.workspaceService.Update(c.Request.Context(), id, req.input(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, ws)
}

// Delete DELETE /api/workspaces/:id
func (h *WorkspaceHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	found, err := h.workspaceService.Delete(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "workspace not found")
		return
	}
	response.NoContent(c)
}
