package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/response"
)

type OrganizationHandler struct {
	orgService *services.OrganizationService
}

func NewOrganizationHandler(orgs *services.OrganizationService) *OrganizationHandler {
	return &OrganizationHandler{orgService: orgs}
}

type organizationRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"max=1000"`
}

// List GET /api/organizations
func (h *OrganizationHandler) List(c *gin.Context) {
	orgs, err := h.orgService.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, orgs)
}

// GetByID GET /api/organizations/:id
func (h *OrganizationHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	org, err := h.orgService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, org)
}

// Create POST /api/organizations
func (h *OrganizationHandler) Create(c *gin.Context) {
	var req organizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	org, err := h.orgService.Create(c.Request.Context(), services.OrganizationInput{
		Name:        req.Name,
		Description: req.Description,
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, org)
}

// Update PUT /api/organizations/:id
func (h *OrganizationHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req organizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	org, err := h.orgService.Update(c.Request.Context(), id, services.OrganizationInput{
		Name:        req.Name,
		Description: req.Description,
	}, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, org)
}

// Delete DELETE /api/organizations/:id
func (h *OrganizationHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	found, err := h.orgService.Delete(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "organization not found")
		return
	}
	response.NoContent(c)
}
