package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/response"
)

type ProjectHandler struct {
	projectService    *services.ProjectService
	membershipService *services.MembershipService
	authority         *services.Authority
}

func NewProjectHandler(projects *services.ProjectService, members *services.MembershipService, authority *services.Authority) *ProjectHandler {
	return &ProjectHandler{
		projectService:    projects,
		membershipService: members,
		authority:         authority,
	}
}

type projectRequest struct {
	Name        string     `json:"name" binding:"required,min=3,max=200"`
	Description string     `json:"description" binding:"max=1000"`
	Status      int        `json:"status" binding:"min=0,max=4"`
	WorkspaceID string     `json:"workspaceId" binding:"required,uuid"`
	StartDate   *time.Time `json:"startDate"`
	EndDate     *time.Time `json:"endDate"`
}

func (r projectRequest) input() services.ProjectInput {
	return services.ProjectInput{
		Name:        r.Name,
		Description: r.Description,
		Status:      models.ProjectStatus(r.Status),
		WorkspaceID: r.WorkspaceID,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
	}
}

type addMemberRequest struct {
	UserID string `json:"userId" binding:"required,uuid"`
	Role   *int   `json:"role" binding:"required,min=0,max=2"`
}

type updateMemberRoleRequest struct {
	Role *int `json:"role" binding:"required,min=0,max=2"`
}

// MemberResponse is a roster entry with the member's user details.
type MemberResponse struct {
	ID            string             `json:"id"`
	ProjectID     string             `json:"projectId"`
	UserID        string             `json:"userId"`
	UserEmail     string             `json:"userEmail"`
	UserFirstName string             `json:"userFirstName"`
	UserLastName  string             `json:"userLastName"`
	Role          models.ProjectRole `json:"role"`
	RoleName      string             `json:"roleName"`
	JoinedAt      time.Time          `json:"joinedAt"`
}

func toMemberResponse(m *models.ProjectMember) MemberResponse {
	resp := MemberResponse{
		ID:        m.ID,
		ProjectID: m.ProjectID,
		UserID:    m.UserID,
		Role:      m.Role,
		RoleName:  m.Role.String(),
		JoinedAt:  m.JoinedAt,
	}
	if m.User != nil {
		resp.UserEmail = m.User.Email
		resp.UserFirstName = m.User.FirstName
		resp.UserLastName = m.User.LastName
	}
	return resp
}

// List GET /api/projects?workspaceId=
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectService.List(c.Request.Context(), c.Query("workspaceId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, projects)
}

// GetByID GET /api/projects/:id
func (h *ProjectHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	project, err := h.projectService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Create POST /api/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	project, err := h.projectService.Create(c.Request.Context(), req.input(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, project)
}

// Update PUT /api/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	project, err := h.projectService.Update(c.Request.Context(), id, req.input(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, project)
}

// Delete DELETE /api/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	found, err := h.projectService.Delete(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "project not found")
		return
	}
	response.NoContent(c)
}

// ListMembers is open to Admins and to members of the project
// GET /api/projects/:id/members
func (h *ProjectHandler) ListMembers(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.projectService.GetByID(ctx, projectID); err != nil {
		response.Error(c, err)
		return
	}
	allowed, err := h.authority.CanViewMembers(ctx, actor, projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !allowed {
		response.Forbidden(c, "you must be a member of this project to view its members")
		return
	}

	members, err := h.membershipService.ListMembers(ctx, projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, toMemberResponse(&members[i]))
	}
	response.Success(c, out)
}

// requireManager answers 403 unless actor may manage the project's roster.
func (h *ProjectHandler) requireManager(c *gin.Context, actor services.Actor, projectID string) bool {
	allowed, err := h.authority.CanManageMembers(c.Request.Context(), actor, projectID)
	if err != nil {
		response.Error(c, err)
		return false
	}
	if !allowed {
		response.Forbidden(c, "only project managers and admins can manage members")
		return false
	}
	return true
}

// AddMember POST /api/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok || !h.requireManager(c, actor, projectID) {
		return
	}

	member, err := h.membershipService.AddMember(c.Request.Context(), projectID, req.UserID, models.ProjectRole(*req.Role), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, toMemberResponse(member))
}

// UpdateMemberRole PUT /api/projects/:id/members/:userId
func (h *ProjectHandler) UpdateMemberRole(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	var req updateMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok || !h.requireManager(c, actor, projectID) {
		return
	}

	member, err := h.membershipService.UpdateMemberRole(c.Request.Context(), projectID, userID, models.ProjectRole(*req.Role), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, toMemberResponse(member))
}

// RemoveMember DELETE /api/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	projectID, ok := idParam(c, "id")
	if !ok {
		return
	}
	userID, ok := idParam(c, "userId")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok || !h.requireManager(c, actor, projectID) {
		return
	}

	// cheap early answer; RemoveMember repeats the check under a lock
	last, err := h.authority.IsLastManager(c.Request.Context(), projectID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if last {
		response.Error(c, services.ErrLastProjectManager)
		return
	}

	if err := h.membershipService.RemoveMember(c.Request.Context(), projectID, userID, actor); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
