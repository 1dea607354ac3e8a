package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/pkg/response"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(tasks *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: tasks}
}

type taskRequest struct {
	Title        string     `json:"title" binding:"required,max=200"`
	Description  string     `json:"description" binding:"max=2000"`
	Status       int        `json:"status"`
	Priority     *int       `json:"priority"`
	ProjectID    string     `json:"projectId" binding:"required,uuid"`
	AssignedToID *string    `json:"assignedToId" binding:"omitempty,uuid"`
	DueDate      *time.Time `json:"dueDate"`
}

func (r taskRequest) input() services.TaskInput {
	priority := models.TaskPriorityMedium
	if r.Priority != nil {
		priority = models.TaskPriority(*r.Priority)
	}
	return services.TaskInput{
		Title:        r.Title,
		Description:  r.Description,
		Status:       models.TaskStatus(r.Status),
		Priority:     priority,
		ProjectID:    r.ProjectID,
		AssignedToID: r.AssignedToID,
		DueDate:      r.DueDate,
	}
}

// List GET /api/tasks?projectId=&assignedToId=&status=
func (h *TaskHandler) List(c *gin.Context) {
	filter := services.TaskFilter{
		ProjectID:    c.Query("projectId"),
		AssignedToID: c.Query("assignedToId"),
	}
	if raw := c.Query("status"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || !models.TaskStatus(v).Valid() {
			response.Error(c, response.NewValidation("invalid filter", map[string][]string{"status": {"must be between 0 and 4"}}))
			return
		}
		status := models.TaskStatus(v)
		filter.Status = &status
	}
	h.list(c, filter)
}

// ListByProject GET /api/tasks/project/:projectId
func (h *TaskHandler) ListByProject(c *gin.Context) {
	projectID, ok := idParam(c, "projectId")
	if !ok {
		return
	}
	h.list(c, services.TaskFilter{ProjectID: projectID})
}

func (h *TaskHandler) list(c *gin.Context, filter services.TaskFilter) {
	tasks, err := h.taskService.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, tasks)
}

// GetByID GET /api/tasks/:id
func (h *TaskHandler) GetByID(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	task, err := h.taskService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}

// Create POST /api/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	task, err := h.taskService.Create(c.Request.Context(), req.input(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, task)
}

// Update PUT /api/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	task, err := h.taskService.Update(c.Request.Context(), id, req.input(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, task)
}

// Delete DELETE /api/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	found, err := h.taskService.Delete(c.Request.Context(), id, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !found {
		response.NotFound(c, "task not found")
		return
	}
	response.NoContent(c)
}
