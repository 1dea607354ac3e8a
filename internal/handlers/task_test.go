package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/models"
)

func TestTaskEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "admin@example.com", models.SystemRoleAdmin)
	dev := s.createUser(t, "dev@example.com", models.SystemRoleTeamMember)
	adminToken := s.login(t, "admin@example.com")
	devToken := s.login(t, "dev@example.com")
	wsID := s.seedWorkspace(t, adminToken)
	project := s.createProject(t, adminToken, wsID, "Tasks")

	w := s.do(t, "POST", "/api/tasks", devToken, gin.H{
		"title": "Write docs", "projectId": project.ID, "assignedToId": dev.ID, "priority": int(models.TaskPriorityHigh),
	})
	expectStatus(t, w, http.StatusCreated)
	var task models.Task
	decodeData(t, w, &task)
	if task.Priority != models.TaskPriorityHigh || task.AssignedToID == nil || *task.AssignedToID != dev.ID {
		t.Errorf("task = %+v, unexpected", task)
	}

	w = s.do(t, "POST", "/api/tasks", devToken, gin.H{"title": "Defaults", "projectId": project.ID})
	expectStatus(t, w, http.StatusCreated)
	var defaults models.Task
	decodeData(t, w, &defaults)
	if defaults.Priority != models.TaskPriorityMedium || defaults.Status != models.TaskStatus(0) {
		t.Errorf("defaults = %+v, expected Medium priority and ToDo status", defaults)
	}

	w = s.do(t, "PUT", "/api/tasks/"+task.ID, devToken, gin.H{
		"title": "Write docs", "projectId": project.ID, "status": 2, "priority": int(models.TaskPriorityHigh),
	})
	expectStatus(t, w, http.StatusOK)

	w = s.do(t, "GET", "/api/tasks?status=2", devToken, nil)
	expectStatus(t, w, http.StatusOK)
	var inProgress []models.Task
	decodeData(t, w, &inProgress)
	if len(inProgress) != 1 || inProgress[0].ID != task.ID {
		t.Errorf("status filter returned %d tasks, expected the updated one", len(inProgress))
	}

	w = s.do(t, "GET", "/api/tasks?status=9", devToken, nil)
	expectStatus(t, w, http.StatusBadRequest)

	w = s.do(t, "GET", "/api/tasks/project/"+project.ID, devToken, nil)
	expectStatus(t, w, http.StatusOK)
	var byProject []models.Task
	decodeData(t, w, &byProject)
	if len(byProject) != 2 {
		t.Errorf("len(tasks) = %d, expected 2", len(byProject))
	}

	w = s.do(t, "DELETE", "/api/tasks/"+task.ID, devToken, nil)
	expectStatus(t, w, http.StatusForbidden)

	w = s.do(t, "DELETE", "/api/tasks/"+task.ID, adminToken, nil)
	expectStatus(t, w, http.StatusNoContent)

	w = s.do(t, "GET", "/api/tasks/"+task.ID, devToken, nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestTaskCreate_LowPriorityWithNames(t *testing.T) {
	s := newTestServer(t)
	s.createUser(t, "admin@example.com", models.SystemRoleAdmin)
	adminToken := s.login(t, "admin@example.com")
	wsID := s.seedWorkspace(t, adminToken)
	project := s.createProject(t, adminToken, wsID, "Backlog")

	w := s.do(t, "POST", "/api/tasks", adminToken, gin.H{
		"title": "Someday", "projectId": project.ID, "priority": int(models.TaskPriorityLow),
	})
	expectStatus(t, w, http.StatusCreated)
	var task map[string]interface{}
	decodeData(t, w, &task)
	if task["priority"] != float64(0) || task["priorityName"] != "Low" {
		t.Errorf("priority = %v (%v), expected 0 (Low)", task["priority"], task["priorityName"])
	}
	if task["statusName"] != "ToDo" {
		t.Errorf("statusName = %v, expected ToDo", task["statusName"])
	}

	w = s.do(t, "GET", "/api/projects/"+project.ID, adminToken, nil)
	expectStatus(t, w, http.StatusOK)
	var p map[string]interface{}
	decodeData(t, w, &p)
	if p["statusName"] != "Planning" {
		t.Errorf("project statusName = %v, expected Planning", p["statusName"])
	}
}
