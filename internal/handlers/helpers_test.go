package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/internal/middleware"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/internal/storage"
	"github.com/huangang/projecthub/internal/utils"
)

const (
	testPassword   = "Str0ng!pass"
	testRemoteAddr = "192.0.2.1:1234"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.ConfigureJWT("test-secret-for-handler-testing", "projecthub", "projecthub-clients", time.Hour)
}

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	store  *storage.Memory
	hub    *services.AuditHub
}

type envelope struct {
	Code    int                 `json:"code"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

// newTestServer wires the full handler stack against in-memory sqlite and
// blob storage, with the same route policies as the server binary.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"}, "test")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := config.DefaultConfig()
	store := storage.NewMemory()
	uow := services.NewUnitOfWork(db, false)
	hub := services.NewAuditHub()
	audit := services.NewAuditService(uow, hub)
	users := services.NewUserService(uow)

	authH := NewAuthHandler(services.NewAuthService(uow, nil, cfg.JWT), users, false)
	userH := NewUserHandler(users)
	orgH := NewOrganizationHandler(services.NewOrganizationService(uow, audit))
	wsH := NewWorkspaceHandler(services.NewWorkspaceService(uow, audit))
	projectH := NewProjectHandler(
		services.NewProjectService(uow, audit, store),
		services.NewMembershipService(uow, audit, nil),
		services.NewAuthority(db),
	)
	taskH := NewTaskHandler(services.NewTaskService(uow, audit))
	fileH := NewFileHandler(services.NewFileService(uow, audit, store, cfg.Upload), cfg.Upload.MaxBytes())
	auditH := NewAuditHandler(audit, hub)
	healthH := NewHealthHandler(db, services.NewSyncQueue(), hub)

	r := gin.New()
	r.Use(middleware.AuditContext())
	r.GET("/health", healthH.CheckHealth)

	api := r.Group("/api")
	api.POST("/auth/register", authH.Register)
	api.POST("/auth/login", authH.Login)
	api.POST("/auth/refresh", authH.Refresh)
	api.POST("/auth/logout", authH.Logout)

	protected := api.Group("", middleware.AuthRequired())
	protected.GET("/users/me", authH.Me)

	member := protected.Group("", middleware.TeamMemberOrAbove())
	member.GET("/users", userH.List)
	member.GET("/users/:id", userH.GetByID)
	member.GET("/organizations", orgH.List)
	member.GET("/organizations/:id", orgH.GetByID)
	member.GET("/workspaces", wsH.List)
	member.GET("/projects", projectH.List)
	member.GET("/projects/:id", projectH.GetByID)
	member.GET("/projects/:id/members", projectH.ListMembers)
	member.GET("/tasks", taskH.List)
	member.GET("/tasks/project/:projectId", taskH.ListByProject)
	member.GET("/tasks/:id", taskH.GetByID)
	member.POST("/tasks", taskH.Create)
	member.PUT("/tasks/:id", taskH.Update)
	member.POST("/files/upload/:projectId", fileH.Upload)
	member.GET("/files/project/:projectId", fileH.ListByProject)
	member.GET("/files/:id/download", fileH.Download)

	manager := protected.Group("", middleware.ProjectManagerOrAdmin())
	manager.POST("/workspaces", wsH.Create)
	manager.POST("/projects", projectH.Create)
	manager.PUT("/projects/:id", projectH.Update)
	manager.POST("/projects/:id/members", projectH.AddMember)
	manager.PUT("/projects/:id/members/:userId", projectH.UpdateMemberRole)
	manager.DELETE("/projects/:id/members/:userId", projectH.RemoveMember)
	manager.DELETE("/tasks/:id", taskH.Delete)
	manager.DELETE("/files/:id", fileH.Delete)

	admin := protected.Group("", middleware.AdminOnly())
	admin.POST("/organizations", orgH.Create)
	admin.DELETE("/organizations/:id", orgH.Delete)
	admin.DELETE("/projects/:id", projectH.Delete)
	admin.GET("/audit", auditH.List)
	admin.GET("/audit/stream", auditH.Stream)

	return &testServer{router: r, db: db, store: store, hub: hub}
}

// createUser inserts a local account with testPassword and the given roles.
func (s *testServer) createUser(t *testing.T, email string, roles ...models.SystemRole) *models.User {
	t.Helper()
	hash, err := utils.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	user := models.User{Email: email, PasswordHash: hash, FirstName: "Test", LastName: "User", AuthType: models.AuthTypeLocal}
	if err := s.db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	for _, r := range roles {
		if err := s.db.Create(&models.UserRole{UserID: user.ID, Role: r}).Error; err != nil {
			t.Fatalf("assign role %s: %v", r, err)
		}
	}
	return &user
}

func (s *testServer) login(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, "POST", "/api/auth/login", "", gin.H{"email": email, "password": testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", email, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	decodeData(t, w, &resp)
	return resp.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.RemoteAddr = testRemoteAddr
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, w.Body.String())
	}
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v (body %s)", err, w.Body.String())
	}
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d (body %s)", want, w.Code, w.Body.String())
	}
}

// seedWorkspace creates an organization and workspace as an admin and
// returns the workspace id.
func (s *testServer) seedWorkspace(t *testing.T, adminToken string) string {
	t.Helper()
	w := s.do(t, "POST", "/api/organizations", adminToken, gin.H{"name": "Acme"})
	expectStatus(t, w, http.StatusCreated)
	var org models.Organization
	decodeData(t, w, &org)

	w = s.do(t, "POST", "/api/workspaces", adminToken, gin.H{"name": "Engineering", "organizationId": org.ID})
	expectStatus(t, w, http.StatusCreated)
	var ws models.Workspace
	decodeData(t, w, &ws)
	return ws.ID
}

func (s *testServer) createProject(t *testing.T, token, workspaceID, name string) models.Project {
	t.Helper()
	w := s.do(t, "POST", "/api/projects", token, gin.H{"name": name, "workspaceId": workspaceID})
	expectStatus(t, w, http.StatusCreated)
	var p models.Project
	decodeData(t, w, &p)
	return p
}
