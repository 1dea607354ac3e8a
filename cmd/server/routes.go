package main

import (
	"github.com/gin-gonic/gin"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/internal/metrics"
	"github.com/huangang/projecthub/internal/middleware"
	"github.com/huangang/projecthub/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices, authLimiter *middleware.RateLimiter) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.AuditContext())
	r.Use(metrics.Middleware())

	r.GET("/health", svc.healthHandler.CheckHealth)
	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", svc.authHandler.Register)
			auth.POST("/login", svc.authHandler.Login)
			auth.POST("/refresh", svc.authHandler.Refresh)
			auth.POST("/logout", svc.authHandler.Logout)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/auth/me", svc.authHandler.Me)
			protected.GET("/users/me", svc.authHandler.Me)
		}

		member := protected.Group("", middleware.TeamMemberOrAbove())
		{
			// Users
			member.GET("/users", svc.userHandler.List)
			member.GET("/users/:id", svc.userHandler.GetByID)

			// Organizations
			member.GET("/organizations", svc.organizationHandler.List)
			member.GET("/organizations/:id", svc.organizationHandler.GetByID)

			// Workspaces
			member.GET("/workspaces", svc.workspaceHandler.List)
			member.GET("/workspaces/:id", svc.workspaceHandler.GetByID)

			// Projects
			member.GET("/projects", svc.projectHandler.List)
			member.GET("/projects/:id", svc.projectHandler.GetByID)
			member.GET("/projects/:id/members", svc.projectHandler.ListMembers)

			// Tasks
			member.GET("/tasks", svc.taskHandler.List)
			member.GET("/tasks/project/:projectId", svc.taskHandler.ListByProject)
			member.GET("/tasks/:id", svc.taskHandler.GetByID)
			member.POST("/tasks", svc.taskHandler.Create)
			member.PUT("/tasks/:id", svc.taskHandler.Update)

			// Files
			member.POST("/files/upload/:projectId", svc.fileHandler.Upload)
			member.GET("/files/project/:projectId", svc.fileHandler.ListByProject)
			member.GET("/files/:id", svc.fileHandler.GetByID)
			member.GET("/files/:id/download", svc.fileHandler.Download)
		}

		manager := protected.Group("", middleware.ProjectManagerOrAdmin())
		{
			manager.POST("/workspaces", svc.workspaceHandler.Create)
			manager.PUT("/workspaces/:id", svc.workspaceHandler.Update)

			manager.POST("/projects", svc.projectHandler.Create)
			manager.PUT("/projects/:id", svc.projectHandler.Update)

			// Roster changes additionally require CanManageMembers on the project
			manager.POST("/projects/:id/members", svc.projectHandler.AddMember)
			manager.PUT("/projects/:id/members/:userId", svc.projectHandler.UpdateMemberRole)
			manager.DELETE("/projects/:id/members/:userId", svc.projectHandler.RemoveMember)

			manager.DELETE("/tasks/:id", svc.taskHandler.Delete)
			manager.DELETE("/files/:id", svc.fileHandler.Delete)
		}

		admin := protected.Group("", middleware.AdminOnly())
		{
			admin.POST("/organizations", svc.organizationHandler.Create)
			admin.PUT("/organizations/:id", svc.organizationHandler.Update)
			admin.DELETE("/organizations/:id", svc.organizationHandler.Delete)

			admin.DELETE("/workspaces/:id", svc.workspaceHandler.Delete)
			admin.DELETE("/projects/:id", svc.projectHandler.Delete)

			// Audit trail
			admin.GET("/audit", svc.auditHandler.List)
			admin.GET("/audit/stream", svc.auditHandler.Stream)
		}
	}
}
