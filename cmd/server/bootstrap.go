package main

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/internal/handlers"
	"github.com/huangang/projecthub/internal/metrics"
	"github.com/huangang/projecthub/internal/models"
	"github.com/huangang/projecthub/internal/services"
	"github.com/huangang/projecthub/internal/storage"
	"github.com/huangang/projecthub/internal/utils"
	"github.com/huangang/projecthub/pkg/logger"
)

// appServices holds everything main needs to serve requests and shut down.
type appServices struct {
	db        *gorm.DB
	hub       *services.AuditHub
	taskQueue services.TaskQueue
	worker    *services.Worker
	janitor   *services.StorageJanitor

	authHandler         *handlers.AuthHandler
	userHandler         *handlers.UserHandler
	organizationHandler *handlers.OrganizationHandler
	workspaceHandler    *handlers.WorkspaceHandler
	projectHandler      *handlers.ProjectHandler
	taskHandler         *handlers.TaskHandler
	fileHandler         *handlers.FileHandler
	auditHandler        *handlers.AuditHandler
	healthHandler       *handlers.HealthHandler
}

// bootstrap initializes the database, storage, queue and services.
func bootstrap(cfg *config.Config) *appServices {
	utils.ConfigureJWT(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience, time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)

	if err := models.InitDB(&cfg.Database, cfg.Server.Mode); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	db := models.GetDB()

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedAdmin(db, cfg.Admin); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed admin user")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	uow := services.NewUnitOfWork(db, cfg.Audit.Transactional())
	hub := services.NewAuditHub()
	audit := services.NewAuditService(uow, hub)
	authority := services.NewAuthority(db)

	// Notifications: sync goroutine by default, asynq worker when Redis is on
	mailer := services.NewEmailService(cfg.Email)
	taskQueue := services.InitTaskQueue(cfg)
	notifications := services.NewNotificationService(uow, taskQueue, mailer)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(notifications.Process)
	}
	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(notifications.Process)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start task worker")
			}
		}
	}

	var directory services.DirectoryAuthenticator
	if cfg.LDAP.Enabled {
		directory = services.NewLDAPService(cfg.LDAP)
	}

	janitor := services.NewStorageJanitor(uow, store, cfg.Storage.JanitorCron)
	if err := janitor.Start(); err != nil {
		logger.Error().Err(err).Str("cron", cfg.Storage.JanitorCron).Msg("Storage janitor not started")
	}

	metrics.RegisterGauge("sse_clients", "Connected audit stream clients.", func() float64 {
		return float64(hub.ClientCount())
	})
	metrics.RegisterGauge("db_open_connections", "Open database connections.", func() float64 {
		sqlDB, err := db.DB()
		if err != nil {
			return 0
		}
		return float64(sqlDB.Stats().OpenConnections)
	})

	orgs := services.NewOrganizationService(uow, audit)
	workspaces := services.NewWorkspaceService(uow, audit)
	projects := services.NewProjectService(uow, audit, store)
	members := services.NewMembershipService(uow, audit, notifications)
	tasks := services.NewTaskService(uow, audit)
	files := services.NewFileService(uow, audit, store, cfg.Upload)
	users := services.NewUserService(uow)
	auth := services.NewAuthService(uow, directory, cfg.JWT)

	return &appServices{
		db:        db,
		hub:       hub,
		taskQueue: taskQueue,
		worker:    worker,
		janitor:   janitor,

		authHandler:         handlers.NewAuthHandler(auth, users, cfg.LDAP.Enabled),
		userHandler:         handlers.NewUserHandler(users),
		organizationHandler: handlers.NewOrganizationHandler(orgs),
		workspaceHandler:    handlers.NewWorkspaceHandler(workspaces),
		projectHandler:      handlers.NewProjectHandler(projects, members, authority),
		taskHandler:         handlers.NewTaskHandler(tasks),
		fileHandler:         handlers.NewFileHandler(files, cfg.Upload.MaxBytes()),
		auditHandler:        handlers.NewAuditHandler(audit, hub),
		healthHandler:       handlers.NewHealthHandler(db, taskQueue, hub),
	}
}

// shutdown stops background work and closes the database.
func (s *appServices) shutdown() {
	s.janitor.Stop()
	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
	logger.Info().Msg("Background services stopped")
}
