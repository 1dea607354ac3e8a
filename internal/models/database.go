package models

import (
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/huangang/projecthub/internal/config"
	"github.com/huangang/projecthub/internal/utils"
	"github.com/huangang/projecthub/pkg/logger"
)

var DB *gorm.DB

// Open connects using the configured driver. Duplicate-key errors are
// translated to gorm.ErrDuplicatedKey on every dialect.
func Open(cfg *config.DatabaseConfig, mode string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	level := gormlogger.Warn
	switch mode {
	case "debug":
		level = gormlogger.Info
	case "test":
		level = gormlogger.Silent
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// sqlite serialises writers anyway; one connection keeps in-memory
		// databases alive and transactions lock-free.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// sqliteDSN turns on foreign key enforcement, which sqlite leaves off by default.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

func InitDB(cfg *config.DatabaseConfig, mode string) error {
	db, err := Open(cfg, mode)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Organization{},
		&Workspace{},
		&User{},
		&UserRole{},
		&Project{},
		&ProjectMember{},
		&Task{},
		&ProjectFile{},
		&AuditLog{},
		&RefreshToken{},
		&SchedulerLock{},
	)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedAdmin creates the bootstrap administrator when no Admin role exists yet.
func SeedAdmin(db *gorm.DB, cfg config.AdminConfig) error {
	var count int64
	if err := db.Model(&UserRole{}).Where("role = ?", SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 || cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	hash, err := utils.HashPassword(cfg.Password)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		var admin User
		err := tx.Where("email = ?", strings.ToLower(cfg.Email)).First(&admin).Error
		if err == gorm.ErrRecordNotFound {
			admin = User{
				Email:        strings.ToLower(cfg.Email),
				PasswordHash: hash,
				FirstName:    cfg.FirstName,
				LastName:     cfg.LastName,
				AuthType:     AuthTypeLocal,
			}
			if err := tx.Create(&admin).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		logger.Info().Str("email", admin.Email).Msg("seeded administrator account")
		return tx.Create(&UserRole{UserID: admin.ID, Role: SystemRoleAdmin}).Error
	})
}
