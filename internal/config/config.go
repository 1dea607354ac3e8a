package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Admin    AdminConfig    `yaml:"admin"`
	CORS     CORSConfig     `yaml:"cors"`
	Upload   UploadConfig   `yaml:"upload"`
	Storage  StorageConfig  `yaml:"storage"`
	Audit    AuditConfig    `yaml:"audit"`
	LDAP     LDAPConfig     `yaml:"ldap"`
	Redis    RedisConfig    `yaml:"redis"`
	Email    EmailConfig    `yaml:"email"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret             string `yaml:"secret"`
	Issuer             string `yaml:"issuer"`
	Audience           string `yaml:"audience"`
	ExpireMinutes      int    `yaml:"expire_minutes"`
	RefreshExpireHours int    `yaml:"refresh_expire_hours"`
}

// AdminConfig is the account seeded on first start when no Admin exists.
type AdminConfig struct {
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type UploadConfig struct {
	MaxSizeMB         int64    `yaml:"max_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// MaxBytes returns the upload size cap in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return u.MaxSizeMB * 1024 * 1024
}

type StorageConfig struct {
	Driver      string      `yaml:"driver"` // local, minio
	LocalDir    string      `yaml:"local_dir"`
	JanitorCron string      `yaml:"janitor_cron"`
	Minio       MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

const (
	AuditModeBestEffort    = "best_effort"
	AuditModeTransactional = "transactional"
)

type AuditConfig struct {
	// Mode is best_effort or transactional.
	Mode string `yaml:"mode"`
}

// Transactional reports whether mutations and their audit rows share one transaction.
func (a AuditConfig) Transactional() bool {
	return a.Mode == AuditModeTransactional
}

type LDAPConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	BaseDN       string `yaml:"base_dn"`
	BindDN       string `yaml:"bind_dn"`
	BindPassword string `yaml:"bind_password"`
	UserFilter   string `yaml:"user_filter"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// RedisConfig for optional async task queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type EmailConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	UseTLS   bool   `yaml:"use_tls"`
}

var GlobalConfig *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.overrideFromEnv()
	GlobalConfig = cfg
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: "8080",
			Mode: "debug",
		},
		Log: LogConfig{Level: "info"},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "projecthub.db",
		},
		JWT: JWTConfig{
			Secret:             "projecthub-secret-key-change-in-production",
			Issuer:             "projecthub",
			Audience:           "projecthub-clients",
			ExpireMinutes:      60,
			RefreshExpireHours: 720,
		},
		Admin: AdminConfig{
			Email:     "admin@projecthub.local",
			Password:  "Admin@123",
			FirstName: "System",
			LastName:  "Administrator",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Upload: UploadConfig{
			MaxSizeMB:         10,
			AllowedExtensions: []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt", ".jpg", ".jpeg", ".png", ".gif"},
		},
		Storage: StorageConfig{
			Driver:      "local",
			LocalDir:    "uploads",
			JanitorCron: "0 * * * *",
			Minio: MinioConfig{
				Bucket: "projecthub",
			},
		},
		Audit: AuditConfig{Mode: AuditModeBestEffort},
		LDAP: LDAPConfig{
			Enabled:    false,
			Port:       389,
			UserFilter: "(mail=%s)",
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Email: EmailConfig{
			Enabled: false,
			Port:    587,
			From:    "noreply@projecthub.local",
		},
	}
}

func (c *Config) overrideFromEnv() {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		c.Server.Port = port
	}
	if mode := os.Getenv("SERVER_MODE"); mode != "" {
		c.Server.Mode = mode
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		c.Database.DSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		c.JWT.Secret = secret
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		c.CORS.AllowedOrigins = splitList(origins)
	}
	if driver := os.Getenv("STORAGE_DRIVER"); driver != "" {
		c.Storage.Driver = driver
	}
	if endpoint := os.Getenv("MINIO_ENDPOINT"); endpoint != "" {
		c.Storage.Minio.Endpoint = endpoint
	}
	if key := os.Getenv("MINIO_ACCESS_KEY"); key != "" {
		c.Storage.Minio.AccessKey = key
	}
	if secret := os.Getenv("MINIO_SECRET_KEY"); secret != "" {
		c.Storage.Minio.SecretKey = secret
	}
	if bucket := os.Getenv("MINIO_BUCKET"); bucket != "" {
		c.Storage.Minio.Bucket = bucket
	}
	if mode := os.Getenv("AUDIT_MODE"); mode != "" {
		c.Audit.Mode = mode
	}
	if host := os.Getenv("SMTP_HOST"); host != "" {
		c.Email.Enabled = true
		c.Email.Host = host
	}
	if port := os.Getenv("SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Email.Port = p
		}
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		c.Email.Username = user
	}
	if pass := os.Getenv("SMTP_PASSWORD"); pass != "" {
		c.Email.Password = pass
	}
	// Redis URL override (format: redis://:password@host:port/db)
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.Enabled = true
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.Index(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	c.Redis.Addr = url
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
