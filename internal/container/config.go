// Package container wires the purchase approval components together and
// owns their lifecycle: ordered initialization, health and reverse-order teardown.
package container

import (
	"fmt"
	"time"

	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/garyjia/purchase-approval/pkg/utils"
)

// Config holds all configuration for the Container.
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Email     EmailConfig
	NATS      NATSConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
	Analytics AnalyticsConfig

	// SeedUsers are upserted into the directory at startup
	SeedUsers []SeedUser
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	// JWTSecret is the HS256 signing key
	JWTSecret string

	// Issuer, when set, must match the token's iss claim
	Issuer string
}

// EmailConfig selects and configures the notification mail provider.
type EmailConfig struct {
	// Provider is "smtp", "gmail" or "console"
	Provider string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPTLS      string
	From         string
	FromName     string
	Timeout      time.Duration
}

// NATSConfig holds event bus settings. An empty URL disables publishing.
type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	FlushTimeout  time.Duration
}

// StorageConfig holds attachment storage settings.
type StorageConfig struct {
	// AttachmentDir is the base directory for uploaded files
	AttachmentDir string

	// MaxUploadBytes caps a single upload
	MaxUploadBytes int64
}

// TelemetryConfig holds tracing settings.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

// AnalyticsConfig holds dashboard settings.
type AnalyticsConfig struct {
	// Months of monthly statistics on the dashboard
	Months int
}

// SeedUser is a directory entry provisioned from configuration
type SeedUser struct {
	ID         string
	Username   string
	Email      string
	FullName   string
	Role       string
	Department string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/purchase.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Issuer: "purchase-approval",
		},
		Email: EmailConfig{
			Provider: "console",
			SMTPPort: 587,
			SMTPTLS:  "opportunistic",
			FromName: "Purchase Approval",
			Timeout:  15 * time.Second,
		},
		NATS: NATSConfig{
			Name:          "purchase-approval",
			MaxReconnects: 60,
			ReconnectWait: 2 * time.Second,
			FlushTimeout:  time.Second,
		},
		Storage: StorageConfig{
			AttachmentDir:  "data/attachments",
			MaxUploadBytes: 10 << 20,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "purchase-approval",
			SampleRatio: 1,
		},
		Analytics: AnalyticsConfig{
			Months: 6,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Storage.AttachmentDir == "" {
		return fmt.Errorf("storage.attachment_dir is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	for i, u := range c.SeedUsers {
		if u.ID == "" || u.Username == "" {
			return fmt.Errorf("users[%d]: id and username are required", i)
		}
		if !domainwf.Role(u.Role).IsValid() {
			return fmt.Errorf("users[%d]: unknown role %q", i, u.Role)
		}
		if u.Email != "" {
			if err := utils.ValidateEmail(u.Email); err != nil {
				return fmt.Errorf("users[%d]: %w", i, err)
			}
		}
	}

	return nil
}
