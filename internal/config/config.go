package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Email     EmailConfig     `mapstructure:"email"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Users     []UserConfig    `mapstructure:"users"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AuthConfig holds API token settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// EmailConfig holds notification mail configuration
type EmailConfig struct {
	Provider     string        `mapstructure:"provider"` // smtp, gmail or console
	SMTPHost     string        `mapstructure:"smtp_host"`
	SMTPPort     int           `mapstructure:"smtp_port"`
	SMTPUsername string        `mapstructure:"smtp_username"`
	SMTPPassword string        `mapstructure:"smtp_password"`
	SMTPTLS      string        `mapstructure:"smtp_tls"`
	From         string        `mapstructure:"from"`
	FromName     string        `mapstructure:"from_name"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// NATSConfig holds event bus configuration
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
	FlushTimeout  time.Duration `mapstructure:"flush_timeout"`
}

// StorageConfig holds attachment storage configuration
type StorageConfig struct {
	AttachmentDir  string `mapstructure:"attachment_dir"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// TelemetryConfig holds tracing configuration
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// AnalyticsConfig holds dashboard configuration
type AnalyticsConfig struct {
	Months int `mapstructure:"months"`
}

// UserConfig is a directory entry seeded at startup
type UserConfig struct {
	ID         string `mapstructure:"id"`
	Username   string `mapstructure:"username"`
	Email      string `mapstructure:"email"`
	FullName   string `mapstructure:"full_name"`
	Role       string `mapstructure:"role"`
	Department string `mapstructure:"department"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/purchase.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	v.SetDefault("auth.issuer", "purchase-approval")

	// Email defaults
	v.SetDefault("email.provider", "console")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.smtp_tls", "opportunistic")
	v.SetDefault("email.from_name", "Purchase Approval")
	v.SetDefault("email.timeout", 15*time.Second)

	// NATS defaults
	v.SetDefault("nats.name", "purchase-approval")
	v.SetDefault("nats.max_reconnects", 60)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("nats.flush_timeout", time.Second)

	v.SetDefault("storage.attachment_dir", "data/attachments")
	v.SetDefault("storage.max_upload_bytes", 10<<20)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "purchase-approval")
	v.SetDefault("telemetry.sample_ratio", 1.0)

	v.SetDefault("analytics.months", 6)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	// Sensitive credentials from environment
	bindings := map[string]string{
		"auth.jwt_secret":     "JWT_SECRET",
		"email.smtp_username": "SMTP_USERNAME",
		"email.smtp_password": "SMTP_PASSWORD",
		"email.smtp_host":     "SMTP_HOST",
		"nats.url":            "NATS_URL",
		"telemetry.endpoint":  "OTEL_EXPORTER_OTLP_ENDPOINT",
		"database.path":       "DATABASE_PATH",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Email.Provider {
	case "console":
	case "smtp", "gmail":
		if c.Email.SMTPHost == "" && c.Email.Provider == "smtp" {
			return fmt.Errorf("email.smtp_host is required for the smtp provider")
		}
		if c.Email.From == "" {
			return fmt.Errorf("email.from is required")
		}
	default:
		return fmt.Errorf("unknown email.provider %q", c.Email.Provider)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}

	return nil
}
