package config

import (
	"github.com/garyjia/purchase-approval/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	seeds := make([]container.SeedUser, 0, len(c.Users))
	for _, u := range c.Users {
		seeds = append(seeds, container.SeedUser{
			ID:         u.ID,
			Username:   u.Username,
			Email:      u.Email,
			FullName:   u.FullName,
			Role:       u.Role,
			Department: u.Department,
		})
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
		},
		Email: container.EmailConfig{
			Provider:     c.Email.Provider,
			SMTPHost:     c.Email.SMTPHost,
			SMTPPort:     c.Email.SMTPPort,
			SMTPUsername: c.Email.SMTPUsername,
			SMTPPassword: c.Email.SMTPPassword,
			SMTPTLS:      c.Email.SMTPTLS,
			From:         c.Email.From,
			FromName:     c.Email.FromName,
			Timeout:      c.Email.Timeout,
		},
		NATS: container.NATSConfig{
			URL:           c.NATS.URL,
			Name:          c.NATS.Name,
			MaxReconnects: c.NATS.MaxReconnects,
			ReconnectWait: c.NATS.ReconnectWait,
			FlushTimeout:  c.NATS.FlushTimeout,
		},
		Storage: container.StorageConfig{
			AttachmentDir:  c.Storage.AttachmentDir,
			MaxUploadBytes: c.Storage.MaxUploadBytes,
		},
		Telemetry: container.TelemetryConfig{
			Enabled:     c.Telemetry.Enabled,
			Endpoint:    c.Telemetry.Endpoint,
			ServiceName: c.Telemetry.ServiceName,
			SampleRatio: c.Telemetry.SampleRatio,
		},
		Analytics: container.AnalyticsConfig{
			Months: c.Analytics.Months,
		},
		SeedUsers: seeds,
	}
}
