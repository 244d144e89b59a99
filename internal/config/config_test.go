package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
database:
  path: /tmp/purchase-test.db
email:
  provider: console
analytics:
  months: 3
users:
  - id: u-mg-1
    username: mgarnier
    email: mg@example.com
    full_name: Marie Garnier
    role: mg
  - id: u-acc-1
    username: compta
    email: compta@example.com
    role: accounting
    department: Finance
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/tmp/purchase-test.db", cfg.Database.Path)
	assert.Equal(t, "test-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, "purchase-approval", cfg.Auth.Issuer)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, 3, cfg.Analytics.Months)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxUploadBytes)

	require.Len(t, cfg.Users, 2)
	assert.Equal(t, "mg", cfg.Users[0].Role)
	assert.Equal(t, "Marie Garnier", cfg.Users[0].FullName)
	assert.Equal(t, "Finance", cfg.Users[1].Department)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load(writeConfig(t, sampleYAML))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auth.jwt_secret")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidateEmailProvider(t *testing.T) {
	base := func() Config {
		return Config{
			Auth:     AuthConfig{JWTSecret: "s"},
			Database: DatabaseConfig{Path: "x.db"},
			Email:    EmailConfig{Provider: "console"},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Email.Provider = "smtp"
	assert.ErrorContains(t, cfg.Validate(), "smtp_host")

	cfg.Email.SMTPHost = "mail.example.com"
	assert.ErrorContains(t, cfg.Validate(), "email.from")

	cfg.Email.From = "noreply@example.com"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Email.Provider = "pigeon"
	assert.ErrorContains(t, cfg.Validate(), "pigeon")

	cfg = base()
	cfg.Telemetry.SampleRatio = 1.5
	assert.ErrorContains(t, cfg.Validate(), "sample_ratio")
}

func TestToContainerConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	cc := cfg.ToContainerConfig()
	require.NoError(t, cc.Validate())
	assert.Equal(t, cfg.Database.Path, cc.Database.Path)
	assert.Equal(t, cfg.Auth.JWTSecret, cc.Auth.JWTSecret)
	assert.Equal(t, cfg.Storage.AttachmentDir, cc.Storage.AttachmentDir)
	require.Len(t, cc.SeedUsers, 2)
	assert.Equal(t, "u-acc-1", cc.SeedUsers[1].ID)
	assert.Equal(t, "accounting", cc.SeedUsers[1].Role)
}
