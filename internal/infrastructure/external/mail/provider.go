package mail

import (
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
)

const (
	ProviderSMTP    = "smtp"
	ProviderGmail   = "gmail" // SMTP with Gmail settings
	ProviderConsole = "console"
)

// NewMailer selects the configured provider. Anything unusable falls back
// to the console mailer so notifications never block startup.
func NewMailer(provider string, smtp SMTPConfig, logger *zap.Logger) port.Mailer {
	switch strings.ToLower(provider) {
	case ProviderSMTP, ProviderGmail:
		m, err := NewSMTPMailer(smtp, logger)
		if err == nil {
			return m
		}
		logger.Warn("SMTP mailer unavailable, falling back to console", zap.Error(err))
	case ProviderConsole, "":
	default:
		logger.Warn("Unknown email provider, falling back to console", zap.String("provider", provider))
	}
	return NewConsoleMailer(logger)
}
