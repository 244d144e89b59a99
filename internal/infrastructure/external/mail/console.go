package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
)

// ConsoleMailer writes messages to the log instead of delivering them
type ConsoleMailer struct {
	logger *zap.Logger
}

// NewConsoleMailer creates a log-only mailer
func NewConsoleMailer(logger *zap.Logger) *ConsoleMailer {
	return &ConsoleMailer{logger: logger}
}

// Name implements port.Mailer
func (m *ConsoleMailer) Name() string { return "console" }

// Send implements port.Mailer
func (m *ConsoleMailer) Send(ctx context.Context, msg *port.MailMessage) error {
	m.logger.Info("Email (console)",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Text))
	return nil
}

// Verify interface compliance
var _ port.Mailer = (*ConsoleMailer)(nil)
