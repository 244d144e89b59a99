package mail

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
)

// SMTPConfig holds SMTP delivery settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	// TLS is one of "mandatory", "opportunistic" or "none"
	TLS     string
	Timeout time.Duration
}

// SMTPMailer delivers messages through an SMTP relay
type SMTPMailer struct {
	cfg    SMTPConfig
	client *gomail.Client
	logger *zap.Logger
}

// NewSMTPMailer builds the client; no connection is opened until Send
func NewSMTPMailer(cfg SMTPConfig, logger *zap.Logger) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}

	opts := []gomail.Option{
		gomail.WithTLSPolicy(tlsPolicy(cfg.TLS)),
	}
	if cfg.Port > 0 {
		opts = append(opts, gomail.WithPort(cfg.Port))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, gomail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	return &SMTPMailer{
		cfg:    cfg,
		client: client,
		logger: logger,
	}, nil
}

func tlsPolicy(name string) gomail.TLSPolicy {
	switch name {
	case "none":
		return gomail.NoTLS
	case "mandatory":
		return gomail.TLSMandatory
	default:
		return gomail.TLSOpportunistic
	}
}

// Name implements port.Mailer
func (m *SMTPMailer) Name() string { return "smtp" }

// Send implements port.Mailer
func (m *SMTPMailer) Send(ctx context.Context, msg *port.MailMessage) error {
	envelope, err := m.buildMessage(msg)
	if err != nil {
		return err
	}

	if err := m.client.DialAndSendWithContext(ctx, envelope); err != nil {
		m.logger.Error("Failed to send email",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("Email sent",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

func (m *SMTPMailer) buildMessage(msg *port.MailMessage) (*gomail.Msg, error) {
	if len(msg.To) == 0 {
		return nil, errors.New("email has no recipients")
	}

	envelope := gomail.NewMsg()
	if err := envelope.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := envelope.ReplyTo(m.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid reply-to address: %w", err)
	}
	if err := envelope.To(msg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	envelope.Subject(msg.Subject)
	text := msg.Text
	if text == "" {
		text = StripTags(msg.HTML)
	}
	envelope.SetBodyString(gomail.TypeTextPlain, text)
	if msg.HTML != "" {
		envelope.AddAlternativeString(gomail.TypeTextHTML, msg.HTML)
	}
	return envelope, nil
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// StripTags derives a plain-text body from HTML
func StripTags(html string) string {
	text := tagPattern.ReplaceAllString(html, "")
	return strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))
}

// Verify interface compliance
var _ port.Mailer = (*SMTPMailer)(nil)
