package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomail "github.com/wneessen/go-mail"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/garyjia/purchase-approval/internal/application/port"
)

func TestNewMailer_Selection(t *testing.T) {
	logger := zap.NewNop()

	assert.Equal(t, "console", NewMailer("", SMTPConfig{}, logger).Name())
	assert.Equal(t, "console", NewMailer("console", SMTPConfig{}, logger).Name())
	assert.Equal(t, "smtp", NewMailer("smtp", SMTPConfig{Host: "localhost", Port: 2525, From: "noreply@example.com"}, logger).Name())
	assert.Equal(t, "smtp", NewMailer("Gmail", SMTPConfig{Host: "smtp.gmail.com", Port: 587, From: "noreply@example.com"}, logger).Name())
}

func TestNewMailer_FallsBackWithWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	m := NewMailer("smtp", SMTPConfig{From: "noreply@example.com"}, logger)
	assert.Equal(t, "console", m.Name())
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "falling back")

	m = NewMailer("carrier-pigeon", SMTPConfig{}, logger)
	assert.Equal(t, "console", m.Name())
	assert.Equal(t, 2, logs.Len())
}

func TestConsoleMailer_LogsMessage(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewConsoleMailer(zap.New(core))

	err := m.Send(context.Background(), &port.MailMessage{
		To:      []string{"acc@example.com"},
		Subject: "Purchase request #4 awaits review",
		Text:    "Laptop",
	})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "Purchase request #4 awaits review", logs.All()[0].ContextMap()["subject"])
}

func TestSMTPMailer_BuildMessage(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "localhost", From: "noreply@example.com", TLS: "none"}, zap.NewNop())
	require.NoError(t, err)

	_, err = m.buildMessage(&port.MailMessage{Subject: "x"})
	assert.Error(t, err)

	_, err = m.buildMessage(&port.MailMessage{To: []string{"not an address"}, Subject: "x"})
	assert.Error(t, err)

	msg, err := m.buildMessage(&port.MailMessage{
		To:      []string{"dir@example.com"},
		Subject: "Approved",
		Text:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Approved"}, msg.GetGenHeader(gomail.HeaderSubject))
}

func TestTLSPolicy(t *testing.T) {
	assert.Equal(t, gomail.NoTLS, tlsPolicy("none"))
	assert.Equal(t, gomail.TLSMandatory, tlsPolicy("mandatory"))
	assert.Equal(t, gomail.TLSOpportunistic, tlsPolicy(""))
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, "Request #3 approved by Direction", StripTags("<p>Request <b>#3</b>\n  approved by   Direction</p>"))
	assert.Equal(t, "", StripTags(""))
}
