package port

import (
	"context"

	"github.com/garyjia/purchase-approval/internal/domain/event"
)

// MailMessage is a single outgoing email
type MailMessage struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer delivers email
type Mailer interface {
	Send(ctx context.Context, msg *MailMessage) error
	Name() string
}

// EventPublisher forwards domain events to an external bus
type EventPublisher interface {
	Publish(ctx context.Context, evt *event.Event) error
}
