package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/garyjia/purchase-approval/internal/application/dispatcher"
	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/event"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// NotificationService turns transition events into emails and bus messages
type NotificationService interface {
	// Register subscribes the notifier's handlers on the dispatcher
	Register(d dispatcher.Dispatcher)

	// HandleEvent emails whoever must act next, or the requester once the
	// request is finished
	HandleEvent(ctx context.Context, evt *event.Event) error
}

type notificationServiceImpl struct {
	requests  port.PurchaseRequestRepository
	users     port.UserDirectory
	mailer    port.Mailer
	publisher port.EventPublisher
	logger    Logger
}

// NewNotificationService creates a new NotificationService; publisher may be nil
func NewNotificationService(
	requests port.PurchaseRequestRepository,
	users port.UserDirectory,
	mailer port.Mailer,
	publisher port.EventPublisher,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		requests:  requests,
		users:     users,
		mailer:    mailer,
		publisher: publisher,
		logger:    orNop(logger),
	}
}

// Register implements NotificationService
func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	for _, t := range []event.Type{event.TypeRequestSubmitted, event.TypeRequestApproved, event.TypeRequestRejected} {
		d.SubscribeNamed(t, "email-"+string(t), s.HandleEvent)
	}
	if s.publisher != nil {
		d.SubscribeNamed(dispatcher.AllEvents, "bus-publisher", s.publisher.Publish)
	}
}

// HandleEvent implements NotificationService
func (s *notificationServiceImpl) HandleEvent(ctx context.Context, evt *event.Event) error {
	// The creator already approved it; the approval event notifies the next stage
	if evt.Type == event.TypeRequestSubmitted && evt.GetPayloadBool(event.KeyAutoValidated) {
		return nil
	}

	req, err := s.requests.GetByID(ctx, evt.RequestID)
	if err != nil {
		return fmt.Errorf("load request %d: %w", evt.RequestID, err)
	}
	if req == nil {
		return fmt.Errorf("%w: purchase request %d", domainwf.ErrNotFound, evt.RequestID)
	}

	recipients, err := s.recipients(ctx, evt, req)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		s.logger.Info("No recipients for notification", "request_id", evt.RequestID, "event_type", evt.Type)
		return nil
	}

	msg := buildMessage(evt, req, recipients)
	if err := s.mailer.Send(ctx, msg); err != nil {
		s.logger.Error("Failed to send notification",
			"request_id", evt.RequestID,
			"event_type", evt.Type,
			"provider", s.mailer.Name(),
			"error", err)
		return fmt.Errorf("send notification: %w", err)
	}

	s.logger.Info("Notification sent",
		"request_id", evt.RequestID,
		"event_type", evt.Type,
		"recipients", len(msg.To),
		"provider", s.mailer.Name())
	return nil
}

// recipients picks the next role's active users, or the requester on a terminal status
func (s *notificationServiceImpl) recipients(ctx context.Context, evt *event.Event, req *entity.PurchaseRequest) ([]string, error) {
	if evt.ToStatus.IsTerminal() {
		user, err := s.users.GetByID(ctx, req.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("load requester %s: %w", req.RequesterID, err)
		}
		if user == nil || user.Email == "" {
			return nil, nil
		}
		return []string{user.Email}, nil
	}

	role := domainwf.Role(evt.GetPayloadString(event.KeyNextRole))
	if !role.IsValid() {
		return nil, nil
	}
	users, err := s.users.ListByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("list %s users: %w", role, err)
	}

	var emails []string
	for _, u := range users {
		if u.Email != "" {
			emails = append(emails, u.Email)
		}
	}
	return emails, nil
}

func buildMessage(evt *event.Event, req *entity.PurchaseRequest, to []string) *port.MailMessage {
	var subject, lead string
	switch evt.ToStatus {
	case domainwf.StatusDirectorApproved:
		subject = fmt.Sprintf("Purchase request #%d approved", req.ID)
		lead = "Your purchase request has been approved by the direction."
	case domainwf.StatusRejected:
		subject = fmt.Sprintf("Purchase request #%d rejected", req.ID)
		lead = fmt.Sprintf("Your purchase request was rejected by %s.", evt.ActorRole.Label())
	default:
		role := domainwf.Role(evt.GetPayloadString(event.KeyNextRole))
		subject = fmt.Sprintf("Purchase request #%d awaits %s", req.ID, role.Label())
		lead = "A purchase request is waiting for your review."
	}

	lines := []string{
		lead,
		"",
		"Item: " + req.ItemDescription,
		fmt.Sprintf("Quantity: %d", req.Quantity),
		"Estimated cost: " + req.EstimatedCost.StringFixed(2),
		"Urgency: " + string(req.Urgency),
		"Department: " + req.Department,
	}
	if comment := evt.GetPayloadString(event.KeyComment); comment != "" && evt.ToStatus != domainwf.StatusPending {
		lines = append(lines, "Comment: "+comment)
	}

	var body strings.Builder
	body.WriteString("<p>" + html.EscapeString(lead) + "</p><ul>")
	for _, line := range lines[2:] {
		body.WriteString("<li>" + html.EscapeString(line) + "</li>")
	}
	body.WriteString("</ul>")

	return &port.MailMessage{
		To:      to,
		Subject: subject,
		Text:    strings.Join(lines, "\n"),
		HTML:    body.String(),
	}
}
