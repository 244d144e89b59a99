package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/purchase-approval/internal/application/dispatcher"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/event"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

type mockPublisher struct {
	mu     sync.Mutex
	events []*event.Event
}

func (m *mockPublisher) Publish(ctx context.Context, evt *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func directory() *mockUsers {
	return &mockUsers{users: []*entity.User{
		{ID: "u-emp", Username: "alice", Email: "alice@example.com", Role: domainwf.RoleEmployee, IsActive: true},
		{ID: "u-mg", Username: "mg1", Email: "mg1@example.com", Role: domainwf.RoleMG, IsActive: true},
		{ID: "u-mg-2", Username: "mg2", Email: "mg2@example.com", Role: domainwf.RoleMG, IsActive: true},
		{ID: "u-mg-3", Username: "mg3", Email: "mg3@example.com", Role: domainwf.RoleMG, IsActive: false},
		{ID: "u-acc", Username: "acc", Email: "acc@example.com", Role: domainwf.RoleAccounting, IsActive: true},
		{ID: "u-dir", Username: "dir", Role: domainwf.RoleDirector, IsActive: true},
	}}
}

func transitionEvent(t event.Type, actor entity.Actor, from, to domainwf.Status, payload map[string]interface{}) *event.Event {
	return event.NewEvent(t, 1, payload).WithTransition(actor.ID, actor.Role, from, to)
}

func TestNotificationService_Routing(t *testing.T) {
	tests := []struct {
		name    string
		status  domainwf.Status
		evt     *event.Event
		to      []string
		subject string
	}{
		{
			name:   "submitted goes to active general services",
			status: domainwf.StatusPending,
			evt: transitionEvent(event.TypeRequestSubmitted, employee, "", domainwf.StatusPending,
				map[string]interface{}{event.KeyNextRole: "mg"}),
			to:      []string{"mg1@example.com", "mg2@example.com"},
			subject: "Purchase request #1 awaits Moyens Généraux",
		},
		{
			name:   "mg approval goes to accounting",
			status: domainwf.StatusMGApproved,
			evt: transitionEvent(event.TypeRequestApproved, mg, domainwf.StatusPending, domainwf.StatusMGApproved,
				map[string]interface{}{event.KeyNextRole: "accounting", event.KeyComment: "ok"}),
			to:      []string{"acc@example.com"},
			subject: "Purchase request #1 awaits Comptabilité",
		},
		{
			name:   "final approval goes to the requester",
			status: domainwf.StatusDirectorApproved,
			evt: transitionEvent(event.TypeRequestApproved, director, domainwf.StatusAccountingReviewed, domainwf.StatusDirectorApproved,
				nil),
			to:      []string{"alice@example.com"},
			subject: "Purchase request #1 approved",
		},
		{
			name:   "rejection goes to the requester",
			status: domainwf.StatusRejected,
			evt: transitionEvent(event.TypeRequestRejected, accounting, domainwf.StatusMGApproved, domainwf.StatusRejected,
				map[string]interface{}{event.KeyComment: "no budget"}),
			to:      []string{"alice@example.com"},
			subject: "Purchase request #1 rejected",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := &mockMailer{}
			svc := NewNotificationService(requestsByID(request(1, tt.status)), directory(), mailer, nil, nil)

			require.NoError(t, svc.HandleEvent(context.Background(), tt.evt))
			require.Len(t, mailer.sent, 1)
			assert.Equal(t, tt.to, mailer.sent[0].To)
			assert.Equal(t, tt.subject, mailer.sent[0].Subject)
		})
	}
}

func TestNotificationService_MessageBody(t *testing.T) {
	mailer := &mockMailer{}
	req := request(1, domainwf.StatusRejected)
	req.ItemDescription = "Desk <standing>"
	svc := NewNotificationService(requestsByID(req), directory(), mailer, nil, nil)

	evt := transitionEvent(event.TypeRequestRejected, accounting, domainwf.StatusMGApproved, domainwf.StatusRejected,
		map[string]interface{}{event.KeyComment: "no budget"})
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	msg := mailer.sent[0]
	assert.Contains(t, msg.Text, "rejected by Comptabilité")
	assert.Contains(t, msg.Text, "Item: Desk <standing>")
	assert.Contains(t, msg.Text, "Estimated cost: 0.00")
	assert.Contains(t, msg.Text, "Comment: no budget")
	assert.Contains(t, msg.HTML, "Desk &lt;standing&gt;")
	assert.NotContains(t, msg.HTML, "<standing>")
}

func TestNotificationService_SubmitCommentIsOmitted(t *testing.T) {
	mailer := &mockMailer{}
	svc := NewNotificationService(requestsByID(request(1, domainwf.StatusPending)), directory(), mailer, nil, nil)

	evt := transitionEvent(event.TypeRequestSubmitted, employee, "", domainwf.StatusPending,
		map[string]interface{}{event.KeyNextRole: "mg", event.KeyComment: "created"})
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	assert.NotContains(t, mailer.sent[0].Text, "Comment:")
}

func TestNotificationService_AutoValidatedSubmissionIsSkipped(t *testing.T) {
	mailer := &mockMailer{}
	svc := NewNotificationService(requestsByID(request(1, domainwf.StatusMGApproved)), directory(), mailer, nil, nil)

	evt := transitionEvent(event.TypeRequestSubmitted, mg, "", domainwf.StatusPending,
		map[string]interface{}{event.KeyNextRole: "mg", event.KeyAutoValidated: true})
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	assert.Empty(t, mailer.sent)
}

func TestNotificationService_NoRecipients(t *testing.T) {
	mailer := &mockMailer{}
	svc := NewNotificationService(requestsByID(request(1, domainwf.StatusAccountingReviewed)), directory(), mailer, nil, nil)

	// the only director has no email address
	evt := transitionEvent(event.TypeRequestApproved, accounting, domainwf.StatusMGApproved, domainwf.StatusAccountingReviewed,
		map[string]interface{}{event.KeyNextRole: "director"})
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	assert.Empty(t, mailer.sent)
}

func TestNotificationService_Errors(t *testing.T) {
	ctx := context.Background()
	evt := transitionEvent(event.TypeRequestApproved, mg, domainwf.StatusPending, domainwf.StatusMGApproved,
		map[string]interface{}{event.KeyNextRole: "accounting"})

	svc := NewNotificationService(requestsByID(), directory(), &mockMailer{}, nil, nil)
	assert.ErrorIs(t, svc.HandleEvent(ctx, evt), domainwf.ErrNotFound)

	sendErr := errors.New("connection refused")
	svc = NewNotificationService(requestsByID(request(1, domainwf.StatusMGApproved)), directory(), &mockMailer{sendErr: sendErr}, nil, nil)
	assert.ErrorIs(t, svc.HandleEvent(ctx, evt), sendErr)

	dirErr := errors.New("directory unavailable")
	svc = NewNotificationService(requestsByID(request(1, domainwf.StatusMGApproved)), &mockUsers{err: dirErr}, &mockMailer{}, nil, nil)
	assert.ErrorIs(t, svc.HandleEvent(ctx, evt), dirErr)
}

func TestNotificationService_Register(t *testing.T) {
	mailer := &mockMailer{}
	publisher := &mockPublisher{}
	svc := NewNotificationService(requestsByID(request(1, domainwf.StatusMGApproved)), directory(), mailer, publisher, nil)

	d := dispatcher.NewDispatcher()
	defer d.Close()
	svc.Register(d)

	handlers := d.ListHandlers(event.TypeRequestApproved)
	require.Len(t, handlers, 1)
	assert.Equal(t, "email-request.approved", handlers[0].Name)
	require.Len(t, d.ListHandlers(dispatcher.AllEvents), 1)

	evt := transitionEvent(event.TypeRequestApproved, mg, domainwf.StatusPending, domainwf.StatusMGApproved,
		map[string]interface{}{event.KeyNextRole: "accounting"})
	require.NoError(t, d.Dispatch(context.Background(), evt))

	assert.Len(t, mailer.sent, 1)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, evt.ID, publisher.events[0].ID)
}

func TestNotificationService_RegisterWithoutPublisher(t *testing.T) {
	svc := NewNotificationService(requestsByID(), directory(), &mockMailer{}, nil, nil)
	d := dispatcher.NewDispatcher()
	defer d.Close()
	svc.Register(d)

	assert.Empty(t, d.ListHandlers(dispatcher.AllEvents))
	assert.Len(t, d.ListHandlers(event.TypeRequestSubmitted), 1)
}
