package event

import (
	"time"

	"github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/google/uuid"
)

// Payload keys set by the transition engine
const (
	KeyComment         = "comment"
	KeyNextRole        = "next_role"
	KeyRequesterID     = "requester_id"
	KeyItemDescription = "item_description"
	// KeyAutoValidated marks a submission the creator approves immediately
	KeyAutoValidated = "auto_validated"
)

// Event represents a domain event
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	RequestID     int64                  `json:"request_id"`
	ActorID       string                 `json:"actor_id"`
	ActorRole     workflow.Role          `json:"actor_role"`
	FromStatus    workflow.Status        `json:"from_status,omitempty"`
	ToStatus      workflow.Status        `json:"to_status"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a new domain event with generated IDs and timestamp
func NewEvent(eventType Type, requestID int64, payload map[string]interface{}) *Event {
	return NewEventWithCorrelation(eventType, requestID, payload, uuid.NewString())
}

// NewEventWithCorrelation creates an event linked to a correlation chain
func NewEventWithCorrelation(eventType Type, requestID int64, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		RequestID:     requestID,
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// WithTransition returns a copy of the event describing who moved the request and where
func (e *Event) WithTransition(actorID string, role workflow.Role, from, to workflow.Status) *Event {
	c := e.copy()
	c.ActorID = actorID
	c.ActorRole = role
	c.FromStatus = from
	c.ToStatus = to
	return c
}

// WithPayload returns a new Event with an added payload key-value pair (immutable operation)
func (e *Event) WithPayload(key string, value interface{}) *Event {
	c := e.copy()
	c.Payload[key] = value
	return c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}

func (e *Event) copy() *Event {
	c := *e
	c.Payload = make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		c.Payload[k] = v
	}
	return &c
}
