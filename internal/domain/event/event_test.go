package event

import (
	"testing"
	"time"

	"github.com/garyjia/purchase-approval/internal/domain/workflow"
)

func TestType_IsValid(t *testing.T) {
	tests := []struct {
		name      string
		eventType Type
		want      bool
	}{
		{"submitted", TypeRequestSubmitted, true},
		{"approved", TypeRequestApproved, true},
		{"rejected", TypeRequestRejected, true},
		{"unknown", Type("instance.created"), false},
		{"empty", Type(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.eventType.IsValid(); got != tt.want {
				t.Errorf("Type.IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		status workflow.Status
		want   Type
	}{
		{workflow.StatusPending, TypeRequestSubmitted},
		{workflow.StatusMGApproved, TypeRequestApproved},
		{workflow.StatusAccountingReviewed, TypeRequestApproved},
		{workflow.StatusDirectorApproved, TypeRequestApproved},
		{workflow.StatusRejected, TypeRequestRejected},
	}

	for _, tt := range tests {
		if got := TypeForStatus(tt.status); got != tt.want {
			t.Errorf("TypeForStatus(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(TypeRequestApproved, 123, map[string]interface{}{KeyComment: "ok"})

	if event.ID == "" {
		t.Error("Event ID should not be empty")
	}
	if event.Type != TypeRequestApproved {
		t.Errorf("Event Type = %v, want %v", event.Type, TypeRequestApproved)
	}
	if event.RequestID != 123 {
		t.Errorf("Event RequestID = %v, want %v", event.RequestID, 123)
	}
	if event.GetPayloadString(KeyComment) != "ok" {
		t.Errorf("Event Payload[comment] = %v, want ok", event.Payload[KeyComment])
	}
	if event.CorrelationID == "" || event.CorrelationID == event.ID {
		t.Error("Event CorrelationID should be set and distinct from ID")
	}
	if time.Since(event.Timestamp) > time.Second {
		t.Error("Event Timestamp should be recent")
	}
}

func TestNewEvent_NilPayload(t *testing.T) {
	event := NewEvent(TypeRequestSubmitted, 1, nil)
	if event.Payload == nil {
		t.Fatal("Event Payload should be initialized")
	}
}

func TestNewEventWithCorrelation(t *testing.T) {
	event := NewEventWithCorrelation(TypeRequestRejected, 789, nil, "corr-123")

	if event.CorrelationID != "corr-123" {
		t.Errorf("Event CorrelationID = %v, want %v", event.CorrelationID, "corr-123")
	}
}

func TestEvent_WithTransition(t *testing.T) {
	original := NewEvent(TypeRequestApproved, 1, nil)
	moved := original.WithTransition("u-mg", workflow.RoleMG, workflow.StatusPending, workflow.StatusMGApproved)

	if original.ActorID != "" || original.ToStatus != "" {
		t.Error("Original event should not be modified")
	}
	if moved.ActorID != "u-mg" || moved.ActorRole != workflow.RoleMG {
		t.Errorf("actor = %s/%s", moved.ActorID, moved.ActorRole)
	}
	if moved.FromStatus != workflow.StatusPending || moved.ToStatus != workflow.StatusMGApproved {
		t.Errorf("transition = %s -> %s", moved.FromStatus, moved.ToStatus)
	}
	if moved.ID != original.ID {
		t.Error("Modified event should have same ID")
	}
}

func TestEvent_WithPayload(t *testing.T) {
	original := NewEvent(TypeRequestSubmitted, 1, map[string]interface{}{"key1": "value1"})
	modified := original.WithPayload("key2", "value2")

	if _, exists := original.Payload["key2"]; exists {
		t.Error("Original event should not be modified")
	}
	if modified.Payload["key1"] != "value1" || modified.Payload["key2"] != "value2" {
		t.Errorf("Modified payload = %v", modified.Payload)
	}
	if modified.CorrelationID != original.CorrelationID {
		t.Error("Modified event should have same CorrelationID")
	}
}

func TestEvent_GetPayloadBool(t *testing.T) {
	event := NewEvent(TypeRequestSubmitted, 1, map[string]interface{}{
		"yes":    true,
		"string": "true",
	})

	if !event.GetPayloadBool("yes") {
		t.Error("GetPayloadBool(yes) = false, want true")
	}
	if event.GetPayloadBool("string") {
		t.Error("GetPayloadBool(string) = true, want false")
	}
	if event.GetPayloadBool("missing") {
		t.Error("GetPayloadBool(missing) = true, want false")
	}
}
