package event

import "github.com/garyjia/purchase-approval/internal/domain/workflow"

// Type identifies the type of domain event
type Type string

const (
	TypeRequestSubmitted Type = "request.submitted"
	TypeRequestApproved  Type = "request.approved"
	TypeRequestRejected  Type = "request.rejected"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestSubmitted,
		TypeRequestApproved,
		TypeRequestRejected:
		return true
	default:
		return false
	}
}

// TypeForStatus returns the event emitted when a request enters the status
func TypeForStatus(status workflow.Status) Type {
	switch status {
	case workflow.StatusPending:
		return TypeRequestSubmitted
	case workflow.StatusRejected:
		return TypeRequestRejected
	default:
		return TypeRequestApproved
	}
}
