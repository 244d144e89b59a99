package entity

import (
	"time"

	"github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// StepAction is the kind of ledger entry
type StepAction string

const (
	StepSubmitted StepAction = "submitted"
	StepApproved  StepAction = "approved"
	StepRejected  StepAction = "rejected"
	StepReviewed  StepAction = "reviewed"
)

// IsValid returns true for a known step action
func (a StepAction) IsValid() bool {
	switch a {
	case StepSubmitted, StepApproved, StepRejected, StepReviewed:
		return true
	default:
		return false
	}
}

// RequestStep is an append-only ledger entry recording one action on a request
type RequestStep struct {
	ID          int64         `json:"id"`
	RequestID   int64         `json:"request_id"`
	ActorID     string        `json:"actor_id"`
	ActorRole   workflow.Role `json:"actor_role"`
	Action      StepAction    `json:"action"`
	Comment     string        `json:"comment"`
	BudgetCheck *bool         `json:"budget_check"`
	CreatedAt   time.Time     `json:"created_at"`
}
