package entity

import (
	"time"

	"github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Urgency levels of a purchase request
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// IsValid returns true for a known urgency
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	default:
		return false
	}
}

// PurchaseRequest is a request for spend moving through the approval chain.
// Workflow fields are only ever changed by the transition engine.
type PurchaseRequest struct {
	ID              int64           `json:"id"`
	RequesterID     string          `json:"requester_id"`
	Department      string          `json:"department"`
	ItemDescription string          `json:"item_description"`
	Quantity        int             `json:"quantity"`
	EstimatedCost   decimal.Decimal `json:"estimated_cost"`
	Urgency         Urgency         `json:"urgency"`
	Justification   string          `json:"justification"`

	Status          workflow.Status     `json:"status"`
	FinalCost       decimal.NullDecimal `json:"final_cost"`
	BudgetAvailable *bool               `json:"budget_available"`

	RejectionReason string        `json:"rejection_reason,omitempty"`
	RejectedBy      string        `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time    `json:"rejected_at,omitempty"`
	RejectedByRole  workflow.Role `json:"rejected_by_role,omitempty"`

	MGValidatedBy         string     `json:"mg_validated_by,omitempty"`
	MGValidatedAt         *time.Time `json:"mg_validated_at,omitempty"`
	AccountingValidatedBy string     `json:"accounting_validated_by,omitempty"`
	AccountingValidatedAt *time.Time `json:"accounting_validated_at,omitempty"`
	ApprovedBy            string     `json:"approved_by,omitempty"`
	ApprovedAt            *time.Time `json:"approved_at,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal returns true once the request is approved by the director or rejected
func (r *PurchaseRequest) IsTerminal() bool {
	return r.Status.IsTerminal()
}

// Clone returns a deep copy so a transition can be prepared without touching the original
func (r *PurchaseRequest) Clone() *PurchaseRequest {
	c := *r
	c.BudgetAvailable = cloneBool(r.BudgetAvailable)
	c.RejectedAt = cloneTime(r.RejectedAt)
	c.MGValidatedAt = cloneTime(r.MGValidatedAt)
	c.AccountingValidatedAt = cloneTime(r.AccountingValidatedAt)
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	return &c
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
