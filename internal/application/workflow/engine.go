package workflow

import (
	"context"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// AutoValidateComment is recorded when a general services creator approves their own request
const AutoValidateComment = "Auto-validated by creator (general services)"

// Engine is the only write path for purchase request workflow state
type Engine interface {
	// Submit creates a request at pending with its submitted ledger entry
	Submit(ctx context.Context, actor entity.Actor, cmd SubmitCommand) (*TransitionResult, error)

	// Validate applies an approve or reject decision
	Validate(ctx context.Context, cmd ValidateCommand) (*TransitionResult, error)

	// Policy returns the role policy the engine enforces
	Policy() *domainwf.Policy
}

// SubmitCommand carries the immutable fields of a new request
type SubmitCommand struct {
	ItemDescription string
	Quantity        int
	EstimatedCost   decimal.Decimal
	Urgency         entity.Urgency
	Justification   string
	AutoValidateMG  bool
}

// ValidateCommand is one decision on a request
type ValidateCommand struct {
	RequestID int64
	Actor     entity.Actor
	Action    domainwf.Action
	Payload   DecisionPayload
}

// DecisionPayload holds the decision body. BudgetAvailable and FinalCost are
// only read on an accounting approval.
type DecisionPayload struct {
	Comment         string
	BudgetAvailable *bool
	FinalCost       *decimal.Decimal
}

// TransitionResult describes a committed transition
type TransitionResult struct {
	Request        *entity.PurchaseRequest
	Step           *entity.RequestStep
	PreviousStatus domainwf.Status
	NewStatus      domainwf.Status
	CurrentStep    string
}
