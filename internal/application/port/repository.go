package port

import (
	"context"
	"time"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/shopspring/decimal"
)

// Visibility restricts a query to the requests an actor may see.
// All wins over the other fields; RequesterID wins over Statuses.
type Visibility struct {
	All            bool
	RequesterID    string
	Statuses       []workflow.Status
	RejectedByRole workflow.Role
}

// RequestFilter narrows a purchase request listing
type RequestFilter struct {
	Visibility Visibility

	Statuses  []workflow.Status
	Urgency   entity.Urgency
	CreatedBy string
	Search    string
	DateFrom  *time.Time
	DateTo    *time.Time
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal

	// OrderBy is a field name, optionally prefixed with "-" for descending
	OrderBy string
	Limit   int
	Offset  int
}

// PurchaseRequestRepository defines persistence operations for PurchaseRequest
type PurchaseRequestRepository interface {
	// Create inserts the request and sets its ID
	Create(ctx context.Context, req *entity.PurchaseRequest) error

	// GetByID returns nil, nil when the request does not exist
	GetByID(ctx context.Context, id int64) (*entity.PurchaseRequest, error)

	// UpdateWorkflow writes the mutable workflow fields if the stored version
	// still equals expectedVersion; otherwise ErrConcurrentModification
	UpdateWorkflow(ctx context.Context, req *entity.PurchaseRequest, expectedVersion int64) error

	// List returns one page of matching requests and the total match count
	List(ctx context.Context, filter RequestFilter) ([]*entity.PurchaseRequest, int, error)
}

// RequestStepRepository defines the append-only step ledger
type RequestStepRepository interface {
	Append(ctx context.Context, step *entity.RequestStep) error

	// ListByRequestID returns the request's steps newest first
	ListByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestStep, error)

	// ListSince returns steps of requests created at or after since, grouped
	// by request and oldest first within a request
	ListSince(ctx context.Context, since time.Time) ([]*entity.RequestStep, error)
}

// TransitionStore persists a request change together with its ledger entry
type TransitionStore interface {
	// CreateWithStep inserts a new request and its submitted step atomically
	CreateWithStep(ctx context.Context, req *entity.PurchaseRequest, step *entity.RequestStep) error

	// SaveTransition updates the request and appends the step atomically
	SaveTransition(ctx context.Context, req *entity.PurchaseRequest, expectedVersion int64, step *entity.RequestStep) error
}

// AttachmentRepository defines persistence operations for Attachment
type AttachmentRepository interface {
	Create(ctx context.Context, att *entity.Attachment) error
	GetByID(ctx context.Context, id int64) (*entity.Attachment, error)
	ListByRequestID(ctx context.Context, requestID int64) ([]*entity.Attachment, error)
	Delete(ctx context.Context, id int64) error
}

// UserDirectory resolves users for notification addressing
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	ListByRole(ctx context.Context, role workflow.Role) ([]*entity.User, error)
}

// MonthlyCount aggregates request activity for one calendar month
type MonthlyCount struct {
	Month    string `json:"month"` // YYYY-MM
	Created  int    `json:"created"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
}

// CostTotals sums request amounts
type CostTotals struct {
	Estimated decimal.Decimal `json:"estimated"`
	Final     decimal.Decimal `json:"final"`
}

// ActorActivity summarizes one user's part in the workflow
type ActorActivity struct {
	OwnedRequests    int `json:"owned_requests"`
	AwaitingFeedback int `json:"awaiting_feedback"` // owned and not yet closed
	ValidatedByMe    int `json:"validated_by_me"`
	RejectedByMe     int `json:"rejected_by_me"`
}

// AnalyticsRepository provides read-only aggregates
type AnalyticsRepository interface {
	CountByStatus(ctx context.Context, vis Visibility) (map[workflow.Status]int, error)
	CountByDepartment(ctx context.Context, vis Visibility) (map[string]int, error)
	ActorActivity(ctx context.Context, actorID string) (*ActorActivity, error)
	CostTotals(ctx context.Context, vis Visibility) (*CostTotals, error)
	MonthlyCounts(ctx context.Context, vis Visibility, since time.Time) ([]MonthlyCount, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
