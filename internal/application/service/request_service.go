package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/purchase-approval/internal/application/port"
	appwf "github.com/garyjia/purchase-approval/internal/application/workflow"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// CreatedByMe selects the caller's own requests in a listing
	CreatedByMe = "me"

	dateLayout = "2006-01-02"
)

// ListQuery is a listing request as received from a client
type ListQuery struct {
	Status    string
	Urgency   string
	CreatedBy string
	Search    string
	DateFrom  string // YYYY-MM-DD, inclusive
	DateTo    string // YYYY-MM-DD, inclusive
	MinAmount string
	MaxAmount string
	Ordering  string
	Page      int
	PageSize  int
}

// RequestView is a request as presented to clients
type RequestView struct {
	*entity.PurchaseRequest
	CurrentStep      string            `json:"current_step"`
	PermittedActions []domainwf.Action `json:"permitted_actions"`
}

// RequestDetail adds the ledger to a request view
type RequestDetail struct {
	RequestView
	Steps []*entity.RequestStep `json:"steps"`
}

// RequestPage is one page of a listing
type RequestPage struct {
	Items    []*RequestView `json:"results"`
	Total    int            `json:"count"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// RequestService is the read and write surface for purchase requests
type RequestService interface {
	Create(ctx context.Context, actor entity.Actor, cmd appwf.SubmitCommand) (*RequestDetail, error)
	List(ctx context.Context, actor entity.Actor, query ListQuery) (*RequestPage, error)
	Get(ctx context.Context, actor entity.Actor, id int64) (*RequestDetail, error)
	Steps(ctx context.Context, actor entity.Actor, id int64) ([]*entity.RequestStep, error)
	Validate(ctx context.Context, cmd appwf.ValidateCommand) (*RequestDetail, error)
}

type requestServiceImpl struct {
	engine   appwf.Engine
	requests port.PurchaseRequestRepository
	steps    port.RequestStepRepository
	logger   Logger
}

// NewRequestService creates a new RequestService
func NewRequestService(
	engine appwf.Engine,
	requests port.PurchaseRequestRepository,
	steps port.RequestStepRepository,
	logger Logger,
) RequestService {
	return &requestServiceImpl{
		engine:   engine,
		requests: requests,
		steps:    steps,
		logger:   orNop(logger),
	}
}

// Create submits a new request through the engine
func (s *requestServiceImpl) Create(ctx context.Context, actor entity.Actor, cmd appwf.SubmitCommand) (*RequestDetail, error) {
	result, err := s.engine.Submit(ctx, actor, cmd)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, result.Request)
}

// Validate applies a decision through the engine and returns the fresh detail
func (s *requestServiceImpl) Validate(ctx context.Context, cmd appwf.ValidateCommand) (*RequestDetail, error) {
	result, err := s.engine.Validate(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, result.Request)
}

// Get returns a request with its ledger if the actor may read it
func (s *requestServiceImpl) Get(ctx context.Context, actor entity.Actor, id int64) (*RequestDetail, error) {
	req, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, req)
}

// Steps returns the request's ledger, newest first
func (s *requestServiceImpl) Steps(ctx context.Context, actor entity.Actor, id int64) ([]*entity.RequestStep, error) {
	if _, err := s.load(ctx, actor, id); err != nil {
		return nil, err
	}
	steps, err := s.steps.ListByRequestID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}
	return nonNil(steps), nil
}

// List returns the page of requests visible to the actor that match the query
func (s *requestServiceImpl) List(ctx context.Context, actor entity.Actor, query ListQuery) (*RequestPage, error) {
	filter, err := BuildFilter(actor, query)
	if err != nil {
		return nil, err
	}

	items, total, err := s.requests.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list purchase requests", "actor_id", actor.ID, "error", err)
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}

	page := &RequestPage{
		Items:    make([]*RequestView, 0, len(items)),
		Total:    total,
		Page:     filter.Offset/filter.Limit + 1,
		PageSize: filter.Limit,
	}
	for _, req := range items {
		page.Items = append(page.Items, s.view(req))
	}
	return page, nil
}

func (s *requestServiceImpl) load(ctx context.Context, actor entity.Actor, id int64) (*entity.PurchaseRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: purchase request %d", domainwf.ErrNotFound, id)
	}
	if !canRead(actor, req) {
		s.logger.Info("Request read refused", "request_id", id, "actor_id", actor.ID, "role", actor.Role)
		return nil, fmt.Errorf("%w: employees may only read their own requests", ErrAccessDenied)
	}
	return req, nil
}

func (s *requestServiceImpl) detail(ctx context.Context, req *entity.PurchaseRequest) (*RequestDetail, error) {
	steps, err := s.steps.ListByRequestID(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err)
	}
	return &RequestDetail{RequestView: *s.view(req), Steps: nonNil(steps)}, nil
}

func (s *requestServiceImpl) view(req *entity.PurchaseRequest) *RequestView {
	policy := s.engine.Policy()
	return &RequestView{
		PurchaseRequest:  req,
		CurrentStep:      policy.CurrentStep(req.Status),
		PermittedActions: policy.PermittedActions(req.Status),
	}
}

func nonNil(steps []*entity.RequestStep) []*entity.RequestStep {
	if steps == nil {
		return []*entity.RequestStep{}
	}
	return steps
}

// BuildFilter turns a client query into a repository filter scoped to the actor
func BuildFilter(actor entity.Actor, q ListQuery) (port.RequestFilter, error) {
	filter := port.RequestFilter{
		Visibility: VisibilityFor(actor),
		Search:     strings.TrimSpace(q.Search),
		OrderBy:    q.Ordering,
	}

	switch status := domainwf.Status(q.Status); {
	case status == "":
	case status == domainwf.StatusInProgress:
		filter.Statuses = []domainwf.Status{domainwf.StatusMGApproved, domainwf.StatusAccountingReviewed}
	case status.IsValid():
		filter.Statuses = []domainwf.Status{status}
	default:
		return filter, domainwf.NewValidationError("status", fmt.Sprintf("unknown status %q", q.Status))
	}

	if q.Urgency != "" {
		urgency := entity.Urgency(q.Urgency)
		if !urgency.IsValid() {
			return filter, domainwf.NewValidationError("urgency", fmt.Sprintf("unknown urgency %q", q.Urgency))
		}
		filter.Urgency = urgency
	}

	switch q.CreatedBy {
	case "":
	case CreatedByMe:
		filter.CreatedBy = actor.ID
	default:
		filter.CreatedBy = q.CreatedBy
	}

	if q.DateFrom != "" {
		from, err := time.Parse(dateLayout, q.DateFrom)
		if err != nil {
			return filter, domainwf.NewValidationError("date_from", "expected YYYY-MM-DD")
		}
		filter.DateFrom = &from
	}
	if q.DateTo != "" {
		to, err := time.Parse(dateLayout, q.DateTo)
		if err != nil {
			return filter, domainwf.NewValidationError("date_to", "expected YYYY-MM-DD")
		}
		// Inclusive day: everything before the next midnight
		end := to.AddDate(0, 0, 1)
		filter.DateTo = &end
	}

	var err error
	if filter.MinAmount, err = parseAmount("min_amount", q.MinAmount); err != nil {
		return filter, err
	}
	if filter.MaxAmount, err = parseAmount("max_amount", q.MaxAmount); err != nil {
		return filter, err
	}

	pageSize := q.PageSize
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	return filter, nil
}

func parseAmount(field, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, domainwf.NewValidationError(field, "not a decimal amount")
	}
	return &amount, nil
}
