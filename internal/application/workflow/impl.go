package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/garyjia/purchase-approval/internal/application/dispatcher"
	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/event"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/garyjia/purchase-approval/pkg/utils"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type engineImpl struct {
	requestRepo port.PurchaseRequestRepository
	store       port.TransitionStore
	policy      *domainwf.Policy
	dispatcher  dispatcher.Dispatcher
	logger      Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTracer sets the tracer used for transition spans
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *engineImpl) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		if now != nil {
			e.now = now
		}
	}
}

// WithPolicy overrides the role policy
func WithPolicy(policy *domainwf.Policy) EngineOption {
	return func(e *engineImpl) {
		if policy != nil {
			e.policy = policy
		}
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	requestRepo port.PurchaseRequestRepository,
	store port.TransitionStore,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		requestRepo: requestRepo,
		store:       store,
		policy:      BuildPurchasePolicy(),
		logger:      nopLogger{},
		tracer:      otel.Tracer("github.com/garyjia/purchase-approval/workflow"),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Policy returns the role policy the engine enforces
func (e *engineImpl) Policy() *domainwf.Policy {
	return e.policy
}

// Submit creates a request at pending with its submitted ledger entry
func (e *engineImpl) Submit(ctx context.Context, actor entity.Actor, cmd SubmitCommand) (*TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.Submit", trace.WithAttributes(
		attribute.String("actor.id", actor.ID),
		attribute.String("actor.role", actor.Role.String()),
	))
	defer span.End()

	if !actor.Role.CanSubmit() {
		err := fmt.Errorf("%w: role %s may not submit purchase requests", domainwf.ErrForbidden, actor.Role)
		e.logger.Info("Submission refused", "actor_id", actor.ID, "role", actor.Role)
		return nil, recordErr(span, err)
	}
	if err := validateSubmission(&cmd); err != nil {
		return nil, recordErr(span, err)
	}

	now := e.now().UTC()
	req := &entity.PurchaseRequest{
		RequesterID:     actor.ID,
		Department:      actor.Department,
		ItemDescription: cmd.ItemDescription,
		Quantity:        cmd.Quantity,
		EstimatedCost:   cmd.EstimatedCost,
		Urgency:         cmd.Urgency,
		Justification:   cmd.Justification,
		Status:          domainwf.StatusPending,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	step := &entity.RequestStep{
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Action:    entity.StepSubmitted,
		Comment:   "Request submitted",
		CreatedAt: now,
	}

	if err := e.store.CreateWithStep(ctx, req, step); err != nil {
		e.logger.Error("Failed to create purchase request", "actor_id", actor.ID, "error", err)
		return nil, recordErr(span, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err))
	}
	span.SetAttributes(attribute.Int64("request.id", req.ID))

	e.logger.Info("Purchase request submitted",
		"request_id", req.ID,
		"actor_id", actor.ID,
		"urgency", req.Urgency,
		"estimated_cost", req.EstimatedCost.String(),
	)
	autoValidate := cmd.AutoValidateMG && actor.Role == domainwf.RoleMG
	e.emit(ctx, req, step, actor, "", domainwf.StatusPending, map[string]interface{}{
		event.KeyAutoValidated: autoValidate,
	})

	result := &TransitionResult{
		Request:        req,
		Step:           step,
		PreviousStatus: "",
		NewStatus:      domainwf.StatusPending,
		CurrentStep:    e.policy.CurrentStep(domainwf.StatusPending),
	}

	if !autoValidate {
		return result, nil
	}

	validated, err := e.Validate(ctx, ValidateCommand{
		RequestID: req.ID,
		Actor:     actor,
		Action:    domainwf.ActionApprove,
		Payload:   DecisionPayload{Comment: AutoValidateComment},
	})
	if err != nil {
		// The request is committed at pending; announce it like a regular
		// submission so the managers still hear about it.
		e.logger.Error("Auto-validation failed, request left pending",
			"request_id", req.ID,
			"actor_id", actor.ID,
			"error", err,
		)
		span.AddEvent("auto_validation_failed")
		e.emit(ctx, req, step, actor, "", domainwf.StatusPending, map[string]interface{}{
			event.KeyAutoValidated: false,
		})
		return result, nil
	}
	return validated, nil
}

// Validate applies an approve or reject decision
func (e *engineImpl) Validate(ctx context.Context, cmd ValidateCommand) (*TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "workflow.Validate", trace.WithAttributes(
		attribute.Int64("request.id", cmd.RequestID),
		attribute.String("actor.id", cmd.Actor.ID),
		attribute.String("actor.role", cmd.Actor.Role.String()),
		attribute.String("action", cmd.Action.String()),
	))
	defer span.End()

	current, err := e.requestRepo.GetByID(ctx, cmd.RequestID)
	if err != nil {
		return nil, recordErr(span, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err))
	}
	if current == nil {
		return nil, recordErr(span, fmt.Errorf("%w: id %d", domainwf.ErrNotFound, cmd.RequestID))
	}

	updated, step, err := e.apply(current, cmd)
	if err != nil {
		e.logger.Info("Transition refused",
			"request_id", cmd.RequestID,
			"actor_id", cmd.Actor.ID,
			"role", cmd.Actor.Role,
			"action", cmd.Action,
			"status", current.Status,
			"reason", err.Error(),
		)
		return nil, recordErr(span, err)
	}

	if err := e.store.SaveTransition(ctx, updated, current.Version, step); err != nil {
		if errors.Is(err, domainwf.ErrConcurrentModification) {
			e.logger.Info("Transition lost a concurrent update",
				"request_id", cmd.RequestID,
				"actor_id", cmd.Actor.ID,
				"expected_version", current.Version,
			)
			return nil, recordErr(span, err)
		}
		e.logger.Error("Failed to save transition",
			"request_id", cmd.RequestID,
			"actor_id", cmd.Actor.ID,
			"error", err,
		)
		return nil, recordErr(span, fmt.Errorf("%w: %w", domainwf.ErrPersistence, err))
	}

	e.logger.Info("Transition committed",
		"request_id", updated.ID,
		"actor_id", cmd.Actor.ID,
		"role", cmd.Actor.Role,
		"from", current.Status,
		"to", updated.Status,
	)
	span.SetAttributes(
		attribute.String("status.from", current.Status.String()),
		attribute.String("status.to", updated.Status.String()),
	)
	e.emit(ctx, updated, step, cmd.Actor, current.Status, updated.Status, nil)

	return &TransitionResult{
		Request:        updated,
		Step:           step,
		PreviousStatus: current.Status,
		NewStatus:      updated.Status,
		CurrentStep:    e.policy.CurrentStep(updated.Status),
	}, nil
}

// apply computes the next state of the request without persisting it
func (e *engineImpl) apply(current *entity.PurchaseRequest, cmd ValidateCommand) (*entity.PurchaseRequest, *entity.RequestStep, error) {
	if current.IsTerminal() {
		return nil, nil, fmt.Errorf("%w: request %d is %s", domainwf.ErrRequestTerminal, current.ID, current.Status)
	}

	required, err := e.policy.NextRequiredRole(current.Status)
	if err != nil {
		return nil, nil, err
	}
	if cmd.Actor.Role != required {
		return nil, nil, &domainwf.ForbiddenError{
			Status:   current.Status,
			Required: required,
			Actual:   cmd.Actor.Role,
		}
	}

	if !cmd.Action.IsValid() {
		return nil, nil, domainwf.NewValidationError("action", "must be approve or reject")
	}
	comment := utils.SanitizeString(cmd.Payload.Comment)
	if comment == "" {
		return nil, nil, domainwf.NewValidationError("comment", "is required")
	}

	next, err := e.policy.Next(current.Status, cmd.Action)
	if err != nil {
		return nil, nil, err
	}

	now := e.now().UTC()
	updated := current.Clone()
	updated.Status = next
	updated.Version = current.Version + 1
	updated.UpdatedAt = now

	step := &entity.RequestStep{
		RequestID: current.ID,
		ActorID:   cmd.Actor.ID,
		ActorRole: cmd.Actor.Role,
		Comment:   comment,
		CreatedAt: now,
	}

	if cmd.Action == domainwf.ActionReject {
		updated.RejectionReason = comment
		updated.RejectedBy = cmd.Actor.ID
		updated.RejectedAt = &now
		updated.RejectedByRole = cmd.Actor.Role
		step.Action = entity.StepRejected
		return updated, step, nil
	}

	step.Action = entity.StepApproved
	switch cmd.Actor.Role {
	case domainwf.RoleMG:
		updated.MGValidatedBy = cmd.Actor.ID
		updated.MGValidatedAt = &now
	case domainwf.RoleAccounting:
		if err := recordAccountingReview(updated, cmd.Payload); err != nil {
			return nil, nil, err
		}
		updated.AccountingValidatedBy = cmd.Actor.ID
		updated.AccountingValidatedAt = &now
		budget := *cmd.Payload.BudgetAvailable
		step.BudgetCheck = &budget
	case domainwf.RoleDirector:
		updated.ApprovedBy = cmd.Actor.ID
		updated.ApprovedAt = &now
	}

	return updated, step, nil
}

// recordAccountingReview sets the write-once budget flag and final cost.
// A false budget flag is informational and still advances the request.
func recordAccountingReview(req *entity.PurchaseRequest, payload DecisionPayload) error {
	if payload.BudgetAvailable == nil {
		return domainwf.NewValidationError("budget_available", "is required for the accounting review")
	}
	if payload.FinalCost == nil {
		return domainwf.NewValidationError("final_cost", "is required for the accounting review")
	}
	if err := utils.ValidateAmount(*payload.FinalCost); err != nil {
		return domainwf.NewValidationError("final_cost", err.Error())
	}
	if req.BudgetAvailable != nil {
		return &domainwf.FieldAlreadySetError{Field: "budget_available", RequestID: req.ID}
	}
	if req.FinalCost.Valid {
		return &domainwf.FieldAlreadySetError{Field: "final_cost", RequestID: req.ID}
	}

	budget := *payload.BudgetAvailable
	req.BudgetAvailable = &budget
	req.FinalCost = decimal.NewNullDecimal(*payload.FinalCost)
	return nil
}

// emit hands the transition event to the dispatcher without waiting for handlers
func (e *engineImpl) emit(ctx context.Context, req *entity.PurchaseRequest, step *entity.RequestStep, actor entity.Actor, from, to domainwf.Status, extra map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}

	payload := map[string]interface{}{
		event.KeyComment:         step.Comment,
		event.KeyRequesterID:     req.RequesterID,
		event.KeyItemDescription: req.ItemDescription,
	}
	if role, err := e.policy.NextRequiredRole(to); err == nil {
		payload[event.KeyNextRole] = role.String()
	}
	for k, v := range extra {
		payload[k] = v
	}

	evt := event.NewEvent(event.TypeForStatus(to), req.ID, payload).
		WithTransition(actor.ID, actor.Role, from, to)

	// Handlers outlive the caller's request context
	e.dispatcher.DispatchAsync(context.WithoutCancel(ctx), evt)
}

func validateSubmission(cmd *SubmitCommand) error {
	cmd.ItemDescription = utils.SanitizeString(cmd.ItemDescription)
	cmd.Justification = utils.SanitizeString(cmd.Justification)

	if cmd.ItemDescription == "" {
		return domainwf.NewValidationError("item_description", "is required")
	}
	if err := utils.ValidateQuantity(cmd.Quantity); err != nil {
		return domainwf.NewValidationError("quantity", err.Error())
	}
	if err := utils.ValidateAmount(cmd.EstimatedCost); err != nil {
		return domainwf.NewValidationError("estimated_cost", err.Error())
	}
	if cmd.Urgency == "" {
		cmd.Urgency = entity.UrgencyMedium
	}
	if !cmd.Urgency.IsValid() {
		return domainwf.NewValidationError("urgency", "must be one of low, medium, high, critical")
	}
	if cmd.Justification == "" {
		return domainwf.NewValidationError("justification", "is required")
	}
	return nil
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
