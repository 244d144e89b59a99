package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/garyjia/purchase-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const stepColumns = `s.id, s.request_id, s.actor_id, s.actor_role, s.action, s.comment, s.budget_check, s.created_at`

// RequestStepRepository implements port.RequestStepRepository.
// Rows are insert-only; the schema aborts updates and deletes.
type RequestStepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestStepRepository creates a new step ledger repository
func NewRequestStepRepository(db *sql.DB, logger *zap.Logger) *RequestStepRepository {
	return &RequestStepRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts a ledger entry
func (r *RequestStepRepository) Append(ctx context.Context, step *entity.RequestStep) error {
	query := `
		INSERT INTO request_steps (
			request_id, actor_id, actor_role, action, comment, budget_check, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		step.RequestID,
		step.ActorID,
		string(step.ActorRole),
		string(step.Action),
		step.Comment,
		nullBool(step.BudgetCheck),
		step.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to append request step",
			zap.Int64("request_id", step.RequestID),
			zap.String("action", string(step.Action)),
			zap.Error(err))
		return fmt.Errorf("failed to append request step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	step.ID = id
	return nil
}

// ListByRequestID returns the steps of a request, newest first
func (r *RequestStepRepository) ListByRequestID(ctx context.Context, requestID int64) ([]*entity.RequestStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM request_steps s
		WHERE s.request_id = ?
		ORDER BY s.created_at DESC, s.id DESC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list request steps", zap.Int64("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to list request steps: %w", err)
	}
	defer rows.Close()

	return scanSteps(rows)
}

// ListSince returns steps of requests created at or after since, oldest first per request
func (r *RequestStepRepository) ListSince(ctx context.Context, since time.Time) ([]*entity.RequestStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM request_steps s
		JOIN purchase_requests p ON p.id = s.request_id
		WHERE p.created_at >= ?
		ORDER BY s.request_id ASC, s.created_at ASC, s.id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, since.UTC())
	if err != nil {
		r.logger.Error("Failed to list request steps since", zap.Time("since", since), zap.Error(err))
		return nil, fmt.Errorf("failed to list request steps: %w", err)
	}
	defer rows.Close()

	return scanSteps(rows)
}

func scanSteps(rows *sql.Rows) ([]*entity.RequestStep, error) {
	var steps []*entity.RequestStep
	for rows.Next() {
		var step entity.RequestStep
		var role, action string
		var budget sql.NullBool

		if err := rows.Scan(
			&step.ID,
			&step.RequestID,
			&step.ActorID,
			&role,
			&action,
			&step.Comment,
			&budget,
			&step.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan request step: %w", err)
		}

		step.ActorRole = workflow.Role(role)
		step.Action = entity.StepAction(action)
		step.BudgetCheck = boolPtr(budget)
		step.CreatedAt = step.CreatedAt.UTC()
		steps = append(steps, &step)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate request steps: %w", err)
	}
	return steps, nil
}

// Verify interface compliance
var _ port.RequestStepRepository = (*RequestStepRepository)(nil)
