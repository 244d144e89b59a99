package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/garyjia/purchase-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const requestColumns = `id, requester_id, department, item_description, quantity,
	estimated_cost, urgency, justification, status, final_cost, budget_available,
	rejection_reason, rejected_by, rejected_at, rejected_by_role,
	mg_validated_by, mg_validated_at, accounting_validated_by, accounting_validated_at,
	approved_by, approved_at, version, created_at, updated_at`

// Sortable fields exposed to clients, mapped to SQL expressions
var requestOrderings = map[string]string{
	"id":             "id",
	"created_at":     "created_at",
	"updated_at":     "updated_at",
	"estimated_cost": "CAST(estimated_cost AS REAL)",
	"status":         "status",
	"urgency":        "CASE urgency WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END",
}

// IsValidOrdering reports whether a listing may be sorted by the field ("-" prefix allowed)
func IsValidOrdering(orderBy string) bool {
	_, ok := requestOrderings[strings.TrimPrefix(orderBy, "-")]
	return ok
}

// PurchaseRequestRepository implements port.PurchaseRequestRepository
type PurchaseRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPurchaseRequestRepository creates a new purchase request repository
func NewPurchaseRequestRepository(db *sql.DB, logger *zap.Logger) *PurchaseRequestRepository {
	return &PurchaseRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a purchase request
func (r *PurchaseRequestRepository) Create(ctx context.Context, req *entity.PurchaseRequest) error {
	query := `
		INSERT INTO purchase_requests (
			requester_id, department, item_description, quantity, estimated_cost,
			urgency, justification, status, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.RequesterID,
		req.Department,
		req.ItemDescription,
		req.Quantity,
		req.EstimatedCost,
		string(req.Urgency),
		req.Justification,
		string(req.Status),
		req.Version,
		req.CreatedAt.UTC(),
		req.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create purchase request", zap.Error(err))
		return fmt.Errorf("failed to create purchase request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByID retrieves a purchase request by ID
func (r *PurchaseRequestRepository) GetByID(ctx context.Context, id int64) (*entity.PurchaseRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_requests WHERE id = ?`

	req, err := scanRequest(sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get purchase request by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get purchase request: %w", err)
	}
	return req, nil
}

// UpdateWorkflow writes the workflow fields guarded by the version column
func (r *PurchaseRequestRepository) UpdateWorkflow(ctx context.Context, req *entity.PurchaseRequest, expectedVersion int64) error {
	query := `
		UPDATE purchase_requests SET
			status = ?, final_cost = ?, budget_available = ?,
			rejection_reason = ?, rejected_by = ?, rejected_at = ?, rejected_by_role = ?,
			mg_validated_by = ?, mg_validated_at = ?,
			accounting_validated_by = ?, accounting_validated_at = ?,
			approved_by = ?, approved_at = ?,
			version = ?, updated_at = ?
		WHERE id = ? AND version = ?
	`

	exec := sqlite.ExecutorFrom(ctx, r.db)
	result, err := exec.ExecContext(ctx, query,
		string(req.Status),
		req.FinalCost,
		nullBool(req.BudgetAvailable),
		nullString(req.RejectionReason),
		nullString(req.RejectedBy),
		nullTime(req.RejectedAt),
		nullString(string(req.RejectedByRole)),
		nullString(req.MGValidatedBy),
		nullTime(req.MGValidatedAt),
		nullString(req.AccountingValidatedBy),
		nullTime(req.AccountingValidatedAt),
		nullString(req.ApprovedBy),
		nullTime(req.ApprovedAt),
		req.Version,
		req.UpdatedAt.UTC(),
		req.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update purchase request",
			zap.Int64("id", req.ID),
			zap.Int64("expected_version", expectedVersion),
			zap.Error(err))
		return fmt.Errorf("failed to update purchase request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	var exists int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM purchase_requests WHERE id = ?`, req.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check purchase request: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: id %d", workflow.ErrNotFound, req.ID)
	}
	return fmt.Errorf("%w: request %d is no longer at version %d", workflow.ErrConcurrentModification, req.ID, expectedVersion)
}

// List returns a page of purchase requests matching the filter and the total count
func (r *PurchaseRequestRepository) List(ctx context.Context, filter port.RequestFilter) ([]*entity.PurchaseRequest, int, error) {
	where := buildRequestWhere(filter)
	exec := sqlite.ExecutorFrom(ctx, r.db)

	var total int
	countQuery := `SELECT COUNT(*) FROM purchase_requests` + where.sql()
	if err := exec.QueryRowContext(ctx, countQuery, where.args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count purchase requests", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count purchase requests: %w", err)
	}

	query := `SELECT ` + requestColumns + ` FROM purchase_requests` + where.sql() + orderClause(filter.OrderBy)
	args := where.args
	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list purchase requests", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list purchase requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.PurchaseRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan purchase request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate purchase requests: %w", err)
	}

	return requests, total, nil
}

func buildRequestWhere(filter port.RequestFilter) *whereBuilder {
	w := &whereBuilder{}
	w.addVisibility(filter.Visibility)

	if len(filter.Statuses) > 0 {
		args := make([]interface{}, len(filter.Statuses))
		for i, s := range filter.Statuses {
			args[i] = string(s)
		}
		w.add("status IN ("+placeholders(len(args))+")", args...)
	}
	if filter.Urgency != "" {
		w.add("urgency = ?", string(filter.Urgency))
	}
	if filter.CreatedBy != "" {
		w.add("requester_id = ?", filter.CreatedBy)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := likePattern(term)
		w.add(`(item_description LIKE ? ESCAPE '\' OR justification LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	if filter.DateFrom != nil {
		w.add("created_at >= ?", filter.DateFrom.UTC())
	}
	if filter.DateTo != nil {
		w.add("created_at < ?", filter.DateTo.UTC())
	}
	if filter.MinAmount != nil {
		w.add("CAST(estimated_cost AS REAL) >= ?", filter.MinAmount.InexactFloat64())
	}
	if filter.MaxAmount != nil {
		w.add("CAST(estimated_cost AS REAL) <= ?", filter.MaxAmount.InexactFloat64())
	}
	return w
}

func orderClause(orderBy string) string {
	if orderBy == "" {
		orderBy = "-created_at"
	}
	direction := "ASC"
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
	}
	expr, ok := requestOrderings[strings.TrimPrefix(orderBy, "-")]
	if !ok {
		expr, direction = "created_at", "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id %s", expr, direction, direction)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.PurchaseRequest, error) {
	var req entity.PurchaseRequest
	var urgency, status string
	var budget sql.NullBool
	var reason, rejectedBy, rejectedByRole sql.NullString
	var mgBy, accBy, approvedBy sql.NullString
	var rejectedAt, mgAt, accAt, approvedAt sql.NullTime

	err := row.Scan(
		&req.ID,
		&req.RequesterID,
		&req.Department,
		&req.ItemDescription,
		&req.Quantity,
		&req.EstimatedCost,
		&urgency,
		&req.Justification,
		&status,
		&req.FinalCost,
		&budget,
		&reason,
		&rejectedBy,
		&rejectedAt,
		&rejectedByRole,
		&mgBy,
		&mgAt,
		&accBy,
		&accAt,
		&approvedBy,
		&approvedAt,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Urgency = entity.Urgency(urgency)
	req.Status = workflow.Status(status)
	req.BudgetAvailable = boolPtr(budget)
	req.RejectionReason = reason.String
	req.RejectedBy = rejectedBy.String
	req.RejectedAt = timePtr(rejectedAt)
	req.RejectedByRole = workflow.Role(rejectedByRole.String)
	req.MGValidatedBy = mgBy.String
	req.MGValidatedAt = timePtr(mgAt)
	req.AccountingValidatedBy = accBy.String
	req.AccountingValidatedAt = timePtr(accAt)
	req.ApprovedBy = approvedBy.String
	req.ApprovedAt = timePtr(approvedAt)
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()

	return &req, nil
}

// Verify interface compliance
var _ port.PurchaseRequestRepository = (*PurchaseRequestRepository)(nil)
