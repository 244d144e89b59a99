package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/garyjia/purchase-approval/internal/infrastructure/persistence/sqlite"
)

// AnalyticsRepository implements port.AnalyticsRepository. It never writes.
type AnalyticsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnalyticsRepository creates a new analytics repository
func NewAnalyticsRepository(db *sql.DB, logger *zap.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{
		db:     db,
		logger: logger,
	}
}

// CountByStatus counts visible requests per status; every status is present in the result
func (r *AnalyticsRepository) CountByStatus(ctx context.Context, vis port.Visibility) (map[workflow.Status]int, error) {
	where := &whereBuilder{}
	where.addVisibility(vis)
	query := `SELECT status, COUNT(*) FROM purchase_requests` + where.sql() + ` GROUP BY status`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, where.args...)
	if err != nil {
		r.logger.Error("Failed to count requests by status", zap.Error(err))
		return nil, fmt.Errorf("failed to count requests by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[workflow.Status]int, len(workflow.AllStatuses()))
	for _, s := range workflow.AllStatuses() {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[workflow.Status(status)] = n
	}
	return counts, rows.Err()
}

// CountByDepartment counts visible requests per requesting department.
// Requests without a department are counted under "".
func (r *AnalyticsRepository) CountByDepartment(ctx context.Context, vis port.Visibility) (map[string]int, error) {
	where := &whereBuilder{}
	where.addVisibility(vis)
	query := `SELECT department, COUNT(*) FROM purchase_requests` + where.sql() + ` GROUP BY department`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, where.args...)
	if err != nil {
		r.logger.Error("Failed to count requests by department", zap.Error(err))
		return nil, fmt.Errorf("failed to count requests by department: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var department string
		var n int
		if err := rows.Scan(&department, &n); err != nil {
			return nil, fmt.Errorf("failed to scan department count: %w", err)
		}
		counts[department] = n
	}
	return counts, rows.Err()
}

// ActorActivity counts the requests an actor owns and the decisions they took.
// Decisions come from the ledger, so an approval counts once per request.
func (r *AnalyticsRepository) ActorActivity(ctx context.Context, actorID string) (*port.ActorActivity, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM purchase_requests WHERE requester_id = ?),
			(SELECT COUNT(*) FROM purchase_requests WHERE requester_id = ? AND status NOT IN (?, ?)),
			(SELECT COUNT(DISTINCT request_id) FROM request_steps WHERE actor_id = ? AND action IN (?, ?)),
			(SELECT COUNT(DISTINCT request_id) FROM request_steps WHERE actor_id = ? AND action = ?)`

	activity := &port.ActorActivity{}
	err := sqlite.ExecutorFrom(ctx, r.db).QueryRowContext(ctx, query,
		actorID,
		actorID, string(workflow.StatusDirectorApproved), string(workflow.StatusRejected),
		actorID, string(entity.StepApproved), string(entity.StepReviewed),
		actorID, string(entity.StepRejected),
	).Scan(&activity.OwnedRequests, &activity.AwaitingFeedback, &activity.ValidatedByMe, &activity.RejectedByMe)
	if err != nil {
		r.logger.Error("Failed to load actor activity", zap.String("actor_id", actorID), zap.Error(err))
		return nil, fmt.Errorf("failed to load actor activity: %w", err)
	}
	return activity, nil
}

// CostTotals sums estimated and final costs with exact decimal arithmetic
func (r *AnalyticsRepository) CostTotals(ctx context.Context, vis port.Visibility) (*port.CostTotals, error) {
	where := &whereBuilder{}
	where.addVisibility(vis)
	query := `SELECT estimated_cost, final_cost FROM purchase_requests` + where.sql()

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, where.args...)
	if err != nil {
		r.logger.Error("Failed to load request costs", zap.Error(err))
		return nil, fmt.Errorf("failed to load request costs: %w", err)
	}
	defer rows.Close()

	totals := &port.CostTotals{Estimated: decimal.Zero, Final: decimal.Zero}
	for rows.Next() {
		var estimated decimal.Decimal
		var final decimal.NullDecimal
		if err := rows.Scan(&estimated, &final); err != nil {
			return nil, fmt.Errorf("failed to scan request cost: %w", err)
		}
		totals.Estimated = totals.Estimated.Add(estimated)
		if final.Valid {
			totals.Final = totals.Final.Add(final.Decimal)
		}
	}
	return totals, rows.Err()
}

// MonthlyCounts buckets creations, director approvals and rejections by calendar month (UTC).
// Only months with activity at or after since are returned, oldest first.
func (r *AnalyticsRepository) MonthlyCounts(ctx context.Context, vis port.Visibility, since time.Time) ([]port.MonthlyCount, error) {
	since = since.UTC()
	where := &whereBuilder{}
	where.addVisibility(vis)
	where.add("(created_at >= ? OR approved_at >= ? OR rejected_at >= ?)", since, since, since)
	query := `SELECT status, created_at, approved_at, rejected_at FROM purchase_requests` + where.sql()

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, where.args...)
	if err != nil {
		r.logger.Error("Failed to load monthly activity", zap.Error(err))
		return nil, fmt.Errorf("failed to load monthly activity: %w", err)
	}
	defer rows.Close()

	buckets := make(map[string]*port.MonthlyCount)
	bucket := func(t time.Time) *port.MonthlyCount {
		key := t.UTC().Format("2006-01")
		b, ok := buckets[key]
		if !ok {
			b = &port.MonthlyCount{Month: key}
			buckets[key] = b
		}
		return b
	}

	for rows.Next() {
		var status string
		var createdAt time.Time
		var approvedAt, rejectedAt sql.NullTime
		if err := rows.Scan(&status, &createdAt, &approvedAt, &rejectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan monthly activity: %w", err)
		}
		if !createdAt.Before(since) {
			bucket(createdAt).Created++
		}
		if workflow.Status(status) == workflow.StatusDirectorApproved && approvedAt.Valid && !approvedAt.Time.Before(since) {
			bucket(approvedAt.Time).Approved++
		}
		if workflow.Status(status) == workflow.StatusRejected && rejectedAt.Valid && !rejectedAt.Time.Before(since) {
			bucket(rejectedAt.Time).Rejected++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate monthly activity: %w", err)
	}

	result := make([]port.MonthlyCount, 0, len(buckets))
	for _, b := range buckets {
		result = append(result, *b)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Month < result[j].Month })
	return result, nil
}

// Verify interface compliance
var _ port.AnalyticsRepository = (*AnalyticsRepository)(nil)
