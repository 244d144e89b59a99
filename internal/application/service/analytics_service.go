package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
	domainwf "github.com/garyjia/purchase-approval/internal/domain/workflow"
)

// DefaultDashboardMonths is the monthly history length when none is configured
const DefaultDashboardMonths = 6

// Trend compares a value with the previous month
type Trend struct {
	Value     int    `json:"value"` // absolute percent change
	Direction string `json:"direction"`
}

const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Dashboard is the read-only summary shown to an actor
type Dashboard struct {
	Role                   domainwf.Role             `json:"role"`
	TotalVisible           int                       `json:"total_visible"`
	RequestsByStatus       map[domainwf.Status]int   `json:"requests_by_status"`
	RequestsByDepartment   map[string]int            `json:"requests_by_department"`
	InProgress             int                       `json:"in_progress"`
	Costs                  *port.CostTotals          `json:"costs"`
	AwaitingMyAction       int                       `json:"awaiting_my_action"`
	QueueOldestWaitingDays int                       `json:"queue_oldest_waiting_days"`
	AvgHandleTimeDays      map[domainwf.Role]float64 `json:"avg_handle_time_days"`
	Monthly                []port.MonthlyCount       `json:"monthly_stats"`
	ValidationRate         float64                   `json:"validation_rate"`
	Trends                 map[string]Trend          `json:"trends"`
	Overview               *port.ActorActivity       `json:"overview"`
}

// AnalyticsService computes dashboards. It never writes.
type AnalyticsService interface {
	Dashboard(ctx context.Context, actor entity.Actor) (*Dashboard, error)
}

type analyticsServiceImpl struct {
	policy    *domainwf.Policy
	requests  port.PurchaseRequestRepository
	steps     port.RequestStepRepository
	analytics port.AnalyticsRepository
	months    int
	logger    Logger
	now       func() time.Time
}

// NewAnalyticsService creates a new AnalyticsService covering the last months
func NewAnalyticsService(
	policy *domainwf.Policy,
	requests port.PurchaseRequestRepository,
	steps port.RequestStepRepository,
	analytics port.AnalyticsRepository,
	months int,
	logger Logger,
) AnalyticsService {
	if months < 2 {
		months = DefaultDashboardMonths
	}
	return &analyticsServiceImpl{
		policy:    policy,
		requests:  requests,
		steps:     steps,
		analytics: analytics,
		months:    months,
		logger:    orNop(logger),
		now:       time.Now,
	}
}

// Dashboard implements AnalyticsService
func (s *analyticsServiceImpl) Dashboard(ctx context.Context, actor entity.Actor) (*Dashboard, error) {
	now := s.now().UTC()
	vis := VisibilityFor(actor)

	counts, err := s.analytics.CountByStatus(ctx, vis)
	if err != nil {
		return nil, s.fail("count by status", actor, err)
	}
	byDepartment, err := s.analytics.CountByDepartment(ctx, vis)
	if err != nil {
		return nil, s.fail("count by department", actor, err)
	}
	costs, err := s.analytics.CostTotals(ctx, vis)
	if err != nil {
		return nil, s.fail("cost totals", actor, err)
	}
	overview, err := s.analytics.ActorActivity(ctx, actor.ID)
	if err != nil {
		return nil, s.fail("actor activity", actor, err)
	}

	since := monthStart(now).AddDate(0, -(s.months - 1), 0)
	monthly, err := s.analytics.MonthlyCounts(ctx, vis, since)
	if err != nil {
		return nil, s.fail("monthly counts", actor, err)
	}
	steps, err := s.steps.ListSince(ctx, since)
	if err != nil {
		return nil, s.fail("ledger", actor, err)
	}

	dash := &Dashboard{
		Role:                 actor.Role,
		RequestsByStatus:     counts,
		RequestsByDepartment: byDepartment,
		InProgress:           counts[domainwf.StatusMGApproved] + counts[domainwf.StatusAccountingReviewed],
		Costs:                costs,
		AvgHandleTimeDays:    averageHandleTime(steps),
		Monthly:              fillMonths(monthly, since, s.months),
		Overview:             overview,
	}
	for _, n := range counts {
		dash.TotalVisible += n
	}

	if err := s.fillQueue(ctx, actor, now, dash); err != nil {
		return nil, s.fail("queue", actor, err)
	}

	current := dash.Monthly[len(dash.Monthly)-1]
	previous := dash.Monthly[len(dash.Monthly)-2]
	dash.ValidationRate = validationRate(current)
	dash.Trends = map[string]Trend{
		"requests": calculateTrend(current.Created, previous.Created),
		"approved": calculateTrend(current.Approved, previous.Approved),
	}
	return dash, nil
}

func (s *analyticsServiceImpl) fail(what string, actor entity.Actor, err error) error {
	s.logger.Error("Failed to compute dashboard", "part", what, "actor_id", actor.ID, "error", err)
	return fmt.Errorf("%w: %s: %w", domainwf.ErrPersistence, what, err)
}

// fillQueue counts the requests waiting on the actor and the age of the oldest
func (s *analyticsServiceImpl) fillQueue(ctx context.Context, actor entity.Actor, now time.Time, dash *Dashboard) error {
	vis, statuses := queueFor(s.policy, actor)
	if len(statuses) == 0 {
		return nil
	}
	oldest, total, err := s.requests.List(ctx, port.RequestFilter{
		Visibility: vis,
		Statuses:   statuses,
		OrderBy:    "created_at",
		Limit:      1,
	})
	if err != nil {
		return err
	}
	dash.AwaitingMyAction = total
	if len(oldest) > 0 {
		if days := int(now.Sub(oldest[0].CreatedAt).Hours() / 24); days > 0 {
			dash.QueueOldestWaitingDays = days
		}
	}
	return nil
}

// averageHandleTime measures each decision from the ledger entry before it.
// Steps arrive grouped by request, oldest first.
func averageHandleTime(steps []*entity.RequestStep) map[domainwf.Role]float64 {
	totals := map[domainwf.Role]time.Duration{}
	counts := map[domainwf.Role]int{}

	for i := 1; i < len(steps); i++ {
		prev, cur := steps[i-1], steps[i]
		if prev.RequestID != cur.RequestID || cur.Action == entity.StepSubmitted {
			continue
		}
		if d := cur.CreatedAt.Sub(prev.CreatedAt); d >= 0 {
			totals[cur.ActorRole] += d
			counts[cur.ActorRole]++
		}
	}

	result := map[domainwf.Role]float64{
		domainwf.RoleMG:         0,
		domainwf.RoleAccounting: 0,
		domainwf.RoleDirector:   0,
	}
	for role, total := range totals {
		days := total.Hours() / 24 / float64(counts[role])
		result[role] = math.Round(days*100) / 100
	}
	return result
}

// fillMonths returns exactly n consecutive months starting at since
func fillMonths(counts []port.MonthlyCount, since time.Time, n int) []port.MonthlyCount {
	byMonth := make(map[string]port.MonthlyCount, len(counts))
	for _, c := range counts {
		byMonth[c.Month] = c
	}

	months := make([]port.MonthlyCount, 0, n)
	for i := 0; i < n; i++ {
		key := since.AddDate(0, i, 0).Format("2006-01")
		c, ok := byMonth[key]
		if !ok {
			c = port.MonthlyCount{Month: key}
		}
		months = append(months, c)
	}
	return months
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// validationRate is the share of this month's creations matched by approvals, in percent
func validationRate(m port.MonthlyCount) float64 {
	if m.Created == 0 {
		return 0
	}
	rate := float64(m.Approved) / float64(m.Created) * 100
	return math.Min(math.Round(rate*10)/10, 100)
}

func calculateTrend(current, previous int) Trend {
	if current == 0 && previous == 0 {
		return Trend{Value: 0, Direction: TrendNeutral}
	}
	if previous == 0 {
		return Trend{Value: 100, Direction: TrendUp}
	}

	change := float64(current-previous) / float64(previous) * 100
	rounded := int(math.Round(change))
	// A real but tiny change still shows a direction
	if rounded == 0 && current != previous {
		if change > 0 {
			rounded = 1
		} else {
			rounded = -1
		}
	}

	switch {
	case rounded > 0:
		return Trend{Value: rounded, Direction: TrendUp}
	case rounded < 0:
		return Trend{Value: -rounded, Direction: TrendDown}
	default:
		return Trend{Value: 0, Direction: TrendNeutral}
	}
}
