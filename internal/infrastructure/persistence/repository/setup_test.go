package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/purchase-approval/internal/domain/entity"
	"github.com/garyjia/purchase-approval/internal/domain/workflow"
	"github.com/garyjia/purchase-approval/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/purchase-approval/migrations"
	"github.com/garyjia/purchase-approval/pkg/database"
)

type testDB struct {
	db        *database.DB
	tx        *sqlite.DB
	requests  *PurchaseRequestRepository
	steps     *RequestStepRepository
	store     *TransitionStore
	users     *UserRepository
	files     *AttachmentRepository
	analytics *AnalyticsRepository
}

func newTestDB(t *testing.T) *testDB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 4,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).Run(migrations.FS))

	tdb := &testDB{
		db:        db,
		tx:        sqlite.NewDB(db.DB, logger),
		requests:  NewPurchaseRequestRepository(db.DB, logger),
		steps:     NewRequestStepRepository(db.DB, logger),
		users:     NewUserRepository(db.DB, logger),
		files:     NewAttachmentRepository(db.DB, logger),
		analytics: NewAnalyticsRepository(db.DB, logger),
	}
	tdb.store = NewTransitionStore(tdb.tx, tdb.requests, tdb.steps)
	return tdb
}

var baseTime = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)

type requestOpt func(*entity.PurchaseRequest)

func (tdb *testDB) insertRequest(t *testing.T, opts ...requestOpt) *entity.PurchaseRequest {
	t.Helper()
	req := &entity.PurchaseRequest{
		RequesterID:     "u-emp",
		Department:      "IT",
		ItemDescription: "Laptop",
		Quantity:        1,
		EstimatedCost:   decimal.RequireFromString("1200000.50"),
		Urgency:         entity.UrgencyHigh,
		Justification:   "Replacement for broken unit",
		Status:          workflow.StatusPending,
		Version:         1,
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	}
	for _, opt := range opts {
		opt(req)
	}
	step := &entity.RequestStep{
		ActorID:   req.RequesterID,
		ActorRole: workflow.RoleEmployee,
		Action:    entity.StepSubmitted,
		Comment:   "Request submitted",
		CreatedAt: req.CreatedAt,
	}
	require.NoError(t, tdb.store.CreateWithStep(context.Background(), req, step))

	// Seeded non-pending rows skip the engine; write the status directly
	if req.Status != workflow.StatusPending || req.RejectedByRole != "" {
		_, err := tdb.db.Exec(`UPDATE purchase_requests SET status = ?, rejected_by_role = ? WHERE id = ?`,
			string(req.Status), nullString(string(req.RejectedByRole)), req.ID)
		require.NoError(t, err)
	}
	return req
}
