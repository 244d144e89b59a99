package repository

import (
	"context"

	"github.com/garyjia/purchase-approval/internal/application/port"
	"github.com/garyjia/purchase-approval/internal/domain/entity"
)

// TransitionStore commits a request write and its ledger entry in one transaction
type TransitionStore struct {
	txManager port.TransactionManager
	requests  port.PurchaseRequestRepository
	steps     port.RequestStepRepository
}

// NewTransitionStore composes the request and step repositories under a transaction manager
func NewTransitionStore(
	txManager port.TransactionManager,
	requests port.PurchaseRequestRepository,
	steps port.RequestStepRepository,
) *TransitionStore {
	return &TransitionStore{
		txManager: txManager,
		requests:  requests,
		steps:     steps,
	}
}

// CreateWithStep inserts the request and its submitted step atomically
func (s *TransitionStore) CreateWithStep(ctx context.Context, req *entity.PurchaseRequest, step *entity.RequestStep) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.Create(txCtx, req); err != nil {
			return err
		}
		step.RequestID = req.ID
		return s.steps.Append(txCtx, step)
	})
	if err != nil {
		// The insert was rolled back; do not leak a dangling id
		req.ID = 0
		step.ID = 0
		step.RequestID = 0
	}
	return err
}

// SaveTransition applies the version-checked update and appends the step atomically
func (s *TransitionStore) SaveTransition(ctx context.Context, req *entity.PurchaseRequest, expectedVersion int64, step *entity.RequestStep) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.requests.UpdateWorkflow(txCtx, req, expectedVersion); err != nil {
			return err
		}
		step.RequestID = req.ID
		return s.steps.Append(txCtx, step)
	})
	if err != nil {
		step.ID = 0
	}
	return err
}

// Verify interface compliance
var _ port.TransitionStore = (*TransitionStore)(nil)
