package service

import (
	"context"
	"fmt"

	"github.com/opsdeck/reviewflow/internal/domain/workflow"
	"github.com/opsdeck/reviewflow/internal/port/database"
)

// RoundService is the revision round tracker: an append-only ledger of
// rework cycles. It never reads or mutates levels or checklists; it only
// persists history and hands the next round number back to the orchestrator.
type RoundService struct {
	store database.Store
}

// NewRoundService creates a RoundService.
func NewRoundService(store database.Store) *RoundService {
	return &RoundService{store: store}
}

// StartRound appends a new revision round for the workflow at the given
// round number (the workflow's current round + 1, supplied by the caller so
// the write joins the caller's transaction).
func (s *RoundService) StartRound(ctx context.Context, w *workflow.Workflow, requestedBy, reason string) (*workflow.RevisionRound, error) {
	if reason == "" {
		reason = "revision requested"
	}
	r := &workflow.RevisionRound{
		ID:          generateID(),
		WorkflowID:  w.ID,
		TenantID:    w.TenantID,
		RoundNumber: w.RevisionRound + 1,
		RequestedBy: requestedBy,
		Reason:      reason,
		Status:      "in_progress",
	}
	if err := s.store.CreateRound(ctx, r); err != nil {
		return nil, fmt.Errorf("create revision round: %w", err)
	}
	return r, nil
}

// CurrentRoundNumber returns the workflow's current revision round. The
// counter itself is maintained by the orchestrator.
func (s *RoundService) CurrentRoundNumber(w *workflow.Workflow) int {
	return w.RevisionRound
}

// ListRounds returns the round history for a workflow, oldest first.
func (s *RoundService) ListRounds(ctx context.Context, workflowID string) ([]workflow.RevisionRound, error) {
	return s.store.ListRounds(ctx, workflowID)
}
