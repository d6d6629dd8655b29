package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/reviewflow/internal/domain/identity"
	"github.com/opsdeck/reviewflow/internal/domain/workflow"
	"github.com/opsdeck/reviewflow/internal/port/database"
)

// ApprovalService is the approval level engine: it records one actor's
// decision against a level and evaluates quorum. It never touches workflow
// or version state; that is the orchestrator's job.
type ApprovalService struct {
	store database.Store
}

// NewApprovalService creates an ApprovalService.
func NewApprovalService(store database.Store) *ApprovalService {
	return &ApprovalService{store: store}
}

// RecordDecision applies a decision to the level's approver set and returns
// the updated set.
//
// The actor is resolved against existing approver rows by user ID first,
// then by display name, and a new pending row is created when neither
// matches. Decisions are idempotent per actor: acting again overwrites the
// actor's previous decision rather than adding a second row.
//
// Callers run this inside the orchestrator's transaction; the level row is
// already locked, so the returned approver set is the one the quorum check
// will see.
func (s *ApprovalService) RecordDecision(ctx context.Context, level *workflow.Level, req *workflow.DecisionRequest) ([]workflow.Approver, error) {
	approvers, err := s.store.ListApprovers(ctx, level.ID)
	if err != nil {
		return nil, fmt.Errorf("list approvers: %w", err)
	}

	a := resolveApprover(approvers, req.Actor)
	if a == nil {
		category := req.Category
		if category == "" {
			category = level.Category
		}
		a = &workflow.Approver{
			ID:       generateID(),
			LevelID:  level.ID,
			TenantID: level.TenantID,
			Category: category,
			UserID:   req.Actor.UserID,
			Name:     req.Actor.Display(),
			Email:    req.Actor.Email,
			Status:   workflow.ApproverPending,
		}
	}

	now := time.Now().UTC()
	switch req.Action {
	case workflow.ActionApprove:
		a.Status = workflow.ApproverApproved
		a.DecidedAt = &now
	case workflow.ActionReject:
		a.Status = workflow.ApproverRejected
		a.DecidedAt = &now
	case workflow.ActionRequestRevision:
		// A revision request with a delegate target reassigns the seat;
		// without one it is a pure comment and leaves the decision as is.
		if req.DelegateTo != "" {
			a.Status = workflow.ApproverDelegated
			a.DelegateTo = req.DelegateTo
			a.DecidedAt = &now
		}
	}
	if req.Comment != "" {
		a.Comment = req.Comment
	}

	if err := s.store.UpsertApprover(ctx, a); err != nil {
		return nil, fmt.Errorf("upsert approver: %w", err)
	}

	if req.Comment != "" {
		c := &workflow.Comment{
			ID:             generateID(),
			LevelID:        level.ID,
			TenantID:       level.TenantID,
			Type:           req.Action.CommentType(),
			AuthorCategory: a.Category,
			AuthorName:     a.Name,
			Body:           req.Comment,
		}
		if err := s.store.AddComment(ctx, c); err != nil {
			return nil, fmt.Errorf("add comment: %w", err)
		}
	}

	updated, err := s.store.ListApprovers(ctx, level.ID)
	if err != nil {
		return nil, fmt.Errorf("reload approvers: %w", err)
	}
	return updated, nil
}

// ListComments returns the append-only comment trail for a level.
func (s *ApprovalService) ListComments(ctx context.Context, levelID string) ([]workflow.Comment, error) {
	return s.store.ListComments(ctx, levelID)
}

// resolveApprover finds the approver row matching the actor, applying the
// identity resolution precedence: user ID match first, display name second.
func resolveApprover(approvers []workflow.Approver, actor identity.Ref) *workflow.Approver {
	if actor.UserID != "" {
		for i := range approvers {
			if approvers[i].UserID == actor.UserID {
				return &approvers[i]
			}
		}
	}
	for i := range approvers {
		m := identity.Matcher{UserID: approvers[i].UserID, Name: approvers[i].Name}
		if m.Match(actor) {
			return &approvers[i]
		}
	}
	return nil
}
