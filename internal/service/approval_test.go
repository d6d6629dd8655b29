package service

import (
	"context"
	"testing"

	"github.com/opsdeck/reviewflow/internal/domain/identity"
	"github.com/opsdeck/reviewflow/internal/domain/workflow"
)

func levelFixture() *workflow.Level {
	return &workflow.Level{
		ID:           "lvl1",
		WorkflowID:   "wf1",
		TenantID:     "t1",
		LevelNumber:  1,
		Name:         "Internal review",
		Category:     workflow.CategoryManager,
		MinApprovers: 1,
		Status:       workflow.LevelPending,
	}
}

func TestRecordDecisionCreatesApproverLazily(t *testing.T) {
	store := &mockStore{}
	svc := NewApprovalService(store)

	approvers, err := svc.RecordDecision(context.Background(), levelFixture(), &workflow.DecisionRequest{
		Action: workflow.ActionApprove,
		Actor:  identity.Ref{UserID: "u1", Name: "Mara"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approvers) != 1 {
		t.Fatalf("expected 1 approver row, got %d", len(approvers))
	}
	a := approvers[0]
	if a.Status != workflow.ApproverApproved {
		t.Fatalf("expected approved, got %q", a.Status)
	}
	if a.DecidedAt == nil {
		t.Fatal("expected decision timestamp")
	}
	if a.Category != workflow.CategoryManager {
		t.Fatalf("expected category inherited from level, got %q", a.Category)
	}
}

func TestRecordDecisionIsIdempotentPerActor(t *testing.T) {
	store := &mockStore{}
	svc := NewApprovalService(store)
	level := levelFixture()
	actor := identity.Ref{UserID: "u1", Name: "Mara"}

	if _, err := svc.RecordDecision(context.Background(), level, &workflow.DecisionRequest{
		Action: workflow.ActionReject,
		Actor:  actor,
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The same actor changing their mind overwrites, never adds a row.
	approvers, err := svc.RecordDecision(context.Background(), level, &workflow.DecisionRequest{
		Action: workflow.ActionApprove,
		Actor:  actor,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approvers) != 1 {
		t.Fatalf("expected 1 approver row, got %d", len(approvers))
	}
	if approvers[0].Status != workflow.ApproverApproved {
		t.Fatalf("expected approved after overwrite, got %q", approvers[0].Status)
	}
}

func TestRecordDecisionMatchesByNameFallback(t *testing.T) {
	store := &mockStore{
		approvers: []workflow.Approver{{
			ID:      "a1",
			LevelID: "lvl1",
			Name:    "External Client",
			Status:  workflow.ApproverPending,
		}},
	}
	svc := NewApprovalService(store)

	// An external party with no user ID resolves to the pre-seeded row by name.
	approvers, err := svc.RecordDecision(context.Background(), levelFixture(), &workflow.DecisionRequest{
		Action: workflow.ActionApprove,
		Actor:  identity.Ref{Name: "external client"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approvers) != 1 {
		t.Fatalf("expected the existing row to be reused, got %d rows", len(approvers))
	}
	if approvers[0].ID != "a1" {
		t.Fatalf("expected row a1, got %q", approvers[0].ID)
	}
	if approvers[0].Status != workflow.ApproverApproved {
		t.Fatalf("expected approved, got %q", approvers[0].Status)
	}
}

func TestRecordDecisionDelegation(t *testing.T) {
	store := &mockStore{}
	svc := NewApprovalService(store)

	approvers, err := svc.RecordDecision(context.Background(), levelFixture(), &workflow.DecisionRequest{
		Action:     workflow.ActionRequestRevision,
		DelegateTo: "u9",
		Actor:      identity.Ref{UserID: "u1", Name: "Mara"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approvers[0].Status != workflow.ApproverDelegated {
		t.Fatalf("expected delegated, got %q", approvers[0].Status)
	}
	if approvers[0].DelegateTo != "u9" {
		t.Fatalf("expected delegate target u9, got %q", approvers[0].DelegateTo)
	}
}

func TestRecordDecisionRevisionWithoutTargetKeepsStatus(t *testing.T) {
	store := &mockStore{}
	svc := NewApprovalService(store)

	approvers, err := svc.RecordDecision(context.Background(), levelFixture(), &workflow.DecisionRequest{
		Action:  workflow.ActionRequestRevision,
		Comment: "please rework the intro",
		Actor:   identity.Ref{UserID: "u1", Name: "Mara"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approvers[0].Status != workflow.ApproverPending {
		t.Fatalf("expected pending (pure comment), got %q", approvers[0].Status)
	}

	comments, err := svc.ListComments(context.Background(), "lvl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(comments))
	}
	if comments[0].Type != workflow.CommentRevisionRequest {
		t.Fatalf("expected revision_request comment, got %q", comments[0].Type)
	}
	if comments[0].Body != "please rework the intro" {
		t.Fatalf("unexpected comment body %q", comments[0].Body)
	}
}

func TestRecordDecisionApprovalNoteComment(t *testing.T) {
	store := &mockStore{}
	svc := NewApprovalService(store)

	if _, err := svc.RecordDecision(context.Background(), levelFixture(), &workflow.DecisionRequest{
		Action:  workflow.ActionApprove,
		Comment: "looks good",
		Actor:   identity.Ref{UserID: "u1", Name: "Mara"},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	comments, err := svc.ListComments(context.Background(), "lvl1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(comments) != 1 || comments[0].Type != workflow.CommentApprovalNote {
		t.Fatalf("expected one approval_note comment, got %+v", comments)
	}
}
