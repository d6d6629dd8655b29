package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/opsdeck/reviewflow/internal/domain"
)

func TestQuorumMonotonicity(t *testing.T) {
	const n = 3
	level := Level{MinApprovers: n}

	for i := 0; i < n; i++ {
		if level.QuorumMet() {
			t.Fatalf("quorum met with only %d of %d approvals", i, n)
		}
		level.Approvers = append(level.Approvers, Approver{
			ID:     fmt.Sprintf("a%d", i),
			Status: ApproverApproved,
		})
	}
	if !level.QuorumMet() {
		t.Fatalf("quorum not met at %d approvals", n)
	}

	// Further approvals never un-meet the quorum.
	level.Approvers = append(level.Approvers, Approver{ID: "extra", Status: ApproverApproved})
	if !level.QuorumMet() {
		t.Fatal("quorum lost after an additional approval")
	}
}

func TestQuorumIgnoresNonApprovedStatuses(t *testing.T) {
	level := Level{
		MinApprovers: 1,
		Approvers: []Approver{
			{Status: ApproverPending},
			{Status: ApproverRejected},
			{Status: ApproverDelegated},
		},
	}
	if level.QuorumMet() {
		t.Fatal("quorum met without any approved decision")
	}
}

func TestQuorumDefaultsToOne(t *testing.T) {
	level := Level{MinApprovers: 0, Approvers: []Approver{{Status: ApproverApproved}}}
	if !level.QuorumMet() {
		t.Fatal("expected a zero threshold to behave as one")
	}
}

func TestNextLevel(t *testing.T) {
	w := Workflow{Levels: []Level{
		{ID: "l3", LevelNumber: 3},
		{ID: "l1", LevelNumber: 1},
		{ID: "l2", LevelNumber: 2},
	}}

	next := w.NextLevel(1)
	if next == nil || next.ID != "l2" {
		t.Fatalf("expected l2, got %+v", next)
	}
	if w.NextLevel(3) != nil {
		t.Fatal("expected no level after the last one")
	}
}

func TestCreateRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CreateRequest
		wantErr bool
	}{
		{
			name: "valid",
			req: CreateRequest{Levels: []LevelSpec{
				{Name: "Review", Category: CategoryManager},
			}},
		},
		{
			name:    "no levels",
			req:     CreateRequest{},
			wantErr: true,
		},
		{
			name: "unknown type",
			req: CreateRequest{Type: "waterfall", Levels: []LevelSpec{
				{Name: "Review", Category: CategoryManager},
			}},
			wantErr: true,
		},
		{
			name: "missing level name",
			req: CreateRequest{Levels: []LevelSpec{
				{Category: CategoryManager},
			}},
			wantErr: true,
		},
		{
			name: "unknown category",
			req: CreateRequest{Levels: []LevelSpec{
				{Name: "Review", Category: "intern"},
			}},
			wantErr: true,
		},
		{
			name: "min above max",
			req: CreateRequest{Levels: []LevelSpec{
				{Name: "Review", Category: CategoryManager, MinApprovers: 3, MaxApprovers: 2},
			}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr && !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestActionCommentType(t *testing.T) {
	if got := ActionApprove.CommentType(); got != CommentApprovalNote {
		t.Fatalf("expected approval_note, got %q", got)
	}
	if got := ActionRequestRevision.CommentType(); got != CommentRevisionRequest {
		t.Fatalf("expected revision_request, got %q", got)
	}
	if got := ActionReject.CommentType(); got != CommentFeedback {
		t.Fatalf("expected feedback, got %q", got)
	}
}

func TestDefaultCapabilities(t *testing.T) {
	caps := DefaultCapabilities()

	if !caps.Allows(CategoryEmployee, ActionApprove) {
		t.Fatal("employee should be able to approve")
	}
	if caps.Allows(CategoryEmployee, ActionRequestRevision) {
		t.Fatal("employee should not be able to request revision")
	}
	if !caps.Allows(CategoryClient, ActionRequestRevision) {
		t.Fatal("client should be able to request revision")
	}
	if caps.Allows("unknown", ActionApprove) {
		t.Fatal("unknown categories must be denied")
	}
	if err := caps.Check(CategoryEmployee, ActionRequestRevision); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecisionRequestValidate(t *testing.T) {
	valid := DecisionRequest{Action: ActionApprove}
	valid.Actor.Name = "Mara"
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	noActor := DecisionRequest{Action: ActionApprove}
	if err := noActor.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty actor, got %v", err)
	}

	badAction := DecisionRequest{Action: "defer"}
	badAction.Actor.Name = "Mara"
	if err := badAction.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown action, got %v", err)
	}
}
