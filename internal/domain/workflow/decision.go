package workflow

import (
	"fmt"

	"github.com/opsdeck/reviewflow/internal/domain"
	"github.com/opsdeck/reviewflow/internal/domain/identity"
)

// Action is a decision submitted against an approval level.
type Action string

const (
	ActionApprove         Action = "approve"
	ActionReject          Action = "reject"
	ActionRequestRevision Action = "request_revision"
)

// DecisionRequest holds one actor's decision on a level.
type DecisionRequest struct {
	Action     Action           `json:"action"`
	Comment    string           `json:"comment,omitempty"`
	DelegateTo string           `json:"delegate_to,omitempty"`
	Actor      identity.Ref     `json:"actor"`
	Category   ApproverCategory `json:"category"`
}

// Validate checks the decision request for correctness.
func (r *DecisionRequest) Validate() error {
	switch r.Action {
	case ActionApprove, ActionReject, ActionRequestRevision:
	default:
		return fmt.Errorf("unknown action %q: %w", r.Action, domain.ErrValidation)
	}
	if r.Actor.Empty() {
		return fmt.Errorf("actor identity is required: %w", domain.ErrValidation)
	}
	if r.Category != "" && !validCategories[r.Category] {
		return fmt.Errorf("unknown actor category %q: %w", r.Category, domain.ErrValidation)
	}
	if len(r.Comment) > 4000 {
		return fmt.Errorf("comment exceeds 4000 characters: %w", domain.ErrValidation)
	}
	return nil
}

// CommentType returns the comment tag matching the decision action.
func (a Action) CommentType() CommentType {
	switch a {
	case ActionRequestRevision:
		return CommentRevisionRequest
	case ActionApprove:
		return CommentApprovalNote
	default:
		return CommentFeedback
	}
}
