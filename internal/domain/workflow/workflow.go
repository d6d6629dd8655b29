// Package workflow defines domain types for revision workflows: ordered
// approval levels, per-level approver decisions, append-only level comments
// and the revision round ledger.
package workflow

import (
	"fmt"
	"time"

	"github.com/opsdeck/reviewflow/internal/domain"
)

// Type identifies how a workflow's levels are evaluated.
type Type string

const (
	TypeStructured Type = "structured"
	TypeSimple     Type = "simple"
	TypeParallel   Type = "parallel"
)

// Status represents the lifecycle state of a revision workflow.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusInReview          Status = "in_review"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusRevisionRequested Status = "revision_requested"
)

// Terminal reports whether no further decisions are expected for the workflow.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// LevelStatus represents the state of one approval level.
type LevelStatus string

const (
	LevelPending    LevelStatus = "pending"
	LevelInProgress LevelStatus = "in_progress"
	LevelApproved   LevelStatus = "approved"
	LevelRejected   LevelStatus = "rejected"
)

// ApproverCategory classifies who may act at a level.
type ApproverCategory string

const (
	CategoryClient       ApproverCategory = "client"
	CategoryEmployee     ApproverCategory = "employee"
	CategoryManager      ApproverCategory = "manager"
	CategoryDirector     ApproverCategory = "director"
	CategorySpecificUser ApproverCategory = "specific_user"
)

// ApproverStatus represents one approver's standing within a level.
type ApproverStatus string

const (
	ApproverPending   ApproverStatus = "pending"
	ApproverApproved  ApproverStatus = "approved"
	ApproverRejected  ApproverStatus = "rejected"
	ApproverDelegated ApproverStatus = "delegated"
)

// CommentType tags a level comment by the action that produced it.
type CommentType string

const (
	CommentRevisionRequest CommentType = "revision_request"
	CommentApprovalNote    CommentType = "approval_note"
	CommentFeedback        CommentType = "feedback"
)

// Workflow is the orchestrated review process for one deliverable version.
// Mutated exclusively by the orchestrator; never deleted, only superseded by
// a new version's workflow.
type Workflow struct {
	ID            string    `json:"id"`
	VersionID     string    `json:"version_id"`
	TenantID      string    `json:"tenant_id"`
	Type          Type      `json:"type"`
	Status        Status    `json:"status"`
	CurrentLevel  int       `json:"current_level"`
	RevisionRound int       `json:"revision_round"`
	ChecklistID   string    `json:"checklist_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Levels []Level         `json:"levels,omitempty"`
	Rounds []RevisionRound `json:"rounds,omitempty"`
}

// Level is one sequential gate within a workflow. Transitions always move to
// the next higher level number; only a revision request moves backward.
type Level struct {
	ID           string           `json:"id"`
	WorkflowID   string           `json:"workflow_id"`
	TenantID     string           `json:"tenant_id"`
	LevelNumber  int              `json:"level_number"`
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	Category     ApproverCategory `json:"approver_category"`
	IsRequired   bool             `json:"is_required"`
	CanDelegate  bool             `json:"can_delegate"`
	MinApprovers int              `json:"min_approvers"`
	MaxApprovers int              `json:"max_approvers,omitempty"`
	Deadline     *time.Time       `json:"deadline,omitempty"`
	Status       LevelStatus      `json:"status"`
	StartedAt    *time.Time       `json:"started_at,omitempty"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`

	Approvers []Approver `json:"approvers,omitempty"`
	Comments  []Comment  `json:"comments,omitempty"`
}

// Approver is one person's standing within a level. Created lazily the first
// time an identity acts on the level; at most one row per identity per level.
type Approver struct {
	ID         string           `json:"id"`
	LevelID    string           `json:"level_id"`
	TenantID   string           `json:"tenant_id"`
	Category   ApproverCategory `json:"category"`
	UserID     string           `json:"user_id,omitempty"`
	Name       string           `json:"name,omitempty"`
	Email      string           `json:"email,omitempty"`
	Status     ApproverStatus   `json:"status"`
	Comment    string           `json:"comment,omitempty"`
	DecidedAt  *time.Time       `json:"decided_at,omitempty"`
	DelegateTo string           `json:"delegate_to,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Comment is an append-only annotation attached to a level.
type Comment struct {
	ID             string           `json:"id"`
	LevelID        string           `json:"level_id"`
	TenantID       string           `json:"tenant_id"`
	Type           CommentType      `json:"type"`
	AuthorCategory ApproverCategory `json:"author_category"`
	AuthorName     string           `json:"author_name,omitempty"`
	Body           string           `json:"body"`
	CreatedAt      time.Time        `json:"created_at"`
}

// RevisionRound records one "send back to start" event. Immutable once
// created; the set of rounds is the authoritative history of rework cycles.
type RevisionRound struct {
	ID          string    `json:"id"`
	WorkflowID  string    `json:"workflow_id"`
	TenantID    string    `json:"tenant_id"`
	RoundNumber int       `json:"round_number"`
	RequestedBy string    `json:"requested_by"`
	Reason      string    `json:"reason"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// LevelSpec describes one level at workflow creation time.
type LevelSpec struct {
	Name          string           `json:"name"`
	Description   string           `json:"description,omitempty"`
	Category      ApproverCategory `json:"approver_category"`
	IsRequired    *bool            `json:"is_required,omitempty"`
	CanDelegate   bool             `json:"can_delegate,omitempty"`
	MinApprovers  int              `json:"min_approvers,omitempty"`
	MaxApprovers  int              `json:"max_approvers,omitempty"`
	Deadline      *time.Time       `json:"deadline,omitempty"`
	ApproverName  string           `json:"approver_name,omitempty"`
	ApproverEmail string           `json:"approver_email,omitempty"`
}

// CreateRequest holds the fields for creating a workflow.
type CreateRequest struct {
	Type                Type        `json:"type,omitempty"`
	Levels              []LevelSpec `json:"levels"`
	ChecklistTemplateID string      `json:"checklist_template_id,omitempty"`
}

var validCategories = map[ApproverCategory]bool{
	CategoryClient:       true,
	CategoryEmployee:     true,
	CategoryManager:      true,
	CategoryDirector:     true,
	CategorySpecificUser: true,
}

// Validate checks the create request for correctness.
func (r *CreateRequest) Validate() error {
	switch r.Type {
	case "", TypeStructured, TypeSimple, TypeParallel:
	default:
		return fmt.Errorf("unknown workflow type %q: %w", r.Type, domain.ErrValidation)
	}
	if len(r.Levels) == 0 {
		return fmt.Errorf("at least one level is required: %w", domain.ErrValidation)
	}
	for i := range r.Levels {
		l := &r.Levels[i]
		if l.Name == "" {
			return fmt.Errorf("level %d: name is required: %w", i+1, domain.ErrValidation)
		}
		if !validCategories[l.Category] {
			return fmt.Errorf("level %d: unknown approver category %q: %w", i+1, l.Category, domain.ErrValidation)
		}
		if l.MinApprovers < 0 {
			return fmt.Errorf("level %d: min_approvers must not be negative: %w", i+1, domain.ErrValidation)
		}
		if l.MaxApprovers < 0 {
			return fmt.Errorf("level %d: max_approvers must not be negative: %w", i+1, domain.ErrValidation)
		}
		if l.MaxApprovers > 0 && l.MinApprovers > l.MaxApprovers {
			return fmt.Errorf("level %d: min_approvers exceeds max_approvers: %w", i+1, domain.ErrValidation)
		}
	}
	return nil
}

// NextLevel returns the level with the smallest level number strictly greater
// than after, or nil if none exists.
func (w *Workflow) NextLevel(after int) *Level {
	var next *Level
	for i := range w.Levels {
		l := &w.Levels[i]
		if l.LevelNumber <= after {
			continue
		}
		if next == nil || l.LevelNumber < next.LevelNumber {
			next = l
		}
	}
	return next
}

// LevelByID returns the level with the given ID, or nil.
func (w *Workflow) LevelByID(id string) *Level {
	for i := range w.Levels {
		if w.Levels[i].ID == id {
			return &w.Levels[i]
		}
	}
	return nil
}

// ApprovedCount returns the number of approvers on the level whose current
// decision is approved.
func (l *Level) ApprovedCount() int {
	n := 0
	for i := range l.Approvers {
		if l.Approvers[i].Status == ApproverApproved {
			n++
		}
	}
	return n
}

// QuorumMet reports whether the level's quorum is satisfied: the count of
// approved decisions has reached MinApprovers. Pure; safe to call repeatedly.
func (l *Level) QuorumMet() bool {
	min := l.MinApprovers
	if min < 1 {
		min = 1
	}
	return l.ApprovedCount() >= min
}
