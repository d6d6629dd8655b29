// Package quality defines domain types for quality-gate checklists: discrete
// pass/fail checks, the scored checklist aggregate, and the templates
// checklists are seeded from.
package quality

import (
	"fmt"
	"time"

	"github.com/opsdeck/reviewflow/internal/domain"
)

// ChecklistStatus is the aggregate state of a checklist.
type ChecklistStatus string

const (
	ChecklistPending    ChecklistStatus = "pending"
	ChecklistInProgress ChecklistStatus = "in_progress"
	ChecklistPassed     ChecklistStatus = "passed"
	ChecklistFailed     ChecklistStatus = "failed"
)

// CheckStatus is the state of one discrete check.
type CheckStatus string

const (
	CheckPending       CheckStatus = "pending"
	CheckInProgress    CheckStatus = "in_progress"
	CheckPassed        CheckStatus = "passed"
	CheckFailed        CheckStatus = "failed"
	CheckNotApplicable CheckStatus = "n_a"
)

// Checklist is the scoring container for a version's review.
//
// PassedAt and FailedAt are first-reached markers: they are written the first
// time the checklist enters that status and never cleared or overwritten,
// even if the aggregate later changes again. StatusChangedAt mirrors the
// current status.
type Checklist struct {
	ID              string          `json:"id"`
	WorkflowID      string          `json:"workflow_id"`
	TenantID        string          `json:"tenant_id"`
	TemplateID      string          `json:"template_id,omitempty"`
	Status          ChecklistStatus `json:"status"`
	OverallScore    *float64        `json:"overall_score,omitempty"`
	ReviewedBy      string          `json:"reviewed_by,omitempty"`
	PassedAt        *time.Time      `json:"passed_at,omitempty"`
	FailedAt        *time.Time      `json:"failed_at,omitempty"`
	StatusChangedAt *time.Time      `json:"status_changed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Checks []Check `json:"checks,omitempty"`
}

// Check is one discrete pass/fail item within a checklist.
type Check struct {
	ID          string      `json:"id"`
	ChecklistID string      `json:"checklist_id"`
	TenantID    string      `json:"tenant_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	IsRequired  bool        `json:"is_required"`
	Status      CheckStatus `json:"status"`
	Notes       string      `json:"notes,omitempty"`
	Evidence    []string    `json:"evidence,omitempty"`
	Score       *float64    `json:"score,omitempty"`
	CheckedBy   string      `json:"checked_by,omitempty"`
	CheckedAt   *time.Time  `json:"checked_at,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// Template is a reusable checklist definition.
type Template struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	Items []TemplateItem `json:"items,omitempty"`
}

// TemplateItem is one check definition within a template.
type TemplateItem struct {
	ID          string `json:"id"`
	TemplateID  string `json:"template_id"`
	Position    int    `json:"position"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsRequired  bool   `json:"is_required"`
}

// CreateTemplateRequest holds the fields for creating a template.
type CreateTemplateRequest struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Items       []TemplateItemSpec `json:"items"`
}

// TemplateItemSpec describes one item at template creation time.
type TemplateItemSpec struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	IsRequired  *bool  `json:"is_required,omitempty"`
}

// UpdateCheckRequest holds the fields for updating one check. Status is
// mandatory; the remaining fields are partial-update: a nil field leaves the
// stored value untouched.
type UpdateCheckRequest struct {
	Status   CheckStatus `json:"status"`
	Notes    *string     `json:"notes,omitempty"`
	Evidence []string    `json:"evidence,omitempty"`
	Score    *float64    `json:"score,omitempty"`
}

// Validate checks the template create request for correctness.
func (r *CreateTemplateRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("template name is required: %w", domain.ErrValidation)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("at least one item is required: %w", domain.ErrValidation)
	}
	for i, item := range r.Items {
		if item.Title == "" {
			return fmt.Errorf("item %d: title is required: %w", i+1, domain.ErrValidation)
		}
	}
	return nil
}

// Validate checks the check update request for correctness.
func (r *UpdateCheckRequest) Validate() error {
	switch r.Status {
	case CheckPending, CheckInProgress, CheckPassed, CheckFailed, CheckNotApplicable:
	default:
		return fmt.Errorf("unknown check status %q: %w", r.Status, domain.ErrValidation)
	}
	if r.Score != nil && (*r.Score < 0 || *r.Score > 100) {
		return fmt.Errorf("score must be between 0 and 100: %w", domain.ErrValidation)
	}
	if r.Notes != nil && len(*r.Notes) > 4000 {
		return fmt.Errorf("notes exceed 4000 characters: %w", domain.ErrValidation)
	}
	return nil
}
