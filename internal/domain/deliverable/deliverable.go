// Package deliverable defines domain types for deliverables and their versions.
package deliverable

import (
	"fmt"
	"strings"
	"time"

	"github.com/opsdeck/reviewflow/internal/domain"
)

// VersionStatus represents the lifecycle state of a deliverable version.
type VersionStatus string

const (
	VersionDraft    VersionStatus = "draft"
	VersionInReview VersionStatus = "in_review"
	VersionApproved VersionStatus = "approved"
	VersionRejected VersionStatus = "rejected"
)

// Deliverable is a produced artifact under review, owning a sequence of versions.
type Deliverable struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	ProjectID   string    `json:"project_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Versions []Version `json:"versions,omitempty"`
}

// Version is one revision of a deliverable. Version numbers are monotonically
// increasing per deliverable. At most one active revision workflow exists per
// version.
type Version struct {
	ID            string        `json:"id"`
	DeliverableID string        `json:"deliverable_id"`
	TenantID      string        `json:"tenant_id"`
	VersionNumber int           `json:"version_number"`
	Status        VersionStatus `json:"status"`
	SubmittedBy   string        `json:"submitted_by,omitempty"`
	ApprovedBy    string        `json:"approved_by,omitempty"`
	ApprovedAt    *time.Time    `json:"approved_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CreateRequest holds the fields for creating a deliverable.
type CreateRequest struct {
	Name        string `json:"name"`
	ProjectID   string `json:"project_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// SubmitVersionRequest holds the fields for submitting a new version.
type SubmitVersionRequest struct {
	SubmittedBy string `json:"submitted_by,omitempty"`
}

// Validate checks the create request for correctness.
func (r *CreateRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if len(name) > 255 {
		return fmt.Errorf("name exceeds 255 characters: %w", domain.ErrValidation)
	}
	if len(r.Description) > 2000 {
		return fmt.Errorf("description exceeds 2000 characters: %w", domain.ErrValidation)
	}
	return nil
}

// Terminal reports whether the version can no longer change through review.
func (s VersionStatus) Terminal() bool {
	return s == VersionApproved || s == VersionRejected
}
