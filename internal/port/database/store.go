// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/opsdeck/reviewflow/internal/domain/deliverable"
	"github.com/opsdeck/reviewflow/internal/domain/quality"
	"github.com/opsdeck/reviewflow/internal/domain/workflow"
)

// Store is the port interface for database operations.
//
// Methods prefixed ForUpdate acquire a row lock and must be called inside
// WithTx; the engine relies on them to serialize racing decisions on the
// same workflow or checklist.
type Store interface {
	// WithTx runs fn inside a single database transaction. Store calls made
	// with the context passed to fn join that transaction. fn returning an
	// error rolls back; otherwise the transaction commits.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// Deliverables and versions
	CreateDeliverable(ctx context.Context, d *deliverable.Deliverable) error
	GetDeliverable(ctx context.Context, id string) (*deliverable.Deliverable, error)
	ListDeliverables(ctx context.Context) ([]deliverable.Deliverable, error)
	CreateVersion(ctx context.Context, v *deliverable.Version) error
	GetVersion(ctx context.Context, id string) (*deliverable.Version, error)
	ListVersions(ctx context.Context, deliverableID string) ([]deliverable.Version, error)
	UpdateVersionStatus(ctx context.Context, id string, status deliverable.VersionStatus, approvedBy string, approvedAt *time.Time) error

	// Workflows
	CreateWorkflow(ctx context.Context, w *workflow.Workflow) error
	GetWorkflowByVersion(ctx context.Context, versionID string) (*workflow.Workflow, error)
	GetWorkflowForUpdate(ctx context.Context, id string) (*workflow.Workflow, error)
	UpdateWorkflow(ctx context.Context, id string, status workflow.Status, currentLevel, revisionRound int) error

	// Levels and approvers
	GetLevel(ctx context.Context, id string) (*workflow.Level, error)
	ListApprovers(ctx context.Context, levelID string) ([]workflow.Approver, error)
	UpsertApprover(ctx context.Context, a *workflow.Approver) error
	UpdateLevelStatus(ctx context.Context, id string, status workflow.LevelStatus, startedAt, completedAt *time.Time) error
	ResetLevels(ctx context.Context, workflowID string) error

	// Comments (append-only)
	AddComment(ctx context.Context, c *workflow.Comment) error
	ListComments(ctx context.Context, levelID string) ([]workflow.Comment, error)

	// Revision rounds (append-only)
	CreateRound(ctx context.Context, r *workflow.RevisionRound) error
	ListRounds(ctx context.Context, workflowID string) ([]workflow.RevisionRound, error)

	// Checklists and checks
	CreateChecklist(ctx context.Context, c *quality.Checklist) error
	GetChecklistByVersion(ctx context.Context, versionID string) (*quality.Checklist, error)
	GetChecklistForUpdate(ctx context.Context, id string) (*quality.Checklist, error)
	GetCheck(ctx context.Context, id string) (*quality.Check, error)
	ListChecks(ctx context.Context, checklistID string) ([]quality.Check, error)
	UpdateCheck(ctx context.Context, c *quality.Check) error
	UpdateChecklistAggregate(ctx context.Context, c *quality.Checklist) error

	// Checklist templates
	CreateTemplate(ctx context.Context, t *quality.Template) error
	GetTemplate(ctx context.Context, id string) (*quality.Template, error)
	ListTemplates(ctx context.Context) ([]quality.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
}
