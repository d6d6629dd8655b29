package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/reviewflow/internal/domain/workflow"
)

// CreateWorkflow inserts a workflow with its levels and any pre-seeded
// approvers. Callers wrap this in WithTx together with the checklist seed.
func (s *Store) CreateWorkflow(ctx context.Context, w *workflow.Workflow) error {
	q := s.q(ctx)

	_, err := q.Exec(ctx,
		`INSERT INTO revision_workflows
		 (id, version_id, tenant_id, type, status, current_level, revision_round, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		w.ID, w.VersionID, w.TenantID, string(w.Type), string(w.Status),
		w.CurrentLevel, w.RevisionRound, w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert workflow: %w", err)
	}

	for i := range w.Levels {
		l := &w.Levels[i]
		_, err := q.Exec(ctx,
			`INSERT INTO approval_levels
			 (id, workflow_id, tenant_id, level_number, name, description, approver_category,
			  is_required, can_delegate, min_approvers, max_approvers, deadline, status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
			l.ID, w.ID, w.TenantID, l.LevelNumber, l.Name, l.Description, string(l.Category),
			l.IsRequired, l.CanDelegate, l.MinApprovers, l.MaxApprovers, l.Deadline, string(l.Status))
		if err != nil {
			return fmt.Errorf("insert level %d: %w", l.LevelNumber, err)
		}

		for j := range l.Approvers {
			if err := s.UpsertApprover(ctx, &l.Approvers[j]); err != nil {
				return fmt.Errorf("seed approver for level %d: %w", l.LevelNumber, err)
			}
		}
	}
	return nil
}

const workflowColumns = `w.id, w.version_id, w.tenant_id, w.type, w.status,
	w.current_level, w.revision_round, COALESCE(c.id::text, ''), w.created_at, w.updated_at`

func scanWorkflow(row scannable, w *workflow.Workflow) error {
	return row.Scan(&w.ID, &w.VersionID, &w.TenantID, &w.Type, &w.Status,
		&w.CurrentLevel, &w.RevisionRound, &w.ChecklistID, &w.CreatedAt, &w.UpdatedAt)
}

// GetWorkflowByVersion retrieves the workflow for a version with its levels
// nested (approvers and comments are loaded separately).
func (s *Store) GetWorkflowByVersion(ctx context.Context, versionID string) (*workflow.Workflow, error) {
	row := s.q(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM revision_workflows w
		 LEFT JOIN quality_checklists c ON c.workflow_id = w.id
		 WHERE w.version_id = $1 AND w.tenant_id = $2`, workflowColumns),
		versionID, tenantFromCtx(ctx))

	w := &workflow.Workflow{}
	if err := scanWorkflow(row, w); err != nil {
		return nil, notFoundWrap(err, "get workflow for version %s", versionID)
	}

	levels, err := s.listLevels(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	w.Levels = levels
	return w, nil
}

// GetWorkflowForUpdate retrieves a workflow by ID with its row locked until
// the surrounding transaction ends. Levels are nested.
func (s *Store) GetWorkflowForUpdate(ctx context.Context, id string) (*workflow.Workflow, error) {
	row := s.q(ctx).QueryRow(ctx,
		`SELECT id, version_id, tenant_id, type, status, current_level, revision_round, '', created_at, updated_at
		 FROM revision_workflows WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		id, tenantFromCtx(ctx))

	w := &workflow.Workflow{}
	if err := scanWorkflow(row, w); err != nil {
		return nil, notFoundWrap(err, "lock workflow %s", id)
	}

	levels, err := s.listLevels(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	w.Levels = levels
	return w, nil
}

// UpdateWorkflow writes a workflow's status, current level pointer and
// revision round counter.
func (s *Store) UpdateWorkflow(ctx context.Context, id string, status workflow.Status, currentLevel, revisionRound int) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE revision_workflows
		 SET status = $2, current_level = $3, revision_round = $4, updated_at = now()
		 WHERE id = $1 AND tenant_id = $5`,
		id, string(status), currentLevel, revisionRound, tenantFromCtx(ctx))
	return execExpectOne(tag, err, "update workflow %s", id)
}

// --- Levels ---

const levelColumns = `id, workflow_id, tenant_id, level_number, name, description, approver_category,
	is_required, can_delegate, min_approvers, max_approvers, deadline, status, started_at, completed_at`

func scanLevel(row scannable, l *workflow.Level) error {
	return row.Scan(&l.ID, &l.WorkflowID, &l.TenantID, &l.LevelNumber, &l.Name, &l.Description, &l.Category,
		&l.IsRequired, &l.CanDelegate, &l.MinApprovers, &l.MaxApprovers, &l.Deadline, &l.Status,
		&l.StartedAt, &l.CompletedAt)
}

// GetLevel retrieves an approval level by ID.
func (s *Store) GetLevel(ctx context.Context, id string) (*workflow.Level, error) {
	row := s.q(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM approval_levels WHERE id = $1 AND tenant_id = $2`, levelColumns),
		id, tenantFromCtx(ctx))

	l := &workflow.Level{}
	if err := scanLevel(row, l); err != nil {
		return nil, notFoundWrap(err, "get level %s", id)
	}
	return l, nil
}

func (s *Store) listLevels(ctx context.Context, workflowID string) ([]workflow.Level, error) {
	rows, err := s.q(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM approval_levels
		 WHERE workflow_id = $1 AND tenant_id = $2 ORDER BY level_number ASC`, levelColumns),
		workflowID, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list levels: %w", err)
	}
	defer rows.Close()

	var result []workflow.Level
	for rows.Next() {
		var l workflow.Level
		if err := scanLevel(rows, &l); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

// UpdateLevelStatus writes a level's status and timestamps.
func (s *Store) UpdateLevelStatus(ctx context.Context, id string, status workflow.LevelStatus, startedAt, completedAt *time.Time) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE approval_levels SET status = $2, started_at = $3, completed_at = $4
		 WHERE id = $1 AND tenant_id = $5`,
		id, string(status), startedAt, completedAt, tenantFromCtx(ctx))
	return execExpectOne(tag, err, "update level %s status", id)
}

// ResetLevels returns every level of a workflow to pending with cleared
// timestamps. Runs inside the revision-request transaction.
func (s *Store) ResetLevels(ctx context.Context, workflowID string) error {
	_, err := s.q(ctx).Exec(ctx,
		`UPDATE approval_levels SET status = $2, started_at = NULL, completed_at = NULL
		 WHERE workflow_id = $1 AND tenant_id = $3`,
		workflowID, string(workflow.LevelPending), tenantFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("reset levels for workflow %s: %w", workflowID, err)
	}
	return nil
}

// --- Approvers ---

const approverColumns = `id, level_id, tenant_id, category, COALESCE(user_id, ''), COALESCE(name, ''),
	COALESCE(email, ''), status, COALESCE(comment, ''), decided_at, COALESCE(delegate_to, ''), created_at`

func scanApprover(row scannable, a *workflow.Approver) error {
	return row.Scan(&a.ID, &a.LevelID, &a.TenantID, &a.Category, &a.UserID, &a.Name,
		&a.Email, &a.Status, &a.Comment, &a.DecidedAt, &a.DelegateTo, &a.CreatedAt)
}

// ListApprovers returns a level's approvers, oldest first.
func (s *Store) ListApprovers(ctx context.Context, levelID string) ([]workflow.Approver, error) {
	rows, err := s.q(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM level_approvers
		 WHERE level_id = $1 AND tenant_id = $2 ORDER BY created_at ASC`, approverColumns),
		levelID, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list approvers: %w", err)
	}
	defer rows.Close()

	var result []workflow.Approver
	for rows.Next() {
		var a workflow.Approver
		if err := scanApprover(rows, &a); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// UpsertApprover inserts or updates an approver row keyed on its ID. Lost
// updates between two decisions by the same identity are prevented by the
// unique (level_id, user_id) index plus the workflow row lock held by the
// decision transaction.
func (s *Store) UpsertApprover(ctx context.Context, a *workflow.Approver) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO level_approvers
		 (id, level_id, tenant_id, category, user_id, name, email, status, comment, decided_at, delegate_to)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status, comment = EXCLUDED.comment,
		   decided_at = EXCLUDED.decided_at, delegate_to = EXCLUDED.delegate_to`,
		a.ID, a.LevelID, a.TenantID, string(a.Category), nullIfEmpty(a.UserID), nullIfEmpty(a.Name),
		nullIfEmpty(a.Email), string(a.Status), nullIfEmpty(a.Comment), a.DecidedAt, nullIfEmpty(a.DelegateTo))
	if err != nil {
		return fmt.Errorf("upsert approver %s: %w", a.ID, err)
	}
	return nil
}

// --- Comments ---

// AddComment appends a level comment. Comments are never updated or deleted.
func (s *Store) AddComment(ctx context.Context, c *workflow.Comment) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO level_comments (id, level_id, tenant_id, type, author_category, author_name, body)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.LevelID, c.TenantID, string(c.Type), string(c.AuthorCategory), c.AuthorName, c.Body)
	if err != nil {
		return fmt.Errorf("add comment: %w", err)
	}
	return nil
}

// ListComments returns a level's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, levelID string) ([]workflow.Comment, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT id, level_id, tenant_id, type, author_category, COALESCE(author_name, ''), body, created_at
		 FROM level_comments WHERE level_id = $1 AND tenant_id = $2 ORDER BY created_at ASC`,
		levelID, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var result []workflow.Comment
	for rows.Next() {
		var c workflow.Comment
		if err := rows.Scan(&c.ID, &c.LevelID, &c.TenantID, &c.Type, &c.AuthorCategory,
			&c.AuthorName, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// --- Revision rounds ---

// CreateRound appends a revision round. Rounds are immutable once created.
func (s *Store) CreateRound(ctx context.Context, r *workflow.RevisionRound) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO revision_rounds (id, workflow_id, tenant_id, round_number, requested_by, reason, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		r.ID, r.WorkflowID, r.TenantID, r.RoundNumber, r.RequestedBy, r.Reason, r.Status)
	if err != nil {
		return fmt.Errorf("create round: %w", err)
	}
	return nil
}

// ListRounds returns a workflow's revision rounds, oldest first.
func (s *Store) ListRounds(ctx context.Context, workflowID string) ([]workflow.RevisionRound, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT id, workflow_id, tenant_id, round_number, COALESCE(requested_by, ''), reason, status, created_at
		 FROM revision_rounds WHERE workflow_id = $1 AND tenant_id = $2 ORDER BY round_number ASC`,
		workflowID, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var result []workflow.RevisionRound
	for rows.Next() {
		var r workflow.RevisionRound
		if err := rows.Scan(&r.ID, &r.WorkflowID, &r.TenantID, &r.RoundNumber,
			&r.RequestedBy, &r.Reason, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
