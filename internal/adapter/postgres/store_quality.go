package postgres

import (
	"context"
	"fmt"

	"github.com/opsdeck/reviewflow/internal/domain/quality"
)

// CreateChecklist inserts a checklist with its checks. Callers wrap this in
// WithTx together with the workflow insert.
func (s *Store) CreateChecklist(ctx context.Context, c *quality.Checklist) error {
	q := s.q(ctx)

	_, err := q.Exec(ctx,
		`INSERT INTO quality_checklists
		 (id, workflow_id, tenant_id, template_id, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.WorkflowID, c.TenantID, nullIfEmpty(c.TemplateID), string(c.Status), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert checklist: %w", err)
	}

	for i := range c.Checks {
		ck := &c.Checks[i]
		_, err := q.Exec(ctx,
			`INSERT INTO quality_checks
			 (id, checklist_id, tenant_id, title, description, is_required, status, evidence, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			ck.ID, c.ID, c.TenantID, ck.Title, ck.Description, ck.IsRequired, string(ck.Status),
			pgTextArray(ck.Evidence), ck.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert check %q: %w", ck.Title, err)
		}
	}
	return nil
}

const checklistColumns = `c.id, c.workflow_id, c.tenant_id, COALESCE(c.template_id::text, ''), c.status,
	c.overall_score, COALESCE(c.reviewed_by, ''), c.passed_at, c.failed_at, c.status_changed_at,
	c.created_at, c.updated_at`

func scanChecklist(row scannable, c *quality.Checklist) error {
	return row.Scan(&c.ID, &c.WorkflowID, &c.TenantID, &c.TemplateID, &c.Status,
		&c.OverallScore, &c.ReviewedBy, &c.PassedAt, &c.FailedAt, &c.StatusChangedAt,
		&c.CreatedAt, &c.UpdatedAt)
}

// GetChecklistByVersion retrieves the checklist attached to a version's
// workflow, walking the ownership chain checklist → workflow → version.
func (s *Store) GetChecklistByVersion(ctx context.Context, versionID string) (*quality.Checklist, error) {
	row := s.q(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM quality_checklists c
		 JOIN revision_workflows w ON w.id = c.workflow_id
		 WHERE w.version_id = $1 AND c.tenant_id = $2`, checklistColumns),
		versionID, tenantFromCtx(ctx))

	c := &quality.Checklist{}
	if err := scanChecklist(row, c); err != nil {
		return nil, notFoundWrap(err, "get checklist for version %s", versionID)
	}
	return c, nil
}

// GetChecklistForUpdate retrieves a checklist by ID with its row locked
// until the surrounding transaction ends.
func (s *Store) GetChecklistForUpdate(ctx context.Context, id string) (*quality.Checklist, error) {
	row := s.q(ctx).QueryRow(ctx,
		`SELECT id, workflow_id, tenant_id, COALESCE(template_id::text, ''), status,
		 overall_score, COALESCE(reviewed_by, ''), passed_at, failed_at, status_changed_at, created_at, updated_at
		 FROM quality_checklists WHERE id = $1 AND tenant_id = $2 FOR UPDATE`,
		id, tenantFromCtx(ctx))

	c := &quality.Checklist{}
	if err := scanChecklist(row, c); err != nil {
		return nil, notFoundWrap(err, "lock checklist %s", id)
	}
	return c, nil
}

// UpdateChecklistAggregate writes the recomputed aggregate state.
func (s *Store) UpdateChecklistAggregate(ctx context.Context, c *quality.Checklist) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE quality_checklists
		 SET status = $2, overall_score = $3, reviewed_by = $4,
		     passed_at = $5, failed_at = $6, status_changed_at = $7, updated_at = $8
		 WHERE id = $1 AND tenant_id = $9`,
		c.ID, string(c.Status), c.OverallScore, nullIfEmpty(c.ReviewedBy),
		c.PassedAt, c.FailedAt, c.StatusChangedAt, c.UpdatedAt, tenantFromCtx(ctx))
	return execExpectOne(tag, err, "update checklist %s", c.ID)
}

// --- Checks ---

const checkColumns = `id, checklist_id, tenant_id, title, description, is_required, status,
	COALESCE(notes, ''), evidence, score, COALESCE(checked_by, ''), checked_at, created_at`

func scanCheck(row scannable, c *quality.Check) error {
	return row.Scan(&c.ID, &c.ChecklistID, &c.TenantID, &c.Title, &c.Description, &c.IsRequired, &c.Status,
		&c.Notes, &c.Evidence, &c.Score, &c.CheckedBy, &c.CheckedAt, &c.CreatedAt)
}

// GetCheck retrieves a check by ID.
func (s *Store) GetCheck(ctx context.Context, id string) (*quality.Check, error) {
	row := s.q(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM quality_checks WHERE id = $1 AND tenant_id = $2`, checkColumns),
		id, tenantFromCtx(ctx))

	c := &quality.Check{}
	if err := scanCheck(row, c); err != nil {
		return nil, notFoundWrap(err, "get check %s", id)
	}
	return c, nil
}

// ListChecks returns a checklist's checks in creation order.
func (s *Store) ListChecks(ctx context.Context, checklistID string) ([]quality.Check, error) {
	rows, err := s.q(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM quality_checks
		 WHERE checklist_id = $1 AND tenant_id = $2 ORDER BY created_at ASC, id ASC`, checkColumns),
		checklistID, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	defer rows.Close()

	var result []quality.Check
	for rows.Next() {
		var c quality.Check
		if err := scanCheck(rows, &c); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// UpdateCheck writes a check's status, notes, evidence, score and checker.
func (s *Store) UpdateCheck(ctx context.Context, c *quality.Check) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE quality_checks
		 SET status = $2, notes = $3, evidence = $4, score = $5, checked_by = $6, checked_at = $7
		 WHERE id = $1 AND tenant_id = $8`,
		c.ID, string(c.Status), nullIfEmpty(c.Notes), pgTextArray(c.Evidence), c.Score,
		nullIfEmpty(c.CheckedBy), c.CheckedAt, tenantFromCtx(ctx))
	return execExpectOne(tag, err, "update check %s", c.ID)
}

// --- Templates ---

// CreateTemplate inserts a template with its items in one transaction.
func (s *Store) CreateTemplate(ctx context.Context, t *quality.Template) error {
	return s.WithTx(ctx, func(ctx context.Context) error {
		q := s.q(ctx)

		_, err := q.Exec(ctx,
			`INSERT INTO checklist_templates (id, tenant_id, name, description, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			t.ID, t.TenantID, t.Name, t.Description, t.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert template: %w", err)
		}

		for i := range t.Items {
			item := &t.Items[i]
			_, err := q.Exec(ctx,
				`INSERT INTO checklist_template_items (id, template_id, position, title, description, is_required)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				item.ID, t.ID, item.Position, item.Title, item.Description, item.IsRequired)
			if err != nil {
				return fmt.Errorf("insert template item %d: %w", item.Position, err)
			}
		}
		return nil
	})
}

// GetTemplate retrieves a template with its items.
func (s *Store) GetTemplate(ctx context.Context, id string) (*quality.Template, error) {
	row := s.q(ctx).QueryRow(ctx,
		`SELECT id, tenant_id, name, description, created_at
		 FROM checklist_templates WHERE id = $1 AND tenant_id = $2`,
		id, tenantFromCtx(ctx))

	t := &quality.Template{}
	if err := row.Scan(&t.ID, &t.TenantID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
		return nil, notFoundWrap(err, "get template %s", id)
	}

	rows, err := s.q(ctx).Query(ctx,
		`SELECT id, template_id, position, title, description, is_required
		 FROM checklist_template_items WHERE template_id = $1 ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list template items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item quality.TemplateItem
		if err := rows.Scan(&item.ID, &item.TemplateID, &item.Position,
			&item.Title, &item.Description, &item.IsRequired); err != nil {
			return nil, err
		}
		t.Items = append(t.Items, item)
	}
	return t, rows.Err()
}

// ListTemplates returns all templates for the tenant, most recent first.
func (s *Store) ListTemplates(ctx context.Context) ([]quality.Template, error) {
	rows, err := s.q(ctx).Query(ctx,
		`SELECT id, tenant_id, name, description, created_at
		 FROM checklist_templates WHERE tenant_id = $1 ORDER BY created_at DESC`,
		tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var result []quality.Template
	for rows.Next() {
		var t quality.Template
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Name, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

// DeleteTemplate deletes a template by ID. Items cascade.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	tag, err := s.q(ctx).Exec(ctx,
		`DELETE FROM checklist_templates WHERE id = $1 AND tenant_id = $2`, id, tenantFromCtx(ctx))
	return execExpectOne(tag, err, "delete template %s", id)
}
