package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsdeck/reviewflow/internal/domain/deliverable"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Deliverables ---

// CreateDeliverable inserts a new deliverable.
func (s *Store) CreateDeliverable(ctx context.Context, d *deliverable.Deliverable) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO deliverables (id, tenant_id, project_id, name, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.TenantID, nullIfEmpty(d.ProjectID), d.Name, d.Description, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create deliverable: %w", err)
	}
	return nil
}

const deliverableColumns = `id, tenant_id, COALESCE(project_id::text, ''), name, description, created_at, updated_at`

func scanDeliverable(row scannable, d *deliverable.Deliverable) error {
	return row.Scan(&d.ID, &d.TenantID, &d.ProjectID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
}

// GetDeliverable retrieves a deliverable by ID.
func (s *Store) GetDeliverable(ctx context.Context, id string) (*deliverable.Deliverable, error) {
	row := s.q(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM deliverables WHERE id = $1 AND tenant_id = $2`, deliverableColumns),
		id, tenantFromCtx(ctx))

	d := &deliverable.Deliverable{}
	if err := scanDeliverable(row, d); err != nil {
		return nil, notFoundWrap(err, "get deliverable %s", id)
	}
	return d, nil
}

// ListDeliverables returns all deliverables for the tenant, most recent first.
func (s *Store) ListDeliverables(ctx context.Context) ([]deliverable.Deliverable, error) {
	rows, err := s.q(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM deliverables WHERE tenant_id = $1 ORDER BY created_at DESC`, deliverableColumns),
		tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list deliverables: %w", err)
	}
	defer rows.Close()

	var result []deliverable.Deliverable
	for rows.Next() {
		var d deliverable.Deliverable
		if err := scanDeliverable(rows, &d); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// --- Versions ---

// CreateVersion inserts a new deliverable version.
func (s *Store) CreateVersion(ctx context.Context, v *deliverable.Version) error {
	_, err := s.q(ctx).Exec(ctx,
		`INSERT INTO deliverable_versions
		 (id, deliverable_id, tenant_id, version_number, status, submitted_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		v.ID, v.DeliverableID, v.TenantID, v.VersionNumber, string(v.Status), v.SubmittedBy, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

const versionColumns = `id, deliverable_id, tenant_id, version_number, status,
	COALESCE(submitted_by, ''), COALESCE(approved_by, ''), approved_at, created_at, updated_at`

func scanVersion(row scannable, v *deliverable.Version) error {
	return row.Scan(&v.ID, &v.DeliverableID, &v.TenantID, &v.VersionNumber, &v.Status,
		&v.SubmittedBy, &v.ApprovedBy, &v.ApprovedAt, &v.CreatedAt, &v.UpdatedAt)
}

// GetVersion retrieves a version by ID.
func (s *Store) GetVersion(ctx context.Context, id string) (*deliverable.Version, error) {
	row := s.q(ctx).QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM deliverable_versions WHERE id = $1 AND tenant_id = $2`, versionColumns),
		id, tenantFromCtx(ctx))

	v := &deliverable.Version{}
	if err := scanVersion(row, v); err != nil {
		return nil, notFoundWrap(err, "get version %s", id)
	}
	return v, nil
}

// ListVersions returns all versions of a deliverable, oldest first.
func (s *Store) ListVersions(ctx context.Context, deliverableID string) ([]deliverable.Version, error) {
	rows, err := s.q(ctx).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM deliverable_versions
		 WHERE deliverable_id = $1 AND tenant_id = $2 ORDER BY version_number ASC`, versionColumns),
		deliverableID, tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var result []deliverable.Version
	for rows.Next() {
		var v deliverable.Version
		if err := scanVersion(rows, &v); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// UpdateVersionStatus updates a version's lifecycle status and, for
// approvals, the approving actor and timestamp.
func (s *Store) UpdateVersionStatus(ctx context.Context, id string, status deliverable.VersionStatus, approvedBy string, approvedAt *time.Time) error {
	tag, err := s.q(ctx).Exec(ctx,
		`UPDATE deliverable_versions
		 SET status = $2, approved_by = COALESCE($3, approved_by), approved_at = COALESCE($4, approved_at), updated_at = now()
		 WHERE id = $1 AND tenant_id = $5`,
		id, string(status), nullIfEmpty(approvedBy), approvedAt, tenantFromCtx(ctx))
	return execExpectOne(tag, err, "update version %s status", id)
}
