package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/reviewflow/internal/adapter/otel"
	"github.com/opsdeck/reviewflow/internal/domain"
	"github.com/opsdeck/reviewflow/internal/domain/quality"
	"github.com/opsdeck/reviewflow/internal/port/database"
)

// QualityService is the quality gate engine: it owns the lifecycle of
// individual checks and recomputes the checklist aggregate whenever one
// changes. The aggregate is surfaced to callers but never mutates workflow
// state.
type QualityService struct {
	store   database.Store
	metrics Metrics
}

// NewQualityService creates a QualityService.
func NewQualityService(store database.Store, metrics Metrics) *QualityService {
	return &QualityService{store: store, metrics: metrics}
}

// UpdateCheck writes one check and recomputes its checklist, all inside a
// single transaction with the checklist row locked, so a racing update on a
// sibling check cannot leave a stale aggregate behind.
//
// Ownership is verified before any write: the check must belong to the
// checklist attached to the given version's workflow, otherwise the update
// is rejected as not found.
func (s *QualityService) UpdateCheck(ctx context.Context, versionID, checkID string, req *quality.UpdateCheckRequest, checkedBy string) (*quality.Checklist, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := otel.StartCheckUpdateSpan(ctx, versionID, checkID)
	defer span.End()

	var result *quality.Checklist
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		cl, err := s.store.GetChecklistByVersion(ctx, versionID)
		if err != nil {
			return fmt.Errorf("get checklist for version %s: %w", versionID, err)
		}

		// Lock the checklist before touching its checks.
		cl, err = s.store.GetChecklistForUpdate(ctx, cl.ID)
		if err != nil {
			return fmt.Errorf("lock checklist %s: %w", cl.ID, err)
		}

		check, err := s.store.GetCheck(ctx, checkID)
		if err != nil {
			return fmt.Errorf("get check %s: %w", checkID, err)
		}
		if check.ChecklistID != cl.ID {
			return fmt.Errorf("check %s does not belong to version %s: %w", checkID, versionID, domain.ErrNotFound)
		}

		// Partial update: fields omitted from the request keep their
		// stored values.
		now := time.Now().UTC()
		check.Status = req.Status
		if req.Notes != nil {
			check.Notes = *req.Notes
		}
		if req.Evidence != nil {
			check.Evidence = req.Evidence
		}
		if req.Score != nil {
			check.Score = req.Score
		}
		check.CheckedBy = checkedBy
		check.CheckedAt = &now

		if err := s.store.UpdateCheck(ctx, check); err != nil {
			return fmt.Errorf("update check %s: %w", checkID, err)
		}

		if err := s.recompute(ctx, cl, checkedBy, now); err != nil {
			return err
		}

		result = cl
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ChecklistRecomputed(ctx, string(result.Status))
	return result, nil
}

// recompute re-reads the full current set of checks and rewrites the
// checklist aggregate. PassedAt/FailedAt are first-reached markers: set on
// the first transition into that status and never cleared afterwards.
func (s *QualityService) recompute(ctx context.Context, cl *quality.Checklist, reviewedBy string, now time.Time) error {
	checks, err := s.store.ListChecks(ctx, cl.ID)
	if err != nil {
		return fmt.Errorf("list checks: %w", err)
	}

	agg := quality.Recompute(checks)
	if agg.Status != cl.Status {
		cl.StatusChangedAt = &now
	}
	cl.Status = agg.Status
	cl.OverallScore = agg.OverallScore
	if reviewedBy != "" {
		cl.ReviewedBy = reviewedBy
	}
	if cl.Status == quality.ChecklistPassed && cl.PassedAt == nil {
		cl.PassedAt = &now
	}
	if cl.Status == quality.ChecklistFailed && cl.FailedAt == nil {
		cl.FailedAt = &now
	}
	cl.UpdatedAt = now
	cl.Checks = checks

	if err := s.store.UpdateChecklistAggregate(ctx, cl); err != nil {
		return fmt.Errorf("update checklist aggregate: %w", err)
	}
	return nil
}

// GetChecklist returns the checklist for a version with its checks nested.
func (s *QualityService) GetChecklist(ctx context.Context, versionID string) (*quality.Checklist, error) {
	cl, err := s.store.GetChecklistByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	checks, err := s.store.ListChecks(ctx, cl.ID)
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	cl.Checks = checks
	return cl, nil
}

// --- Templates ---

// CreateTemplate creates a checklist template with its ordered items.
func (s *QualityService) CreateTemplate(ctx context.Context, tenantID string, req *quality.CreateTemplateRequest) (*quality.Template, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	t := &quality.Template{
		ID:          generateID(),
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}
	for i, item := range req.Items {
		t.Items = append(t.Items, quality.TemplateItem{
			ID:          generateID(),
			TemplateID:  t.ID,
			Position:    i + 1,
			Title:       item.Title,
			Description: item.Description,
			IsRequired:  item.IsRequired == nil || *item.IsRequired,
		})
	}

	if err := s.store.CreateTemplate(ctx, t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

// GetTemplate retrieves a template by ID.
func (s *QualityService) GetTemplate(ctx context.Context, id string) (*quality.Template, error) {
	return s.store.GetTemplate(ctx, id)
}

// ListTemplates returns all templates for the tenant.
func (s *QualityService) ListTemplates(ctx context.Context) ([]quality.Template, error) {
	return s.store.ListTemplates(ctx)
}

// DeleteTemplate deletes a template by ID.
func (s *QualityService) DeleteTemplate(ctx context.Context, id string) error {
	return s.store.DeleteTemplate(ctx, id)
}
