package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdeck/reviewflow/internal/domain"
	"github.com/opsdeck/reviewflow/internal/domain/deliverable"
	"github.com/opsdeck/reviewflow/internal/port/database"
)

// DeliverableService manages deliverables and their version sequence.
type DeliverableService struct {
	store database.Store
}

// NewDeliverableService creates a DeliverableService.
func NewDeliverableService(store database.Store) *DeliverableService {
	return &DeliverableService{store: store}
}

// Create creates a new deliverable.
func (s *DeliverableService) Create(ctx context.Context, tenantID string, req *deliverable.CreateRequest) (*deliverable.Deliverable, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &deliverable.Deliverable{
		ID:          generateID(),
		TenantID:    tenantID,
		ProjectID:   req.ProjectID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateDeliverable(ctx, d); err != nil {
		return nil, fmt.Errorf("create deliverable: %w", err)
	}
	return d, nil
}

// Get retrieves a deliverable with its versions nested.
func (s *DeliverableService) Get(ctx context.Context, id string) (*deliverable.Deliverable, error) {
	d, err := s.store.GetDeliverable(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, err := s.store.ListVersions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	d.Versions = versions
	return d, nil
}

// List returns all deliverables for the tenant.
func (s *DeliverableService) List(ctx context.Context) ([]deliverable.Deliverable, error) {
	return s.store.ListDeliverables(ctx)
}

// SubmitVersion creates the next version of a deliverable. Version numbers
// are monotonic per deliverable. Submitting while the latest version is
// still under review is a conflict; a rework cycle supersedes the old
// version through its workflow, not by stacking a new one beside it.
func (s *DeliverableService) SubmitVersion(ctx context.Context, deliverableID string, req *deliverable.SubmitVersionRequest) (*deliverable.Version, error) {
	d, err := s.store.GetDeliverable(ctx, deliverableID)
	if err != nil {
		return nil, fmt.Errorf("get deliverable %s: %w", deliverableID, err)
	}

	var v *deliverable.Version
	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		versions, err := s.store.ListVersions(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("list versions: %w", err)
		}

		next := 1
		for i := range versions {
			if versions[i].VersionNumber >= next {
				next = versions[i].VersionNumber + 1
			}
			if versions[i].Status == deliverable.VersionInReview {
				return fmt.Errorf("version %d is still in review: %w", versions[i].VersionNumber, domain.ErrConflict)
			}
		}

		now := time.Now().UTC()
		v = &deliverable.Version{
			ID:            generateID(),
			DeliverableID: d.ID,
			TenantID:      d.TenantID,
			VersionNumber: next,
			Status:        deliverable.VersionDraft,
			SubmittedBy:   req.SubmittedBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.store.CreateVersion(ctx, v); err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// GetVersion retrieves a version by ID.
func (s *DeliverableService) GetVersion(ctx context.Context, id string) (*deliverable.Version, error) {
	return s.store.GetVersion(ctx, id)
}
