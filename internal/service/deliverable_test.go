package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opsdeck/reviewflow/internal/domain"
	"github.com/opsdeck/reviewflow/internal/domain/deliverable"
	"github.com/opsdeck/reviewflow/internal/domain/quality"
	"github.com/opsdeck/reviewflow/internal/domain/workflow"
	"github.com/opsdeck/reviewflow/internal/port/database"
)

// Ensure mockStore implements database.Store at compile time.
var _ database.Store = (*mockStore)(nil)

// mockStore is a minimal in-memory implementation of database.Store for testing.
type mockStore struct {
	deliverables []deliverable.Deliverable
	versions     []deliverable.Version
	workflows    []workflow.Workflow
	levels       []workflow.Level
	approvers    []workflow.Approver
	comments     []workflow.Comment
	rounds       []workflow.RevisionRound
	checklists   []quality.Checklist
	checks       []quality.Check
	templates    []quality.Template

	// Error hooks. Set these to inject failures.
	createVersionErr  error
	createWorkflowErr error
	createRoundErr    error
	updateCheckErr    error
}

func (m *mockStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- Deliverables and versions ---

func (m *mockStore) CreateDeliverable(_ context.Context, d *deliverable.Deliverable) error {
	m.deliverables = append(m.deliverables, *d)
	return nil
}

func (m *mockStore) GetDeliverable(_ context.Context, id string) (*deliverable.Deliverable, error) {
	for i := range m.deliverables {
		if m.deliverables[i].ID == id {
			d := m.deliverables[i]
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListDeliverables(_ context.Context) ([]deliverable.Deliverable, error) {
	return m.deliverables, nil
}

func (m *mockStore) CreateVersion(_ context.Context, v *deliverable.Version) error {
	if m.createVersionErr != nil {
		return m.createVersionErr
	}
	m.versions = append(m.versions, *v)
	return nil
}

func (m *mockStore) GetVersion(_ context.Context, id string) (*deliverable.Version, error) {
	for i := range m.versions {
		if m.versions[i].ID == id {
			v := m.versions[i]
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListVersions(_ context.Context, deliverableID string) ([]deliverable.Version, error) {
	var out []deliverable.Version
	for i := range m.versions {
		if m.versions[i].DeliverableID == deliverableID {
			out = append(out, m.versions[i])
		}
	}
	return out, nil
}

func (m *mockStore) UpdateVersionStatus(_ context.Context, id string, status deliverable.VersionStatus, approvedBy string, approvedAt *time.Time) error {
	for i := range m.versions {
		if m.versions[i].ID == id {
			m.versions[i].Status = status
			if approvedBy != "" {
				m.versions[i].ApprovedBy = approvedBy
			}
			if approvedAt != nil {
				m.versions[i].ApprovedAt = approvedAt
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- Workflows ---

func (m *mockStore) CreateWorkflow(_ context.Context, w *workflow.Workflow) error {
	if m.createWorkflowErr != nil {
		return m.createWorkflowErr
	}
	stored := *w
	stored.Levels = nil
	m.workflows = append(m.workflows, stored)
	for _, l := range w.Levels {
		level := l
		level.Approvers = nil
		m.levels = append(m.levels, level)
		m.approvers = append(m.approvers, l.Approvers...)
	}
	return nil
}

func (m *mockStore) workflowByID(id string) *workflow.Workflow {
	for i := range m.workflows {
		if m.workflows[i].ID == id {
			return &m.workflows[i]
		}
	}
	return nil
}

func (m *mockStore) nestedWorkflow(w workflow.Workflow) *workflow.Workflow {
	for i := range m.levels {
		if m.levels[i].WorkflowID == w.ID {
			m.levels[i].Approvers = nil
			w.Levels = append(w.Levels, m.levels[i])
		}
	}
	for i := range m.checklists {
		if m.checklists[i].WorkflowID == w.ID {
			w.ChecklistID = m.checklists[i].ID
		}
	}
	return &w
}

func (m *mockStore) GetWorkflowByVersion(_ context.Context, versionID string) (*workflow.Workflow, error) {
	for i := range m.workflows {
		if m.workflows[i].VersionID == versionID {
			return m.nestedWorkflow(m.workflows[i]), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetWorkflowForUpdate(_ context.Context, id string) (*workflow.Workflow, error) {
	w := m.workflowByID(id)
	if w == nil {
		return nil, domain.ErrNotFound
	}
	return m.nestedWorkflow(*w), nil
}

func (m *mockStore) UpdateWorkflow(_ context.Context, id string, status workflow.Status, currentLevel, revisionRound int) error {
	w := m.workflowByID(id)
	if w == nil {
		return domain.ErrNotFound
	}
	w.Status = status
	w.CurrentLevel = currentLevel
	w.RevisionRound = revisionRound
	return nil
}

// --- Levels and approvers ---

func (m *mockStore) GetLevel(_ context.Context, id string) (*workflow.Level, error) {
	for i := range m.levels {
		if m.levels[i].ID == id {
			l := m.levels[i]
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListApprovers(_ context.Context, levelID string) ([]workflow.Approver, error) {
	var out []workflow.Approver
	for i := range m.approvers {
		if m.approvers[i].LevelID == levelID {
			out = append(out, m.approvers[i])
		}
	}
	return out, nil
}

func (m *mockStore) UpsertApprover(_ context.Context, a *workflow.Approver) error {
	for i := range m.approvers {
		if m.approvers[i].ID == a.ID {
			m.approvers[i] = *a
			return nil
		}
	}
	m.approvers = append(m.approvers, *a)
	return nil
}

func (m *mockStore) UpdateLevelStatus(_ context.Context, id string, status workflow.LevelStatus, startedAt, completedAt *time.Time) error {
	for i := range m.levels {
		if m.levels[i].ID == id {
			m.levels[i].Status = status
			m.levels[i].StartedAt = startedAt
			m.levels[i].CompletedAt = completedAt
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) ResetLevels(_ context.Context, workflowID string) error {
	for i := range m.levels {
		if m.levels[i].WorkflowID == workflowID {
			m.levels[i].Status = workflow.LevelPending
			m.levels[i].StartedAt = nil
			m.levels[i].CompletedAt = nil
		}
	}
	return nil
}

// --- Comments ---

func (m *mockStore) AddComment(_ context.Context, c *workflow.Comment) error {
	m.comments = append(m.comments, *c)
	return nil
}

func (m *mockStore) ListComments(_ context.Context, levelID string) ([]workflow.Comment, error) {
	var out []workflow.Comment
	for i := range m.comments {
		if m.comments[i].LevelID == levelID {
			out = append(out, m.comments[i])
		}
	}
	return out, nil
}

// --- Revision rounds ---

func (m *mockStore) CreateRound(_ context.Context, r *workflow.RevisionRound) error {
	if m.createRoundErr != nil {
		return m.createRoundErr
	}
	m.rounds = append(m.rounds, *r)
	return nil
}

func (m *mockStore) ListRounds(_ context.Context, workflowID string) ([]workflow.RevisionRound, error) {
	var out []workflow.RevisionRound
	for i := range m.rounds {
		if m.rounds[i].WorkflowID == workflowID {
			out = append(out, m.rounds[i])
		}
	}
	return out, nil
}

// --- Checklists and checks ---

func (m *mockStore) CreateChecklist(_ context.Context, c *quality.Checklist) error {
	stored := *c
	stored.Checks = nil
	m.checklists = append(m.checklists, stored)
	m.checks = append(m.checks, c.Checks...)
	return nil
}

func (m *mockStore) GetChecklistByVersion(_ context.Context, versionID string) (*quality.Checklist, error) {
	for i := range m.workflows {
		if m.workflows[i].VersionID != versionID {
			continue
		}
		for j := range m.checklists {
			if m.checklists[j].WorkflowID == m.workflows[i].ID {
				cl := m.checklists[j]
				return &cl, nil
			}
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetChecklistForUpdate(_ context.Context, id string) (*quality.Checklist, error) {
	for i := range m.checklists {
		if m.checklists[i].ID == id {
			cl := m.checklists[i]
			return &cl, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetCheck(_ context.Context, id string) (*quality.Check, error) {
	for i := range m.checks {
		if m.checks[i].ID == id {
			c := m.checks[i]
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListChecks(_ context.Context, checklistID string) ([]quality.Check, error) {
	var out []quality.Check
	for i := range m.checks {
		if m.checks[i].ChecklistID == checklistID {
			out = append(out, m.checks[i])
		}
	}
	return out, nil
}

func (m *mockStore) UpdateCheck(_ context.Context, c *quality.Check) error {
	if m.updateCheckErr != nil {
		return m.updateCheckErr
	}
	for i := range m.checks {
		if m.checks[i].ID == c.ID {
			m.checks[i] = *c
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockStore) UpdateChecklistAggregate(_ context.Context, c *quality.Checklist) error {
	for i := range m.checklists {
		if m.checklists[i].ID == c.ID {
			m.checklists[i] = *c
			m.checklists[i].Checks = nil
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- Checklist templates ---

func (m *mockStore) CreateTemplate(_ context.Context, t *quality.Template) error {
	m.templates = append(m.templates, *t)
	return nil
}

func (m *mockStore) GetTemplate(_ context.Context, id string) (*quality.Template, error) {
	for i := range m.templates {
		if m.templates[i].ID == id {
			t := m.templates[i]
			return &t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) ListTemplates(_ context.Context) ([]quality.Template, error) {
	return m.templates, nil
}

func (m *mockStore) DeleteTemplate(_ context.Context, id string) error {
	for i := range m.templates {
		if m.templates[i].ID == id {
			m.templates = append(m.templates[:i], m.templates[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// --- DeliverableService tests ---

func TestDeliverableServiceCreate(t *testing.T) {
	svc := NewDeliverableService(&mockStore{})

	got, err := svc.Create(context.Background(), "tenant-1", &deliverable.CreateRequest{Name: "Landing page"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected generated ID")
	}
	if got.TenantID != "tenant-1" {
		t.Fatalf("expected tenant-1, got %q", got.TenantID)
	}
}

func TestDeliverableServiceCreateValidation(t *testing.T) {
	svc := NewDeliverableService(&mockStore{})

	_, err := svc.Create(context.Background(), "tenant-1", &deliverable.CreateRequest{Name: "   "})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeliverableServiceGetNestsVersions(t *testing.T) {
	store := &mockStore{
		deliverables: []deliverable.Deliverable{{ID: "d1", Name: "Report"}},
		versions: []deliverable.Version{
			{ID: "v1", DeliverableID: "d1", VersionNumber: 1, Status: deliverable.VersionRejected},
			{ID: "v2", DeliverableID: "d1", VersionNumber: 2, Status: deliverable.VersionDraft},
		},
	}
	svc := NewDeliverableService(store)

	got, err := svc.Get(context.Background(), "d1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(got.Versions))
	}
}

func TestDeliverableServiceSubmitVersionNumbersAreMonotonic(t *testing.T) {
	store := &mockStore{
		deliverables: []deliverable.Deliverable{{ID: "d1", Name: "Report"}},
		versions: []deliverable.Version{
			{ID: "v1", DeliverableID: "d1", VersionNumber: 1, Status: deliverable.VersionRejected},
			{ID: "v3", DeliverableID: "d1", VersionNumber: 3, Status: deliverable.VersionApproved},
		},
	}
	svc := NewDeliverableService(store)

	got, err := svc.SubmitVersion(context.Background(), "d1", &deliverable.SubmitVersionRequest{SubmittedBy: "ana"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.VersionNumber != 4 {
		t.Fatalf("expected version number 4, got %d", got.VersionNumber)
	}
	if got.Status != deliverable.VersionDraft {
		t.Fatalf("expected draft, got %q", got.Status)
	}
}

func TestDeliverableServiceSubmitVersionConflictWhileInReview(t *testing.T) {
	store := &mockStore{
		deliverables: []deliverable.Deliverable{{ID: "d1", Name: "Report"}},
		versions: []deliverable.Version{
			{ID: "v1", DeliverableID: "d1", VersionNumber: 1, Status: deliverable.VersionInReview},
		},
	}
	svc := NewDeliverableService(store)

	_, err := svc.SubmitVersion(context.Background(), "d1", &deliverable.SubmitVersionRequest{})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestDeliverableServiceSubmitVersionUnknownDeliverable(t *testing.T) {
	svc := NewDeliverableService(&mockStore{})

	_, err := svc.SubmitVersion(context.Background(), "missing", &deliverable.SubmitVersionRequest{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
