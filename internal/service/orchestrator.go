package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/opsdeck/reviewflow/internal/adapter/otel"
	"github.com/opsdeck/reviewflow/internal/domain"
	"github.com/opsdeck/reviewflow/internal/domain/deliverable"
	"github.com/opsdeck/reviewflow/internal/domain/quality"
	"github.com/opsdeck/reviewflow/internal/domain/workflow"
	"github.com/opsdeck/reviewflow/internal/port/database"
	"github.com/opsdeck/reviewflow/internal/port/messagequeue"
)

// Event subjects published on workflow state transitions.
const (
	SubjectWorkflowCreated   = "reviews.workflow.created"
	SubjectWorkflowAdvanced  = "reviews.workflow.advanced"
	SubjectWorkflowApproved  = "reviews.workflow.approved"
	SubjectWorkflowRejected  = "reviews.workflow.rejected"
	SubjectRevisionRequested = "reviews.workflow.revision_requested"
)

// TransitionEvent is the payload published to the event bus after a
// workflow state change commits.
type TransitionEvent struct {
	WorkflowID    string          `json:"workflow_id"`
	VersionID     string          `json:"version_id"`
	Status        workflow.Status `json:"status"`
	CurrentLevel  int             `json:"current_level"`
	RevisionRound int             `json:"revision_round"`
	Actor         string          `json:"actor,omitempty"`
}

// OrchestratorService drives the workflow state machine across levels,
// rounds and the quality gate. It is the only component with cross-cutting
// logic: level quorum evaluation is delegated to the approval engine and
// round bookkeeping to the round tracker.
type OrchestratorService struct {
	store        database.Store
	approvals    *ApprovalService
	rounds       *RoundService
	queue        messagequeue.Queue
	capabilities workflow.Capabilities
	metrics      Metrics
}

// NewOrchestratorService creates an OrchestratorService. A nil capabilities
// table falls back to the default rule set.
func NewOrchestratorService(
	store database.Store,
	approvals *ApprovalService,
	rounds *RoundService,
	queue messagequeue.Queue,
	capabilities workflow.Capabilities,
	metrics Metrics,
) *OrchestratorService {
	if capabilities == nil {
		capabilities = workflow.DefaultCapabilities()
	}
	return &OrchestratorService{
		store:        store,
		approvals:    approvals,
		rounds:       rounds,
		queue:        queue,
		capabilities: capabilities,
		metrics:      metrics,
	}
}

// CreateWorkflow creates the revision workflow for a version, with its
// ordered levels and, when a template is given, a seeded checklist.
// A version can have at most one workflow; a second create is a conflict.
func (s *OrchestratorService) CreateWorkflow(ctx context.Context, versionID string, req *workflow.CreateRequest) (*workflow.Workflow, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	v, err := s.store.GetVersion(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("get version %s: %w", versionID, err)
	}

	if _, err := s.store.GetWorkflowByVersion(ctx, versionID); err == nil {
		return nil, fmt.Errorf("version %s already has a workflow: %w", versionID, domain.ErrConflict)
	}

	wfType := req.Type
	if wfType == "" {
		wfType = workflow.TypeStructured
	}

	now := time.Now().UTC()
	w := &workflow.Workflow{
		ID:            generateID(),
		VersionID:     v.ID,
		TenantID:      v.TenantID,
		Type:          wfType,
		Status:        workflow.StatusDraft,
		CurrentLevel:  1,
		RevisionRound: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	for i, spec := range req.Levels {
		l := workflow.Level{
			ID:           generateID(),
			WorkflowID:   w.ID,
			TenantID:     w.TenantID,
			LevelNumber:  i + 1,
			Name:         spec.Name,
			Description:  spec.Description,
			Category:     spec.Category,
			IsRequired:   spec.IsRequired == nil || *spec.IsRequired,
			CanDelegate:  spec.CanDelegate,
			MinApprovers: max(spec.MinApprovers, 1),
			MaxApprovers: spec.MaxApprovers,
			Deadline:     spec.Deadline,
			Status:       workflow.LevelPending,
		}
		if spec.ApproverName != "" {
			l.Approvers = append(l.Approvers, workflow.Approver{
				ID:       generateID(),
				LevelID:  l.ID,
				TenantID: w.TenantID,
				Category: spec.Category,
				Name:     spec.ApproverName,
				Email:    spec.ApproverEmail,
				Status:   workflow.ApproverPending,
			})
		}
		w.Levels = append(w.Levels, l)
	}

	var tmpl *quality.Template
	if req.ChecklistTemplateID != "" {
		tmpl, err = s.store.GetTemplate(ctx, req.ChecklistTemplateID)
		if err != nil {
			return nil, fmt.Errorf("get checklist template %s: %w", req.ChecklistTemplateID, err)
		}
	}

	err = s.store.WithTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateWorkflow(ctx, w); err != nil {
			return fmt.Errorf("create workflow: %w", err)
		}
		if tmpl != nil {
			cl := seedChecklist(w, tmpl, now)
			if err := s.store.CreateChecklist(ctx, cl); err != nil {
				return fmt.Errorf("create checklist: %w", err)
			}
			w.ChecklistID = cl.ID
		}
		// The version is under review from this point on, which is what
		// blocks a sibling version from being submitted beside it.
		if v.Status == deliverable.VersionDraft {
			if err := s.store.UpdateVersionStatus(ctx, v.ID, deliverable.VersionInReview, "", nil); err != nil {
				return fmt.Errorf("mark version in review: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.GetWorkflow(ctx, versionID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, SubjectWorkflowCreated, created, "")
	slog.Info("workflow created", "workflow_id", w.ID, "version_id", versionID, "levels", len(req.Levels))
	return created, nil
}

// Decide applies one actor's decision to a level and advances the state
// machine. The read of level and workflow state, the approver upsert and
// every status write commit as one transaction; a failed call leaves the
// workflow exactly as it was.
func (s *OrchestratorService) Decide(ctx context.Context, versionID, levelID string, req *workflow.DecisionRequest) (*workflow.Workflow, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := otel.StartDecisionSpan(ctx, versionID, levelID, string(req.Action))
	defer span.End()

	var (
		transition string
		actor      = req.Actor.Display()
	)

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		level, err := s.store.GetLevel(ctx, levelID)
		if err != nil {
			return fmt.Errorf("get level %s: %w", levelID, err)
		}

		// Lock the workflow row: every decision on any of its levels
		// serializes here, so two approvers racing toward quorum re-read
		// the approver set one after the other.
		w, err := s.store.GetWorkflowForUpdate(ctx, level.WorkflowID)
		if err != nil {
			return fmt.Errorf("get workflow %s: %w", level.WorkflowID, err)
		}
		if w.VersionID != versionID {
			return fmt.Errorf("level %s does not belong to version %s: %w", levelID, versionID, domain.ErrNotFound)
		}
		if w.Status.Terminal() {
			return fmt.Errorf("workflow %s is already %s: %w", w.ID, w.Status, domain.ErrConflict)
		}

		// Re-read the level from the state loaded under the lock: the
		// pre-lock read may be stale against a decision that just closed it.
		for i := range w.Levels {
			if w.Levels[i].ID == levelID {
				level = &w.Levels[i]
			}
		}
		if level.Status == workflow.LevelApproved || level.Status == workflow.LevelRejected {
			return fmt.Errorf("level %d is already %s: %w", level.LevelNumber, level.Status, domain.ErrConflict)
		}

		category := req.Category
		if category == "" {
			category = level.Category
		}
		if err := s.capabilities.Check(category, req.Action); err != nil {
			return err
		}

		approvers, err := s.approvals.RecordDecision(ctx, level, req)
		if err != nil {
			return err
		}
		level.Approvers = approvers

		now := time.Now().UTC()
		switch req.Action {
		case workflow.ActionApprove:
			if !level.QuorumMet() {
				// Quorum not yet reached; the vote is recorded, nothing moves.
				return nil
			}
			if level.LevelNumber != w.CurrentLevel {
				// Early vote on a level the workflow has not reached yet.
				// It counts toward quorum but cannot advance the pointer;
				// only the current level's gate moves the workflow forward.
				return nil
			}
			return s.approveLevel(ctx, w, level, now, actor, &transition)

		case workflow.ActionReject:
			// A single rejecting vote halts the workflow regardless of
			// other approvers' decisions.
			if err := s.store.UpdateLevelStatus(ctx, level.ID, workflow.LevelRejected, startedOrNow(level, now), &now); err != nil {
				return fmt.Errorf("reject level: %w", err)
			}
			if err := s.store.UpdateWorkflow(ctx, w.ID, workflow.StatusRejected, w.CurrentLevel, w.RevisionRound); err != nil {
				return fmt.Errorf("reject workflow: %w", err)
			}
			if err := s.store.UpdateVersionStatus(ctx, w.VersionID, deliverable.VersionRejected, "", nil); err != nil {
				return fmt.Errorf("reject version: %w", err)
			}
			transition = SubjectWorkflowRejected
			return nil

		case workflow.ActionRequestRevision:
			return s.requestRevision(ctx, w, req, actor, &transition)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.DecisionRecorded(ctx, string(req.Action))

	updated, err := s.GetWorkflow(ctx, versionID)
	if err != nil {
		return nil, err
	}

	if transition != "" {
		s.publish(ctx, transition, updated, actor)
		if updated.Status.Terminal() {
			s.metrics.WorkflowFinalized(ctx, string(updated.Status))
		}
	}
	return updated, nil
}

// approveLevel closes a level whose quorum is met and either starts the next
// level or finalizes the workflow and its version.
func (s *OrchestratorService) approveLevel(ctx context.Context, w *workflow.Workflow, level *workflow.Level, now time.Time, actor string, transition *string) error {
	if err := s.store.UpdateLevelStatus(ctx, level.ID, workflow.LevelApproved, startedOrNow(level, now), &now); err != nil {
		return fmt.Errorf("approve level: %w", err)
	}

	next := w.NextLevel(level.LevelNumber)
	if next != nil {
		if err := s.store.UpdateLevelStatus(ctx, next.ID, workflow.LevelInProgress, &now, nil); err != nil {
			return fmt.Errorf("start next level: %w", err)
		}
		if err := s.store.UpdateWorkflow(ctx, w.ID, workflow.StatusInReview, next.LevelNumber, w.RevisionRound); err != nil {
			return fmt.Errorf("advance workflow: %w", err)
		}
		*transition = SubjectWorkflowAdvanced
		return nil
	}

	// Last level: finalize workflow and version.
	if err := s.store.UpdateWorkflow(ctx, w.ID, workflow.StatusApproved, w.CurrentLevel, w.RevisionRound); err != nil {
		return fmt.Errorf("finalize workflow: %w", err)
	}
	if err := s.store.UpdateVersionStatus(ctx, w.VersionID, deliverable.VersionApproved, actor, &now); err != nil {
		return fmt.Errorf("approve version: %w", err)
	}
	*transition = SubjectWorkflowApproved
	return nil
}

// startedOrNow returns the level's start timestamp, falling back to the
// closing time for a level decided straight from pending (always the case
// for level 1, which is never started by a transition).
func startedOrNow(level *workflow.Level, now time.Time) *time.Time {
	if level.StartedAt != nil {
		return level.StartedAt
	}
	return &now
}

// requestRevision starts a new round and resets the whole level sequence.
// Round creation, workflow update and level reset commit together; a
// half-reset workflow is never observable.
func (s *OrchestratorService) requestRevision(ctx context.Context, w *workflow.Workflow, req *workflow.DecisionRequest, actor string, transition *string) error {
	round, err := s.rounds.StartRound(ctx, w, actor, req.Comment)
	if err != nil {
		return err
	}
	if err := s.store.UpdateWorkflow(ctx, w.ID, workflow.StatusRevisionRequested, 1, round.RoundNumber); err != nil {
		return fmt.Errorf("reset workflow: %w", err)
	}
	if err := s.store.ResetLevels(ctx, w.ID); err != nil {
		return fmt.Errorf("reset levels: %w", err)
	}
	s.metrics.RevisionRoundStarted(ctx)
	*transition = SubjectRevisionRequested
	return nil
}

// GetWorkflow returns the workflow for a version with levels, approvers,
// comments and rounds nested, as a consistent post-decision snapshot.
func (s *OrchestratorService) GetWorkflow(ctx context.Context, versionID string) (*workflow.Workflow, error) {
	w, err := s.store.GetWorkflowByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	for i := range w.Levels {
		l := &w.Levels[i]
		if l.Approvers, err = s.store.ListApprovers(ctx, l.ID); err != nil {
			return nil, fmt.Errorf("list approvers for level %s: %w", l.ID, err)
		}
		if l.Comments, err = s.store.ListComments(ctx, l.ID); err != nil {
			return nil, fmt.Errorf("list comments for level %s: %w", l.ID, err)
		}
	}
	if w.Rounds, err = s.store.ListRounds(ctx, w.ID); err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	return w, nil
}

// publish sends a transition event to the bus. Fire-and-forget: a publish
// failure is logged and never masks the primary result.
func (s *OrchestratorService) publish(ctx context.Context, subject string, w *workflow.Workflow, actor string) {
	if s.queue == nil {
		return
	}
	payload, err := json.Marshal(TransitionEvent{
		WorkflowID:    w.ID,
		VersionID:     w.VersionID,
		Status:        w.Status,
		CurrentLevel:  w.CurrentLevel,
		RevisionRound: w.RevisionRound,
		Actor:         actor,
	})
	if err != nil {
		return
	}
	if err := s.queue.Publish(ctx, subject, payload); err != nil {
		slog.Error("publish transition event", "subject", subject, "workflow_id", w.ID, "error", err)
	}
}

// seedChecklist builds a pending checklist for the workflow from a template.
func seedChecklist(w *workflow.Workflow, tmpl *quality.Template, now time.Time) *quality.Checklist {
	cl := &quality.Checklist{
		ID:         generateID(),
		WorkflowID: w.ID,
		TenantID:   w.TenantID,
		TemplateID: tmpl.ID,
		Status:     quality.ChecklistPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, item := range tmpl.Items {
		cl.Checks = append(cl.Checks, quality.Check{
			ID:          generateID(),
			ChecklistID: cl.ID,
			TenantID:    w.TenantID,
			Title:       item.Title,
			Description: item.Description,
			IsRequired:  item.IsRequired,
			Status:      quality.CheckPending,
			CreatedAt:   now,
		})
	}
	return cl
}
