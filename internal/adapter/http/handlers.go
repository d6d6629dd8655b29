package http

import (
	"net/http"

	"github.com/opsdeck/reviewflow/internal/domain/deliverable"
	"github.com/opsdeck/reviewflow/internal/domain/identity"
	"github.com/opsdeck/reviewflow/internal/domain/quality"
	"github.com/opsdeck/reviewflow/internal/domain/workflow"
	"github.com/opsdeck/reviewflow/internal/middleware"
	"github.com/opsdeck/reviewflow/internal/service"
)

// Handlers bundles the services exposed over HTTP.
type Handlers struct {
	Deliverables *service.DeliverableService
	Orchestrator *service.OrchestratorService
	Quality      *service.QualityService
	Approvals    *service.ApprovalService
	BodyLimit    int64
}

// --- Deliverables ---

// CreateDeliverable handles POST /deliverables.
func (h *Handlers) CreateDeliverable(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[deliverable.CreateRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	d, err := h.Deliverables.Create(r.Context(), middleware.TenantIDFromContext(r.Context()), &req)
	if err != nil {
		writeDomainError(w, err, "deliverable not found")
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// ListDeliverables handles GET /deliverables.
func (h *Handlers) ListDeliverables(w http.ResponseWriter, r *http.Request) {
	items, err := h.Deliverables.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "deliverables not found")
		return
	}
	if items == nil {
		items = []deliverable.Deliverable{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetDeliverable handles GET /deliverables/{id}.
func (h *Handlers) GetDeliverable(w http.ResponseWriter, r *http.Request) {
	d, err := h.Deliverables.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "deliverable not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// SubmitVersion handles POST /deliverables/{id}/versions.
func (h *Handlers) SubmitVersion(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[deliverable.SubmitVersionRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	if req.SubmittedBy == "" {
		req.SubmittedBy = middleware.ActorFromContext(r.Context()).Display()
	}
	v, err := h.Deliverables.SubmitVersion(r.Context(), urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, err, "deliverable not found")
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// GetVersion handles GET /versions/{id}.
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	v, err := h.Deliverables.GetVersion(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "version not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// --- Workflows ---

// CreateWorkflow handles POST /versions/{id}/workflow.
func (h *Handlers) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[workflow.CreateRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	wf, err := h.Orchestrator.CreateWorkflow(r.Context(), urlParam(r, "id"), &req)
	if err != nil {
		writeDomainError(w, err, "version not found")
		return
	}
	writeJSON(w, http.StatusCreated, wf)
}

// GetWorkflow handles GET /versions/{id}/workflow.
func (h *Handlers) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := h.Orchestrator.GetWorkflow(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// decideBody is the JSON body for a decision; the actor may arrive in the
// body (external portal callers) or in headers (internal callers).
type decideBody struct {
	Action     workflow.Action           `json:"action"`
	Comment    string                    `json:"comment,omitempty"`
	DelegateTo string                    `json:"delegate_to,omitempty"`
	Actor      identity.Ref              `json:"actor"`
	Category   workflow.ApproverCategory `json:"category,omitempty"`
}

// Decide handles POST /versions/{id}/workflow/levels/{levelID}/decide.
func (h *Handlers) Decide(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[decideBody](w, r, h.BodyLimit)
	if !ok {
		return
	}

	req := &workflow.DecisionRequest{
		Action:     body.Action,
		Comment:    body.Comment,
		DelegateTo: body.DelegateTo,
		Actor:      body.Actor,
		Category:   body.Category,
	}
	if req.Actor.Empty() {
		req.Actor = middleware.ActorFromContext(r.Context())
	}
	if req.Category == "" {
		req.Category = workflow.ApproverCategory(middleware.ActorCategoryFromContext(r.Context()))
	}

	wf, err := h.Orchestrator.Decide(r.Context(), urlParam(r, "id"), urlParam(r, "levelID"), req)
	if err != nil {
		writeDomainError(w, err, "level not found for version")
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// ListLevelComments handles GET /versions/{id}/workflow/levels/{levelID}/comments.
func (h *Handlers) ListLevelComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.Approvals.ListComments(r.Context(), urlParam(r, "levelID"))
	if err != nil {
		writeDomainError(w, err, "level not found")
		return
	}
	if comments == nil {
		comments = []workflow.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

// ListRounds handles GET /versions/{id}/workflow/rounds.
func (h *Handlers) ListRounds(w http.ResponseWriter, r *http.Request) {
	wf, err := h.Orchestrator.GetWorkflow(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "workflow not found")
		return
	}
	rounds := wf.Rounds
	if rounds == nil {
		rounds = []workflow.RevisionRound{}
	}
	writeJSON(w, http.StatusOK, rounds)
}

// --- Quality gate ---

// GetChecklist handles GET /versions/{id}/checklist.
func (h *Handlers) GetChecklist(w http.ResponseWriter, r *http.Request) {
	cl, err := h.Quality.GetChecklist(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "checklist not found")
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

// UpdateCheck handles PUT /versions/{id}/checklist/checks/{checkID}.
func (h *Handlers) UpdateCheck(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[quality.UpdateCheckRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	checkedBy := middleware.ActorFromContext(r.Context()).Display()
	cl, err := h.Quality.UpdateCheck(r.Context(), urlParam(r, "id"), urlParam(r, "checkID"), &req, checkedBy)
	if err != nil {
		writeDomainError(w, err, "check not found for version")
		return
	}
	writeJSON(w, http.StatusOK, cl)
}

// --- Checklist templates ---

// CreateTemplate handles POST /checklist-templates.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[quality.CreateTemplateRequest](w, r, h.BodyLimit)
	if !ok {
		return
	}
	t, err := h.Quality.CreateTemplate(r.Context(), middleware.TenantIDFromContext(r.Context()), &req)
	if err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// ListTemplates handles GET /checklist-templates.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := h.Quality.ListTemplates(r.Context())
	if err != nil {
		writeDomainError(w, err, "templates not found")
		return
	}
	if items == nil {
		items = []quality.Template{}
	}
	writeJSON(w, http.StatusOK, items)
}

// GetTemplate handles GET /checklist-templates/{id}.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.Quality.GetTemplate(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTemplate handles DELETE /checklist-templates/{id}.
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	if err := h.Quality.DeleteTemplate(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "template not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
