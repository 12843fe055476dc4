package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/service"
)

// StartWorkflowRequest is the request body for starting a workflow.
type StartWorkflowRequest struct {
	// ProjectID is optional; a UUID is generated when omitted.
	ProjectID string                 `json:"project_id,omitempty"`
	Mode      string                 `json:"mode"`
	InputData map[string]interface{} `json:"input_data,omitempty"`
}

// ResolveGateRequest is the request body for approving or rejecting the
// pending gate. Feedback is optional on approval and mandatory on rejection.
type ResolveGateRequest struct {
	Feedback string `json:"feedback,omitempty"`
}

// WorkflowResponse summarises an execution context in API responses.
type WorkflowResponse struct {
	ProjectID       string     `json:"project_id"`
	Workflow        string     `json:"workflow"`
	Mode            string     `json:"mode"`
	Status          string     `json:"status"`
	CurrentPhase    string     `json:"current_phase,omitempty"`
	CompletedPhases []string   `json:"completed_phases"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// GateResponse represents an approval gate in API responses.
type GateResponse struct {
	GateID     string     `json:"gate_id"`
	ProjectID  string     `json:"project_id"`
	Phase      string     `json:"phase"`
	Status     string     `json:"status"`
	Feedback   string     `json:"feedback,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// ResolutionResponse reports the outcome of a gate resolution.
type ResolutionResponse struct {
	ProjectID  string `json:"project_id"`
	Resolution string `json:"resolution"`
}

// ProgressResponse is the progress snapshot for one project.
type ProgressResponse struct {
	ProjectID        string        `json:"project_id"`
	Mode             string        `json:"mode"`
	Status           string        `json:"status"`
	CurrentPhase     string        `json:"current_phase,omitempty"`
	CompletedPhases  []string      `json:"completed_phases"`
	TotalPhases      int           `json:"total_phases"`
	Percent          int           `json:"percent"`
	ActivatedExperts []string      `json:"activated_experts,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	Error            string        `json:"error,omitempty"`
	PendingGate      *GateResponse `json:"pending_gate,omitempty"`
}

// allProjectStatuses enumerates every status for unfiltered listings.
var allProjectStatuses = []core.ProjectStatus{
	core.StatusPending,
	core.StatusRunning,
	core.StatusAwaitingApproval,
	core.StatusCompleted,
	core.StatusFailed,
	core.StatusCancelled,
}

// ProjectsHandler handles workflow lifecycle endpoints.
type ProjectsHandler struct {
	engine    *service.Engine
	approvals *service.ApprovalManager
	state     core.StateStore
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(engine *service.Engine, approvals *service.ApprovalManager, state core.StateStore) *ProjectsHandler {
	return &ProjectsHandler{
		engine:    engine,
		approvals: approvals,
		state:     state,
	}
}

// RegisterRoutes registers project routes on the given router.
func (h *ProjectsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/projects", func(r chi.Router) {
		r.Get("/", h.handleListProjects)
		r.Post("/", h.handleStartWorkflow)

		r.Route("/{projectID}", func(r chi.Router) {
			r.Get("/", h.handleGetProject)
			r.Post("/approve", h.handleApprove)
			r.Post("/reject", h.handleReject)
			r.Post("/resume", h.handleResume)
			r.Post("/cancel", h.handleCancel)
			r.Get("/gates", h.handleListGates)
		})
	})
}

// handleStartWorkflow starts a workflow run. The run executes in the
// background; the response is the freshly checkpointed context.
// POST /api/v1/projects
func (h *ProjectsHandler) handleStartWorkflow(w http.ResponseWriter, r *http.Request) {
	var req StartWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, err := core.ParseMode(req.Mode)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	projectID := strings.TrimSpace(req.ProjectID)
	if projectID == "" {
		projectID = uuid.NewString()
	}

	ec, err := h.engine.StartWorkflow(r.Context(), projectID, mode, req.InputData)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, workflowToResponse(ec))
}

// handleListProjects returns workflow runs, optionally filtered by status.
// GET /api/v1/projects?status=
func (h *ProjectsHandler) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	statuses := allProjectStatuses
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := core.ProjectStatus(raw)
		if !core.ValidProjectStatus(status) {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown project status: %q", raw))
			return
		}
		statuses = []core.ProjectStatus{status}
	}

	response := make([]WorkflowResponse, 0)
	for _, status := range statuses {
		contexts, err := h.state.ListByStatus(ctx, status)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		for _, ec := range contexts {
			response = append(response, workflowToResponse(ec))
		}
	}

	// Newest first; ties broken by id so the order is stable.
	sort.Slice(response, func(i, j int) bool {
		if response[i].StartedAt.Equal(response[j].StartedAt) {
			return response[i].ProjectID < response[j].ProjectID
		}
		return response[i].StartedAt.After(response[j].StartedAt)
	})

	respondJSON(w, http.StatusOK, response)
}

// handleGetProject returns the progress snapshot for a project.
// GET /api/v1/projects/{projectID}
func (h *ProjectsHandler) handleGetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	progress, err := h.engine.GetProgress(ctx, projectID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	response := ProgressResponse{
		ProjectID:        progress.ProjectID,
		Mode:             string(progress.Mode),
		Status:           string(progress.Status),
		CurrentPhase:     progress.CurrentPhase,
		CompletedPhases:  progress.CompletedPhases,
		ActivatedExperts: progress.ActivatedExperts,
		StartedAt:        progress.StartedAt,
		Error:            progress.Error,
	}
	if workflow, err := h.engine.WorkflowDefinition(progress.Mode); err == nil {
		response.TotalPhases = len(workflow.Phases)
	}
	if response.TotalPhases > 0 {
		response.Percent = len(progress.CompletedPhases) * 100 / response.TotalPhases
	}
	if gate, err := h.approvals.PendingGate(ctx, projectID); err == nil && gate != nil {
		g := gateToResponse(gate)
		response.PendingGate = &g
	}

	respondJSON(w, http.StatusOK, response)
}

// handleApprove resolves the project's pending gate to approved. Approval
// does not resume the run; callers follow up with the resume endpoint.
// POST /api/v1/projects/{projectID}/approve
func (h *ProjectsHandler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.resolveGate(w, r, core.ApprovalApproved)
}

// handleReject resolves the project's pending gate to rejected. The run
// stays suspended at the gate so operators can revise inputs and re-gate.
// POST /api/v1/projects/{projectID}/reject
func (h *ProjectsHandler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.resolveGate(w, r, core.ApprovalRejected)
}

func (h *ProjectsHandler) resolveGate(w http.ResponseWriter, r *http.Request, resolution core.ApprovalStatus) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	var req ResolveGateRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Resolving a gate for an unknown project must read as 404, not as a
	// missing gate.
	if _, err := h.state.Load(ctx, projectID); err != nil {
		respondDomainError(w, err)
		return
	}

	var ok bool
	var err error
	switch resolution {
	case core.ApprovalApproved:
		ok, err = h.approvals.Approve(ctx, projectID, req.Feedback)
	default:
		ok, err = h.approvals.Reject(ctx, projectID, req.Feedback)
	}
	if err != nil {
		respondDomainError(w, err)
		return
	}
	if !ok {
		respondDomainError(w, core.ErrState(core.CodeNoPendingGate,
			fmt.Sprintf("project %s has no pending approval gate", projectID)))
		return
	}

	respondJSON(w, http.StatusOK, ResolutionResponse{
		ProjectID:  projectID,
		Resolution: string(resolution),
	})
}

// handleResume resumes a suspended or recovered workflow run.
// POST /api/v1/projects/{projectID}/resume
func (h *ProjectsHandler) handleResume(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	ec, err := h.engine.ResumeWorkflow(r.Context(), projectID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, workflowToResponse(ec))
}

// handleCancel requests cancellation of a workflow run.
// POST /api/v1/projects/{projectID}/cancel
func (h *ProjectsHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")

	ec, err := h.engine.CancelProject(r.Context(), projectID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, workflowToResponse(ec))
}

// handleListGates returns the project's gate history, oldest first.
// GET /api/v1/projects/{projectID}/gates
func (h *ProjectsHandler) handleListGates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	if _, err := h.state.Load(ctx, projectID); err != nil {
		respondDomainError(w, err)
		return
	}

	gates, err := h.approvals.Gates(ctx, projectID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	response := make([]GateResponse, len(gates))
	for i, gate := range gates {
		response[i] = gateToResponse(gate)
	}

	respondJSON(w, http.StatusOK, response)
}

// decodeOptional decodes a JSON body, treating an empty body as the zero
// value. Approvals may legitimately carry no feedback at all.
func decodeOptional(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == io.EOF {
		return nil
	}
	return err
}

// workflowToResponse converts an ExecutionContext to a WorkflowResponse.
func workflowToResponse(ec *core.ExecutionContext) WorkflowResponse {
	completed := ec.CompletedPhases
	if completed == nil {
		completed = make([]string, 0)
	}
	return WorkflowResponse{
		ProjectID:       ec.ProjectID,
		Workflow:        ec.Workflow,
		Mode:            string(ec.Mode),
		Status:          string(ec.Status),
		CurrentPhase:    ec.CurrentPhase,
		CompletedPhases: completed,
		StartedAt:       ec.StartedAt,
		CompletedAt:     ec.CompletedAt,
		Error:           ec.Error,
	}
}

// gateToResponse converts an ApprovalGate to a GateResponse.
func gateToResponse(gate *core.ApprovalGate) GateResponse {
	return GateResponse{
		GateID:     gate.GateID,
		ProjectID:  gate.ProjectID,
		Phase:      gate.Phase,
		Status:     string(gate.Status),
		Feedback:   gate.Feedback,
		CreatedAt:  gate.CreatedAt,
		ResolvedAt: gate.ResolvedAt,
	}
}
