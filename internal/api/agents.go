package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// AgentResponse describes one registered agent.
type AgentResponse struct {
	ID          string `json:"id"`
	Category    string `json:"category,omitempty"`
	Source      string `json:"source"`
	Model       string `json:"model,omitempty"`
	Description string `json:"description,omitempty"`
}

// AgentsHandler serves the agent registry listing.
type AgentsHandler struct {
	registry core.Registry
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(registry core.Registry) *AgentsHandler {
	return &AgentsHandler{registry: registry}
}

// RegisterRoutes registers agent routes on the given router.
func (h *AgentsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/agents", h.handleListAgents)
}

// handleListAgents returns every resolvable agent, sorted by id.
// GET /api/v1/agents
func (h *AgentsHandler) handleListAgents(w http.ResponseWriter, r *http.Request) {
	ids := h.registry.List()

	response := make([]AgentResponse, 0, len(ids))
	for _, id := range ids {
		response = append(response, h.describe(id))
	}

	respondJSON(w, http.StatusOK, response)
}

// describe builds the listing entry for one agent id. Definition metadata
// wins for category and model; a resolvable implementation fills in the
// category when no definition document exists.
func (h *AgentsHandler) describe(id string) AgentResponse {
	response := AgentResponse{
		ID:     id,
		Source: "native",
	}
	if def, ok := h.registry.Definition(id); ok {
		response.Source = "definition"
		response.Category = string(def.Category)
		response.Model = def.Model
		response.Description = def.Description
	}
	if response.Category == "" {
		if agent, err := h.registry.Get(id); err == nil {
			response.Category = string(agent.Category())
		}
	}
	return response
}
