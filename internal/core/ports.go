// Package core defines the domain types and ports for the workflow
// orchestrator. Adapters and services depend on this package; it depends
// on nothing outside the standard library.
package core

import "context"

// StateStore persists execution contexts. Save must be atomic with respect
// to crash: partial writes are never observable on load. Implementations
// never interpret context fields beyond the status used for listing.
type StateStore interface {
	// Save persists the context, replacing any prior version.
	Save(ctx context.Context, ec *ExecutionContext) error
	// Load returns the context for a project, or a not-found error.
	Load(ctx context.Context, projectID string) (*ExecutionContext, error)
	// Delete removes a project's context. Deleting a missing project is not
	// an error.
	Delete(ctx context.Context, projectID string) error
	// ListByStatus returns all contexts currently in the given status.
	ListByStatus(ctx context.Context, status ProjectStatus) ([]*ExecutionContext, error)
	// Close releases any held resources.
	Close() error
}

// GateStore persists approval gates with their resolution history.
type GateStore interface {
	// SaveGate persists a gate, replacing any prior version with the same id.
	SaveGate(ctx context.Context, gate *ApprovalGate) error
	// ListGates returns all gates for a project, oldest first.
	ListGates(ctx context.Context, projectID string) ([]*ApprovalGate, error)
}

// Registry resolves agent identifiers to runnable handles.
type Registry interface {
	// Get returns a runnable agent. When only a definition exists, an
	// LLM-adapter agent is synthesized from it.
	Get(id string) (Agent, error)
	// Definition returns the metadata for an agent id, if known.
	Definition(id string) (*AgentDefinition, bool)
	// List returns the ids of all resolvable agents, sorted.
	List() []string
	// Suggest returns close matches for an unknown id.
	Suggest(id string) []string
}

// LLMRequest is one prompt execution against the external LLM collaborator.
type LLMRequest struct {
	Model        string
	SystemPrompt string
	Prompt       string
}

// LLMResponse is the collaborator's reply.
type LLMResponse struct {
	Content   string
	TokensIn  int
	TokensOut int
}

// LLMClient executes prompts through the external LLM collaborator.
// Implementations must honor ctx cancellation.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (*LLMResponse, error)
}
