// Package registry resolves agent identifiers to runnable implementations.
//
// The registry keeps two tables: agent definitions (metadata loaded from
// markdown documents) and native implementations registered by the
// application at startup. A single Get call unifies both: native
// implementations win, and definition-only agents are backed by a
// synthesized adapter that runs the definition's instructions through the
// external LLM CLI. After startup the registry is read-mostly; all methods
// are safe for concurrent use.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sahilm/fuzzy"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

const maxSuggestions = 3

// Registry maps agent ids to definitions and runnable implementations.
type Registry struct {
	mu              sync.RWMutex
	definitions     map[string]*core.AgentDefinition
	implementations map[string]core.Agent
	synthesized     map[string]core.Agent

	llm          core.LLMClient
	defaultModel string
	log          *logging.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithDefaultModel sets the model used when a definition names none.
func WithDefaultModel(model string) Option {
	return func(r *Registry) { r.defaultModel = model }
}

// WithLogger sets the logger used for definition loading diagnostics.
func WithLogger(log *logging.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// New creates an empty registry. The LLM client backs agents that exist
// only as definitions; it may be nil when every agent has a native
// implementation.
func New(llm core.LLMClient, opts ...Option) *Registry {
	r := &Registry{
		definitions:     make(map[string]*core.AgentDefinition),
		implementations: make(map[string]core.Agent),
		synthesized:     make(map[string]core.Agent),
		llm:             llm,
		log:             logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterAgent adds a native implementation. A later registration for the
// same id replaces the earlier one.
func (r *Registry) RegisterAgent(agent core.Agent) error {
	if agent == nil || agent.ID() == "" {
		return core.ErrValidation(core.CodeBadDefinition, "agent must have a non-empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.implementations[agent.ID()] = agent
	delete(r.synthesized, agent.ID())
	return nil
}

// RegisterDefinition adds agent metadata under the given id.
func (r *Registry) RegisterDefinition(id string, def *core.AgentDefinition) error {
	if id == "" || def == nil {
		return core.ErrValidation(core.CodeBadDefinition, "definition must have a non-empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[id] = def
	// The synthesized adapter captures the definition, so drop it on change.
	delete(r.synthesized, id)
	return nil
}

// Get returns a runnable agent for the id. Native implementations take
// precedence; an agent known only by definition is served by a synthesized
// LLM adapter, created once and reused.
func (r *Registry) Get(id string) (core.Agent, error) {
	r.mu.RLock()
	if agent, ok := r.implementations[id]; ok {
		r.mu.RUnlock()
		return agent, nil
	}
	if agent, ok := r.synthesized[id]; ok {
		r.mu.RUnlock()
		return agent, nil
	}
	def, hasDef := r.definitions[id]
	r.mu.RUnlock()

	if !hasDef {
		err := core.ErrNotFound("agent", id)
		if suggestions := r.Suggest(id); len(suggestions) > 0 {
			err = err.WithDetail("did_you_mean", suggestions)
		}
		return nil, err
	}
	if r.llm == nil {
		return nil, core.ErrInternal(fmt.Sprintf(
			"agent %q has only a definition and no LLM client is configured", id))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another goroutine may have synthesized it between the locks.
	if agent, ok := r.synthesized[id]; ok {
		return agent, nil
	}
	agent := newDefinitionAgent(id, def, r.llm, r.defaultModel)
	r.synthesized[id] = agent
	return agent, nil
}

// Definition returns the metadata for an agent id, if known.
func (r *Registry) Definition(id string) (*core.AgentDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[id]
	return def, ok
}

// Has reports whether Get would succeed for the id.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.implementations[id]; ok {
		return true
	}
	_, ok := r.definitions[id]
	return ok
}

// List returns the ids of all resolvable agents, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.implementations)+len(r.definitions))
	ids := make([]string, 0, len(r.implementations)+len(r.definitions))
	for id := range r.implementations {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id := range r.definitions {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ListByCategory returns sorted agent ids whose category matches.
func (r *Registry) ListByCategory(category core.AgentCategory) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	seen := make(map[string]bool)
	for id, agent := range r.implementations {
		if agent.Category() == category {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for id, def := range r.definitions {
		if !seen[id] && def.Category == category {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Suggest returns up to three registered ids that fuzzy-match the input.
func (r *Registry) Suggest(id string) []string {
	if id == "" {
		return nil
	}
	candidates := r.List()
	matches := fuzzy.Find(id, candidates)
	suggestions := make([]string, 0, maxSuggestions)
	for _, match := range matches {
		suggestions = append(suggestions, match.Str)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions
}

var _ core.Registry = (*Registry)(nil)
