package service

import (
	"context"
	"sort"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// stubAgent is a scripted agent for exercising the executors.
type stubAgent struct {
	id       string
	category core.AgentCategory
	execute  func(ctx context.Context, input core.AgentInput) (*core.AgentOutput, error)
}

func (a *stubAgent) ID() string { return a.id }

func (a *stubAgent) Category() core.AgentCategory {
	if a.category == "" {
		return core.CategorySupport
	}
	return a.category
}

func (a *stubAgent) Execute(ctx context.Context, input core.AgentInput) (*core.AgentOutput, error) {
	if a.execute != nil {
		return a.execute(ctx, input)
	}
	return core.Success(map[string]interface{}{"agent": a.id}), nil
}

// succeedingAgent returns a stub that reports its own id in the output.
func succeedingAgent(id string) *stubAgent {
	return &stubAgent{id: id}
}

// failingAgent returns a stub that always fails with the given message.
func failingAgent(id, message string) *stubAgent {
	return &stubAgent{
		id: id,
		execute: func(context.Context, core.AgentInput) (*core.AgentOutput, error) {
			return core.Failure(message), nil
		},
	}
}

// sleepingAgent blocks for d regardless of ctx, then succeeds.
func sleepingAgent(id string, d time.Duration) *stubAgent {
	return &stubAgent{
		id: id,
		execute: func(context.Context, core.AgentInput) (*core.AgentOutput, error) {
			time.Sleep(d)
			return core.Success(map[string]interface{}{"agent": id}), nil
		},
	}
}

// stubRegistry resolves only the agents it was built with.
type stubRegistry struct {
	agents map[string]core.Agent
}

func newStubRegistry(agents ...core.Agent) *stubRegistry {
	r := &stubRegistry{agents: make(map[string]core.Agent, len(agents))}
	for _, a := range agents {
		r.agents[a.ID()] = a
	}
	return r
}

func (r *stubRegistry) Get(id string) (core.Agent, error) {
	a, ok := r.agents[id]
	if !ok {
		return nil, core.ErrNotFound("agent", id)
	}
	return a, nil
}

func (r *stubRegistry) Definition(string) (*core.AgentDefinition, bool) { return nil, false }

func (r *stubRegistry) List() []string {
	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *stubRegistry) Suggest(string) []string { return nil }

// testInput builds a minimal valid agent input.
func testInput(projectID string) core.AgentInput {
	return core.AgentInput{
		ProjectID:    projectID,
		Context:      map[string]interface{}{},
		Dependencies: map[string]*core.AgentOutput{},
	}
}

// quickRunner builds a runner with no backoff so retry tests stay fast.
func quickRunner(registry core.Registry, opts ...RunnerOption) *Runner {
	base := []RunnerOption{
		WithPolicy(NewRetryPolicy(WithBaseDelay(time.Millisecond), WithMaxDelay(time.Millisecond))),
	}
	return NewRunner(registry, append(base, opts...)...)
}
