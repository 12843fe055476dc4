package testutil

import (
	"context"
	"sync"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// StubAgent is a configurable core.Agent that records every execution.
// The zero behavior returns a success output naming the agent.
type StubAgent struct {
	id       string
	category core.AgentCategory
	execute  func(ctx context.Context, in core.AgentInput) (*core.AgentOutput, error)

	mu    sync.Mutex
	calls []core.AgentInput
}

// NewStubAgent creates a stub with the support category.
func NewStubAgent(id string) *StubAgent {
	return &StubAgent{id: id, category: core.CategorySupport}
}

// WithCategory overrides the stub's category.
func (a *StubAgent) WithCategory(category core.AgentCategory) *StubAgent {
	a.category = category
	return a
}

// WithExecuteFunc replaces the stub's execution behavior.
func (a *StubAgent) WithExecuteFunc(fn func(ctx context.Context, in core.AgentInput) (*core.AgentOutput, error)) *StubAgent {
	a.execute = fn
	return a
}

// WithOutput makes the stub return a fixed success output.
func (a *StubAgent) WithOutput(output map[string]interface{}) *StubAgent {
	a.execute = func(context.Context, core.AgentInput) (*core.AgentOutput, error) {
		return core.Success(output), nil
	}
	return a
}

// WithError makes every execution return err.
func (a *StubAgent) WithError(err error) *StubAgent {
	a.execute = func(context.Context, core.AgentInput) (*core.AgentOutput, error) {
		return nil, err
	}
	return a
}

func (a *StubAgent) ID() string { return a.id }

func (a *StubAgent) Category() core.AgentCategory { return a.category }

func (a *StubAgent) Execute(ctx context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	a.mu.Lock()
	a.calls = append(a.calls, in)
	a.mu.Unlock()

	if a.execute != nil {
		return a.execute(ctx, in)
	}
	return core.Success(map[string]interface{}{"agent": a.id}), nil
}

// Calls returns a copy of the recorded inputs, oldest first.
func (a *StubAgent) Calls() []core.AgentInput {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.AgentInput(nil), a.calls...)
}

// CallCount returns how many times the stub executed.
func (a *StubAgent) CallCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.calls)
}

// Reset clears the recorded calls.
func (a *StubAgent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = nil
}

var _ core.Agent = (*StubAgent)(nil)

// StubLLM is a core.LLMClient that returns canned content and records
// the prompts it received.
type StubLLM struct {
	Content string
	Err     error

	mu      sync.Mutex
	prompts []core.LLMRequest
}

// NewStubLLM creates a client that always answers with content.
func NewStubLLM(content string) *StubLLM {
	return &StubLLM{Content: content}
}

func (c *StubLLM) Complete(_ context.Context, req core.LLMRequest) (*core.LLMResponse, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, req)
	c.mu.Unlock()

	if c.Err != nil {
		return nil, c.Err
	}
	return &core.LLMResponse{Content: c.Content}, nil
}

// Prompts returns a copy of the recorded requests.
func (c *StubLLM) Prompts() []core.LLMRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]core.LLMRequest(nil), c.prompts...)
}

var _ core.LLMClient = (*StubLLM)(nil)
