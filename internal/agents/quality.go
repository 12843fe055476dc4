package agents

import (
	"context"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// TestingAgent plans the test strategy for the chosen stack.
type TestingAgent struct{}

// NewTestingAgent creates the test strategy fallback agent.
func NewTestingAgent() *TestingAgent { return &TestingAgent{} }

func (a *TestingAgent) ID() string { return "testing_agent" }

func (a *TestingAgent) Category() core.AgentCategory { return core.CategorySupport }

func (a *TestingAgent) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	stack := languageStack(in.Context)
	out := core.Success(map[string]any{
		"levels":          []any{"unit", "integration", "e2e"},
		"framework":       testFrameworkFor(stack),
		"coverage_target": 0.8,
	})
	out.Messages = []string{"test strategy prepared for " + stack}
	return out, nil
}

func testFrameworkFor(stack string) string {
	switch stack {
	case "node":
		return "vitest"
	case "go":
		return "go test"
	case "java":
		return "junit"
	case "rust":
		return "cargo test"
	case "dotnet":
		return "xunit"
	case "multi":
		return "per-component suites"
	default:
		return "pytest"
	}
}

// CICDAgent plans the delivery pipeline. The workflow generator later
// materializes the plan as a pipeline file in the scaffolded tree.
type CICDAgent struct{}

// NewCICDAgent creates the pipeline planning fallback agent.
func NewCICDAgent() *CICDAgent { return &CICDAgent{} }

func (a *CICDAgent) ID() string { return "cicd_agent" }

func (a *CICDAgent) Category() core.AgentCategory { return core.CategorySupport }

func (a *CICDAgent) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	provider := ciProviderFor(in.Context)
	out := core.Success(map[string]any{
		"provider": provider,
		"stages":   []any{"lint", "test", "build"},
		"triggers": []any{"push", "pull_request"},
	})
	out.Messages = []string{"delivery pipeline planned for " + provider}
	return out, nil
}

// DocumentationAgent plans the documentation set.
type DocumentationAgent struct{}

// NewDocumentationAgent creates the documentation planning fallback agent.
func NewDocumentationAgent() *DocumentationAgent { return &DocumentationAgent{} }

func (a *DocumentationAgent) ID() string { return "documentation_agent" }

func (a *DocumentationAgent) Category() core.AgentCategory { return core.CategorySupport }

func (a *DocumentationAgent) Execute(_ context.Context, _ core.AgentInput) (*core.AgentOutput, error) {
	out := core.Success(map[string]any{
		"documents": []any{"README.md", "docs/architecture.md", "docs/api.md", "CONTRIBUTING.md"},
	})
	out.Messages = []string{"documentation plan prepared"}
	return out, nil
}

var (
	_ core.Agent = (*TestingAgent)(nil)
	_ core.Agent = (*CICDAgent)(nil)
	_ core.Agent = (*DocumentationAgent)(nil)
)
