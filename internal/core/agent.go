package core

import (
	"context"
	"strings"
)

// AgentStatus is the outcome of a single agent execution.
type AgentStatus string

const (
	AgentStatusSuccess    AgentStatus = "success"
	AgentStatusFailure    AgentStatus = "failure"
	AgentStatusNeedsInput AgentStatus = "needs_input"
)

// ValidAgentStatus reports whether s is a recognized agent status.
func ValidAgentStatus(s AgentStatus) bool {
	switch s {
	case AgentStatusSuccess, AgentStatusFailure, AgentStatusNeedsInput:
		return true
	}
	return false
}

// AgentCategory groups agents by the kind of work they perform.
type AgentCategory string

const (
	CategoryOrchestration AgentCategory = "orchestration"
	CategoryDesign        AgentCategory = "design"
	CategoryArchitecture  AgentCategory = "architecture"
	CategoryDevelopment   AgentCategory = "development"
	CategorySupport       AgentCategory = "support"
	CategoryScaffolding   AgentCategory = "scaffolding"
	CategoryDomainExpert  AgentCategory = "domain_expert"
)

// ValidAgentCategory reports whether c is a recognized agent category.
func ValidAgentCategory(c AgentCategory) bool {
	switch c {
	case CategoryOrchestration, CategoryDesign, CategoryArchitecture,
		CategoryDevelopment, CategorySupport, CategoryScaffolding,
		CategoryDomainExpert:
		return true
	}
	return false
}

// AgentInput is the payload handed to an agent for one invocation.
type AgentInput struct {
	ProjectID string `json:"project_id"`
	// Context carries the project input data plus engine-supplied fields.
	Context map[string]interface{} `json:"context,omitempty"`
	// Dependencies holds prior agents' outputs keyed by agent id. Populated
	// for sequential phases and for later batches of a dependency graph.
	Dependencies map[string]*AgentOutput `json:"dependencies,omitempty"`
}

// Validate checks the input satisfies the runner contract.
func (in *AgentInput) Validate() error {
	if strings.TrimSpace(in.ProjectID) == "" {
		return ErrValidation(CodeEmptyProjectID, "agent input requires a project_id")
	}
	return nil
}

// TokenUsage records LLM token consumption for one invocation.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// AgentOutput is the result of one agent invocation.
type AgentOutput struct {
	Status     AgentStatus            `json:"status"`
	Output     map[string]interface{} `json:"output,omitempty"`
	Artifacts  []string               `json:"artifacts,omitempty"`
	Messages   []string               `json:"messages,omitempty"`
	Errors     []string               `json:"errors,omitempty"`
	DurationMS int64                  `json:"duration_ms"`
	TokenUsage *TokenUsage            `json:"token_usage,omitempty"`
}

// Success builds a successful output.
func Success(output map[string]interface{}) *AgentOutput {
	return &AgentOutput{
		Status: AgentStatusSuccess,
		Output: output,
	}
}

// Failure builds a failed output carrying the given error messages.
func Failure(errs ...string) *AgentOutput {
	return &AgentOutput{
		Status: AgentStatusFailure,
		Errors: errs,
	}
}

// Validate checks the output satisfies the runner contract.
func (out *AgentOutput) Validate() error {
	if !ValidAgentStatus(out.Status) {
		return ErrValidation(CodeInvalidStatus,
			"agent output status must be success, failure, or needs_input")
	}
	return nil
}

// Succeeded reports whether the output represents a successful run.
func (out *AgentOutput) Succeeded() bool {
	return out != nil && out.Status == AgentStatusSuccess
}

// Agent is a single unit of work invoked by the orchestrator.
type Agent interface {
	// ID returns the agent identifier used in workflow definitions.
	ID() string
	// Category returns the agent's category.
	Category() AgentCategory
	// Execute runs the agent. Implementations should honor ctx cancellation;
	// the runner enforces the per-attempt deadline through ctx.
	Execute(ctx context.Context, input AgentInput) (*AgentOutput, error)
}

// AgentDefinition is the metadata form of an agent, discovered from a
// definition document. Agents without a native implementation are executed
// through the LLM adapter using Instructions as the system prompt.
type AgentDefinition struct {
	Name         string        `json:"name" yaml:"name"`
	Description  string        `json:"description" yaml:"description"`
	Category     AgentCategory `json:"category" yaml:"category"`
	Model        string        `json:"model" yaml:"model"`
	Tools        []string      `json:"tools" yaml:"tools"`
	Instructions string        `json:"instructions" yaml:"-"`
}

// ExpertMatch is one detected domain with its confidence score.
type ExpertMatch struct {
	Domain  string  `json:"domain"`
	AgentID string  `json:"agent_id"`
	Score   float64 `json:"score"`
}
