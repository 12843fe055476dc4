package agents

import (
	"context"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// architectAgent is the deterministic fallback for one architecture
// specialty. Each instance emits the design section its specialty owns,
// derived from the submitted stack, features, and detected domains.
type architectAgent struct {
	id     string
	aspect string
}

// ArchitectAgents returns the eight architecture fallback agents.
func ArchitectAgents() []core.Agent {
	specs := []architectAgent{
		{id: "fullstack_architect", aspect: "tech_stack"},
		{id: "backend_architect", aspect: "api_design"},
		{id: "frontend_architect", aspect: "frontend"},
		{id: "database_architect", aspect: "data_model"},
		{id: "infrastructure_architect", aspect: "infrastructure"},
		{id: "security_architect", aspect: "security"},
		{id: "ml_architect", aspect: "ml_platform"},
		{id: "ai_architect", aspect: "ai_integration"},
	}
	agents := make([]core.Agent, 0, len(specs))
	for i := range specs {
		agents = append(agents, &specs[i])
	}
	return agents
}

func (a *architectAgent) ID() string { return a.id }

func (a *architectAgent) Category() core.AgentCategory { return core.CategoryArchitecture }

func (a *architectAgent) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	out := core.Success(map[string]any{
		"aspect": a.aspect,
		"design": a.design(in),
	})
	out.Messages = []string{a.id + " produced the " + a.aspect + " design"}
	return out, nil
}

func (a *architectAgent) design(in core.AgentInput) map[string]any {
	stack := languageStack(in.Context)
	features := featureList(in.Context)

	switch a.id {
	case "fullstack_architect":
		return map[string]any{
			"language":           stack,
			"backend_framework":  backendFrameworkFor(stack),
			"frontend_framework": "react",
			"database":           databaseFor(in.Context),
			"system_components":  systemComponents(contextString(in.Context, "project_type")),
		}
	case "backend_architect":
		return map[string]any{
			"style":     "rest",
			"base_path": "/api/v1",
			"framework": backendFrameworkFor(stack),
			"resources": resourceSlugs(features),
		}
	case "frontend_architect":
		return map[string]any{
			"framework":        "react",
			"state_management": "context",
			"pages":            append([]any{"home"}, resourceSlugs(features)...),
		}
	case "database_architect":
		return map[string]any{
			"engine":     databaseFor(in.Context),
			"entities":   resourceSlugs(features),
			"migrations": true,
		}
	case "infrastructure_architect":
		return map[string]any{
			"containerized": true,
			"orchestration": "docker-compose",
			"environments":  []any{"dev", "staging", "prod"},
			"ci_provider":   ciProviderFor(in.Context),
		}
	case "security_architect":
		return map[string]any{
			"authentication":        "jwt",
			"authorization":         "rbac",
			"encryption_in_transit": true,
			"encryption_at_rest":    true,
			"compliance":            complianceFor(in.Context),
		}
	case "ml_architect":
		return map[string]any{
			"training":            "batch pipeline",
			"experiment_tracking": true,
			"model_registry":      true,
			"serving":             "rest endpoint",
		}
	case "ai_architect":
		return map[string]any{
			"provider_abstraction": true,
			"prompt_management":    "versioned templates",
			"evaluation":           "offline evals",
			"guardrails":           []any{"input filtering", "output validation"},
		}
	}
	return map[string]any{}
}

func languageStack(ctx map[string]any) string {
	if stack := contextString(ctx, "language_stack"); stack != "" {
		return stack
	}
	return "python"
}

func backendFrameworkFor(stack string) string {
	switch stack {
	case "node":
		return "express"
	case "go":
		return "chi"
	case "java":
		return "spring-boot"
	case "rust":
		return "axum"
	case "dotnet":
		return "aspnet-core"
	default:
		return "fastapi"
	}
}

func databaseFor(ctx map[string]any) string {
	if db := contextString(ctx, "database"); db != "" {
		return db
	}
	return "postgresql"
}

func ciProviderFor(ctx map[string]any) string {
	if ci := contextString(ctx, "ci_provider"); ci != "" {
		return ci
	}
	return "github-actions"
}

// resourceSlugs condenses feature statements into identifier-style names.
func resourceSlugs(features []string) []any {
	if len(features) == 0 {
		return []any{"core"}
	}
	slugs := make([]any, 0, len(features))
	for _, f := range features {
		slugs = append(slugs, sanitizeName(f))
	}
	return slugs
}

func systemComponents(projectType string) []any {
	components := []any{"api service", "database"}
	switch projectType {
	case "api":
		// API projects ship no client.
	case "ml-project":
		components = append(components, "training pipeline")
	case "ai-app":
		components = append(components, "web client", "llm gateway")
	case "full-platform":
		components = append(components, "web client", "training pipeline", "llm gateway")
	default:
		components = append(components, "web client")
	}
	return components
}

// complianceFor maps the detected domains to the regimes the security
// design must carry.
func complianceFor(ctx map[string]any) []any {
	matches, _ := ctx["activated_experts"].([]core.ExpertMatch)
	regimes := make([]any, 0, len(matches))
	for _, m := range matches {
		switch m.Domain {
		case "healthcare":
			regimes = append(regimes, "hipaa")
		case "finance":
			regimes = append(regimes, "pci-dss")
		case "legaltech":
			regimes = append(regimes, "gdpr")
		case "edtech":
			regimes = append(regimes, "ferpa")
		}
	}
	return regimes
}

var _ core.Agent = (*architectAgent)(nil)
