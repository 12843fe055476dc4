// Package agents provides the built-in native agents behind the discovery
// and direct workflows: input validation, deterministic design fallbacks,
// and the scaffolding chain that materializes a project on disk.
//
// Design-stage agents (product owner, requirements, architects, developers,
// and the quality trio) are text producers. When a markdown definition is
// loaded for one of them the registry serves it through the LLM adapter and
// the deterministic fallback here stays unregistered. The validators, the
// scaffolding chain, and the summary reporter are always native.
package agents

import (
	"strings"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/registry"
)

// Config carries the settings shared by the built-in agents.
type Config struct {
	// WorkspaceRoot is the directory scaffolded projects are created under
	// when the submission does not name a project_path.
	WorkspaceRoot string
	// Log is used by the agents that touch the filesystem or shell out.
	Log *logging.Logger
}

// Register installs the built-in agents into the registry.
func Register(reg *registry.Registry, cfg Config) error {
	if cfg.Log == nil {
		cfg.Log = logging.NewNop()
	}

	native := []core.Agent{
		NewInputValidator(),
		NewSpecValidator(),
		NewFilesystemScaffolder(cfg.WorkspaceRoot, cfg.Log),
		NewGitProvisioner(cfg.Log),
		NewWorkflowGenerator(cfg.Log),
		NewJiraProvisioner(cfg.Log),
		NewSummaryReporter(),
	}
	for _, agent := range native {
		if err := reg.RegisterAgent(agent); err != nil {
			return err
		}
	}

	for _, agent := range DesignFallbacks() {
		if _, ok := reg.Definition(agent.ID()); ok {
			continue
		}
		if err := reg.RegisterAgent(agent); err != nil {
			return err
		}
	}
	return nil
}

// DesignFallbacks returns the deterministic implementations of the design
// stage agents: product owner, requirements, the architect and developer
// sets, and the quality trio.
func DesignFallbacks() []core.Agent {
	agents := []core.Agent{
		NewPOAgent(),
		NewRequirementAgent(),
		NewTestingAgent(),
		NewCICDAgent(),
		NewDocumentationAgent(),
	}
	agents = append(agents, ArchitectAgents()...)
	agents = append(agents, DeveloperAgents()...)
	return agents
}

// contextString returns the trimmed string value under key, or "".
func contextString(ctx map[string]any, key string) string {
	s, _ := ctx[key].(string)
	return strings.TrimSpace(s)
}

// contextBool returns the bool value under key, or fallback when the key is
// absent or not a bool.
func contextBool(ctx map[string]any, key string, fallback bool) bool {
	v, ok := ctx[key]
	if !ok {
		return fallback
	}
	b, ok := v.(bool)
	if !ok {
		return fallback
	}
	return b
}

func contextMap(ctx map[string]any, key string) map[string]any {
	m, _ := ctx[key].(map[string]any)
	return m
}

// depOutput returns the output map of a successful upstream agent, or nil.
func depOutput(deps map[string]*core.AgentOutput, id string) map[string]any {
	dep, ok := deps[id]
	if !ok || !dep.Succeeded() {
		return nil
	}
	return dep.Output
}

// projectPath locates the scaffolded project tree. The filesystem
// scaffolder's output wins over a caller-supplied project_path.
func projectPath(in core.AgentInput) string {
	if out := depOutput(in.Dependencies, "filesystem_scaffolder"); out != nil {
		if p, ok := out["project_path"].(string); ok && p != "" {
			return p
		}
	}
	return contextString(in.Context, "project_path")
}

// projectName returns the submitted project name, falling back to a name
// derived from the project id.
func projectName(in core.AgentInput) string {
	if name := contextString(in.Context, "project_name"); name != "" {
		return name
	}
	return sanitizeName(in.ProjectID)
}

// sanitizeName reduces s to a directory-safe project name.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-_")
	if name == "" {
		return "project"
	}
	return name
}

// needsInput builds the validator outcome for a submission that cannot
// proceed without more information from the caller.
func needsInput(errs []string) *core.AgentOutput {
	return &core.AgentOutput{
		Status: core.AgentStatusNeedsInput,
		Output: map[string]any{"valid": false},
		Errors: errs,
	}
}
