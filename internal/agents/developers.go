package agents

import (
	"context"
	"fmt"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// developerAgent is the deterministic fallback for one developer specialty.
// It emits a build plan rather than code: the modules to create and the
// tasks to schedule, sized to the chosen stack.
type developerAgent struct {
	id      string
	modules []string
}

// DeveloperAgents returns the four developer fallback agents.
func DeveloperAgents() []core.Agent {
	specs := []developerAgent{
		{id: "fullstack_developer", modules: []string{"api", "ui", "storage"}},
		{id: "backend_developer", modules: []string{"api", "services", "storage"}},
		{id: "frontend_developer", modules: []string{"components", "pages", "state"}},
		{id: "aiml_developer", modules: []string{"pipeline", "models", "inference"}},
	}
	agents := make([]core.Agent, 0, len(specs))
	for i := range specs {
		agents = append(agents, &specs[i])
	}
	return agents
}

func (a *developerAgent) ID() string { return a.id }

func (a *developerAgent) Category() core.AgentCategory { return core.CategoryDevelopment }

func (a *developerAgent) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	modules := make([]any, 0, len(a.modules))
	tasks := make([]any, 0, len(a.modules))
	for i, m := range a.modules {
		modules = append(modules, m)
		tasks = append(tasks, map[string]any{
			"id":          fmt.Sprintf("TASK-%d", i+1),
			"description": "Implement the " + m + " module",
		})
	}

	out := core.Success(map[string]any{
		"language": languageStack(in.Context),
		"modules":  modules,
		"tasks":    tasks,
	})
	out.Messages = []string{fmt.Sprintf("%s planned %d modules", a.id, len(a.modules))}
	return out, nil
}

var _ core.Agent = (*developerAgent)(nil)
