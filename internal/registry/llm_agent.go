package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// definitionAgent runs a definition's instructions through the external LLM
// collaborator. It is synthesized by the registry for agents that have no
// native implementation.
type definitionAgent struct {
	id     string
	def    *core.AgentDefinition
	client core.LLMClient
	model  string
}

func newDefinitionAgent(id string, def *core.AgentDefinition, client core.LLMClient, defaultModel string) *definitionAgent {
	return &definitionAgent{id: id, def: def, client: client, model: defaultModel}
}

func (a *definitionAgent) ID() string { return a.id }

func (a *definitionAgent) Category() core.AgentCategory { return a.def.Category }

func (a *definitionAgent) Execute(ctx context.Context, input core.AgentInput) (*core.AgentOutput, error) {
	model := a.def.Model
	if model == "" {
		model = a.model
	}

	resp, err := a.client.Complete(ctx, core.LLMRequest{
		Model:        model,
		SystemPrompt: a.def.Instructions,
		Prompt:       buildPrompt(input),
	})
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", a.id, err)
	}

	out := core.Success(map[string]any{"content": resp.Content})
	out.TokenUsage = &core.TokenUsage{InputTokens: resp.TokensIn, OutputTokens: resp.TokensOut}
	return out, nil
}

// buildPrompt renders the agent input as a deterministic text prompt: the
// project context first, then upstream agent outputs in id order.
func buildPrompt(input core.AgentInput) string {
	var sb strings.Builder
	sb.WriteString("## Project\n")
	sb.WriteString("project_id: " + input.ProjectID + "\n")

	if len(input.Context) > 0 {
		sb.WriteString("\n## Context\n")
		keys := make([]string, 0, len(input.Context))
		for k := range input.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString(k + ": " + renderValue(input.Context[k]) + "\n")
		}
	}

	if len(input.Dependencies) > 0 {
		ids := make([]string, 0, len(input.Dependencies))
		for id := range input.Dependencies {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			dep := input.Dependencies[id]
			if dep == nil {
				continue
			}
			sb.WriteString("\n## Output from " + id + "\n")
			sb.WriteString(renderValue(dep.Output) + "\n")
		}
	}

	return sb.String()
}

func renderValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

var _ core.Agent = (*definitionAgent)(nil)
