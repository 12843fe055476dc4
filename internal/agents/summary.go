package agents

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// SummaryReporter closes a workflow by aggregating every prior agent's
// outcome into one report. It writes no files; the report travels in the
// agent output so the API and CLI can render it.
type SummaryReporter struct{}

// NewSummaryReporter creates the closing report agent.
func NewSummaryReporter() *SummaryReporter { return &SummaryReporter{} }

func (a *SummaryReporter) ID() string { return "summary_reporter" }

func (a *SummaryReporter) Category() core.AgentCategory { return core.CategoryOrchestration }

func (a *SummaryReporter) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	ids := make([]string, 0, len(in.Dependencies))
	for id := range in.Dependencies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var succeeded, failed int
	artifacts := make([]any, 0, 4)
	lines := make([]string, 0, len(ids))
	for _, id := range ids {
		res := in.Dependencies[id]
		if res == nil {
			continue
		}
		if res.Succeeded() {
			succeeded++
		} else {
			failed++
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", id, res.Status))
		for _, art := range res.Artifacts {
			artifacts = append(artifacts, art)
		}
	}
	total := succeeded + failed

	name := projectName(in)
	path := projectPath(in)

	var b strings.Builder
	fmt.Fprintf(&b, "# Workflow summary: %s\n\n", name)
	if mode := contextString(in.Context, "mode"); mode != "" {
		fmt.Fprintf(&b, "Mode: %s\n\n", mode)
	}
	fmt.Fprintf(&b, "Agents run: %d (%d succeeded, %d failed)\n", total, succeeded, failed)
	if path != "" {
		fmt.Fprintf(&b, "Project path: %s\n", path)
	}
	if len(lines) > 0 {
		b.WriteString("\n## Agents\n\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	if len(artifacts) > 0 {
		b.WriteString("\n## Artifacts\n\n")
		for _, art := range artifacts {
			fmt.Fprintf(&b, "- %v\n", art)
		}
	}

	output := map[string]any{
		"agents_total":     total,
		"agents_succeeded": succeeded,
		"agents_failed":    failed,
		"artifacts":        artifacts,
		"report":           b.String(),
	}
	if path != "" {
		output["project_path"] = path
	}

	out := core.Success(output)
	out.Messages = []string{fmt.Sprintf("workflow summary generated for %d agents", total)}
	return out, nil
}

var _ core.Agent = (*SummaryReporter)(nil)
