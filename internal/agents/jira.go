package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/fsutil"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

var jiraKeyPattern = regexp.MustCompile(`^[A-Z]{2,10}$`)

// JiraProvisioner emits the issue-tracker payloads for the project: one
// Jira project plus an issue per epic and user story from the design
// phases. The payloads are written as an importable JSON artifact; pushing
// them to a Jira instance is the external collaborator's concern.
type JiraProvisioner struct {
	log *logging.Logger
}

// NewJiraProvisioner creates the issue-tracker provisioning agent.
func NewJiraProvisioner(log *logging.Logger) *JiraProvisioner {
	if log == nil {
		log = logging.NewNop()
	}
	return &JiraProvisioner{log: log}
}

func (a *JiraProvisioner) ID() string { return "jira_provisioner" }

func (a *JiraProvisioner) Category() core.AgentCategory { return core.CategoryScaffolding }

func (a *JiraProvisioner) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	if !contextBool(in.Context, "include_jira", false) {
		out := core.Success(map[string]any{"skipped": true})
		out.Messages = []string{"issue tracker provisioning disabled"}
		return out, nil
	}

	name := projectName(in)
	key := jiraKey(in.Context, name)
	issues := jiraIssues(in)

	payload := map[string]any{
		"project": map[string]any{
			"key":      key,
			"name":     name,
			"template": jiraTemplate(in.Context),
		},
		"issues": issues,
	}

	out := core.Success(map[string]any{
		"project_key": key,
		"issue_count": len(issues),
		"payload":     payload,
	})
	out.Messages = []string{fmt.Sprintf("prepared %d issues for project %s", len(issues), key)}

	// The payload doubles as a file artifact when a scaffolded tree exists.
	if dir := projectPath(in); dir != "" {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return core.Failure("encoding jira payload: " + err.Error()), nil
		}
		target := filepath.Join(dir, "docs", "jira-import.json")
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return core.Failure("creating docs directory: " + err.Error()), nil
		}
		if err := fsutil.WriteFileScoped(target, append(data, '\n'), 0o644); err != nil {
			return core.Failure("writing jira-import.json: " + err.Error()), nil
		}
		out.Artifacts = []string{target}

		a.log.WithAgent(a.ID()).WithProject(in.ProjectID).Info("jira payload written",
			"file", target,
			"issues", len(issues),
		)
	}

	return out, nil
}

// jiraKey derives the project key: the configured prefix when valid, else
// the leading letters of the project name, uppercased.
func jiraKey(ctx map[string]any, name string) string {
	if cfg := contextMap(ctx, "jira_config"); cfg != nil {
		if prefix, _ := cfg["key_prefix"].(string); jiraKeyPattern.MatchString(prefix) {
			return prefix
		}
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
			if b.Len() == 4 {
				break
			}
		}
	}
	if b.Len() < 2 {
		return "PROJ"
	}
	return b.String()
}

func jiraTemplate(ctx map[string]any) string {
	if cfg := contextMap(ctx, "jira_config"); cfg != nil {
		switch t, _ := cfg["project_type"].(string); t {
		case "scrum", "kanban", "basic":
			return t
		}
	}
	return "scrum"
}

// jiraIssues builds the issue list: epics and stories from the design
// phases when they ran, a setup baseline otherwise.
func jiraIssues(in core.AgentInput) []any {
	issues := make([]any, 0, 8)

	if out := depOutput(in.Dependencies, "po_agent"); out != nil {
		if raw, ok := out["epics"].([]any); ok {
			for _, e := range raw {
				if m, ok := e.(map[string]any); ok {
					issues = append(issues, map[string]any{"type": "Epic", "summary": m["title"]})
				}
			}
		}
	}

	stories := depOutput(in.Dependencies, "requirement_agent")
	if stories == nil {
		stories = depOutput(in.Dependencies, "po_agent")
	}
	if stories != nil {
		if raw, ok := stories["user_stories"].([]any); ok {
			for _, s := range raw {
				if m, ok := s.(map[string]any); ok {
					issues = append(issues, map[string]any{"type": "Story", "summary": m["story"]})
				}
			}
		}
	}

	if len(issues) == 0 {
		issues = append(issues,
			map[string]any{"type": "Task", "summary": "Set up the development environment"},
			map[string]any{"type": "Task", "summary": "Review the scaffolded project structure"},
			map[string]any{"type": "Task", "summary": "Configure the delivery pipeline"},
		)
	}
	return issues
}

var _ core.Agent = (*JiraProvisioner)(nil)
