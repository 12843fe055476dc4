package agents

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

func TestJiraProvisioner_DisabledByDefault(t *testing.T) {
	p := NewJiraProvisioner(nil)
	out, err := p.Execute(context.Background(), core.AgentInput{
		ProjectID: "p1",
		Context:   map[string]any{"project_name": "tracker"},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !out.Succeeded() || out.Output["skipped"] != true {
		t.Errorf("Output = %v, want skipped without include_jira", out.Output)
	}
}

func TestJiraProvisioner_BuildsPayloadFromDesign(t *testing.T) {
	dir := t.TempDir()

	p := NewJiraProvisioner(nil)
	out, err := p.Execute(context.Background(), core.AgentInput{
		ProjectID: "p1",
		Context: map[string]any{
			"project_name": "tracker",
			"project_path": dir,
			"include_jira": true,
			"jira_config":  map[string]any{"key_prefix": "TRK"},
		},
		Dependencies: map[string]*core.AgentOutput{
			"po_agent": core.Success(map[string]any{
				"epics": []any{
					map[string]any{"id": "EP-1", "title": "Shared boards"},
					map[string]any{"id": "EP-2", "title": "Email reminders"},
				},
			}),
			"requirement_agent": core.Success(map[string]any{
				"user_stories": []any{
					map[string]any{"id": "US-1", "story": "As a user, I want shared boards."},
				},
			}),
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !out.Succeeded() {
		t.Fatalf("status = %q, errors = %v", out.Status, out.Errors)
	}
	if got := out.Output["project_key"]; got != "TRK" {
		t.Errorf("project_key = %v, want the configured prefix", got)
	}
	if got := out.Output["issue_count"]; got != 3 {
		t.Errorf("issue_count = %v, want 2 epics + 1 story", got)
	}

	target := filepath.Join(dir, "docs", "jira-import.json")
	if len(out.Artifacts) != 1 || out.Artifacts[0] != target {
		t.Errorf("Artifacts = %v, want the payload file", out.Artifacts)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var payload struct {
		Project struct {
			Key      string `json:"key"`
			Name     string `json:"name"`
			Template string `json:"template"`
		} `json:"project"`
		Issues []struct {
			Type    string `json:"type"`
			Summary string `json:"summary"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if payload.Project.Key != "TRK" || payload.Project.Template != "scrum" {
		t.Errorf("project = %+v", payload.Project)
	}
	if len(payload.Issues) != 3 {
		t.Fatalf("issues = %+v, want 3", payload.Issues)
	}
	if payload.Issues[0].Type != "Epic" || payload.Issues[0].Summary != "Shared boards" {
		t.Errorf("issues[0] = %+v", payload.Issues[0])
	}
	if payload.Issues[2].Type != "Story" {
		t.Errorf("issues[2] = %+v, want the story entry", payload.Issues[2])
	}
}

func TestJiraProvisioner_BaselineTasksWithoutDesign(t *testing.T) {
	p := NewJiraProvisioner(nil)
	out, err := p.Execute(context.Background(), core.AgentInput{
		ProjectID: "p1",
		Context: map[string]any{
			"project_name": "task-tracker",
			"include_jira": true,
		},
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !out.Succeeded() {
		t.Fatalf("status = %q, errors = %v", out.Status, out.Errors)
	}
	if got := out.Output["project_key"]; got != "TASK" {
		t.Errorf("project_key = %v, want the name-derived key", got)
	}
	if got := out.Output["issue_count"]; got != 3 {
		t.Errorf("issue_count = %v, want the baseline tasks", got)
	}
	if len(out.Artifacts) != 0 {
		t.Errorf("Artifacts = %v, want none without a project path", out.Artifacts)
	}
}

func TestJiraKey(t *testing.T) {
	cases := []struct {
		ctx  map[string]any
		name string
		want string
	}{
		{map[string]any{"jira_config": map[string]any{"key_prefix": "PAY"}}, "payments", "PAY"},
		{map[string]any{"jira_config": map[string]any{"key_prefix": "bad key"}}, "payments", "PAYM"},
		{nil, "task-tracker", "TASK"},
		{nil, "ab", "AB"},
		{nil, "x", "PROJ"},
	}
	for _, c := range cases {
		if got := jiraKey(c.ctx, c.name); got != c.want {
			t.Errorf("jiraKey(%v, %q) = %q, want %q", c.ctx, c.name, got, c.want)
		}
	}
}
