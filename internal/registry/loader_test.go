package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "security_architect.md", `---
name: security_architect
description: Designs the security posture.
category: architecture
model: opus
tools: [read, write]
---
Review the requirements and produce a threat model.
`)
	writeDefinition(t, dir, "po_agent.md", `---
name: po_agent
description: Produces the product design.
category: design
---
Write the product design document.
`)

	defs, err := LoadDir(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("LoadDir() returned %d definitions, want 2", len(defs))
	}

	sec, ok := defs["security_architect"]
	if !ok {
		t.Fatal("missing security_architect definition")
	}
	if sec.Category != core.CategoryArchitecture {
		t.Errorf("Category = %q, want architecture", sec.Category)
	}
	if sec.Model != "opus" {
		t.Errorf("Model = %q, want opus", sec.Model)
	}
	if len(sec.Tools) != 2 {
		t.Errorf("Tools = %v, want 2 entries", sec.Tools)
	}
	if sec.Instructions != "Review the requirements and produce a threat model.\n" {
		t.Errorf("Instructions = %q, want document body", sec.Instructions)
	}
}

func TestLoadDir_SkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "good.md", `---
name: good
category: support
---
Body.
`)
	// No frontmatter at all.
	writeDefinition(t, dir, "plain.md", "just text, no header\n")
	// Name does not match the filename.
	writeDefinition(t, dir, "renamed.md", `---
name: other
---
Body.
`)
	// Unknown category.
	writeDefinition(t, dir, "odd.md", `---
name: odd
category: wizardry
---
Body.
`)
	// Broken YAML.
	writeDefinition(t, dir, "broken.md", "---\nname: [unclosed\n---\nBody.\n")
	// Non-markdown files are ignored entirely.
	writeDefinition(t, dir, "notes.txt", "irrelevant")

	defs, err := LoadDir(dir, logging.NewNop())
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("LoadDir() returned %d definitions, want only the valid one", len(defs))
	}
	if _, ok := defs["good"]; !ok {
		t.Error("valid definition should survive malformed neighbors")
	}
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	defs, err := LoadDir(filepath.Join(t.TempDir(), "does-not-exist"), logging.NewNop())
	if err != nil {
		t.Fatalf("LoadDir() error = %v, want nil for missing dir", err)
	}
	if len(defs) != 0 {
		t.Errorf("LoadDir() = %v, want empty", defs)
	}
}

func TestLoadInto(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "ml_architect.md", `---
name: ml_architect
category: architecture
---
Design the training pipeline.
`)

	r := New(&fakeLLM{reply: "ok"})
	if err := r.LoadInto(dir); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}
	if _, ok := r.Definition("ml_architect"); !ok {
		t.Fatal("definition should be registered after LoadInto")
	}
	agent, err := r.Get("ml_architect")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if agent.ID() != "ml_architect" {
		t.Errorf("agent.ID() = %q, want ml_architect", agent.ID())
	}
}

func TestSplitFrontmatter(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantOK   bool
		wantBody string
	}{
		{
			name:     "well formed",
			raw:      "---\nname: a\n---\nbody here\n",
			wantOK:   true,
			wantBody: "body here\n",
		},
		{
			name:     "windows line endings",
			raw:      "---\r\nname: a\r\n---\r\nbody\r\n",
			wantOK:   true,
			wantBody: "body\n",
		},
		{
			name:   "no opening delimiter",
			raw:    "name: a\n---\nbody\n",
			wantOK: false,
		},
		{
			name:   "no closing delimiter",
			raw:    "---\nname: a\nbody\n",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body, ok := splitFrontmatter(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("splitFrontmatter() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}
