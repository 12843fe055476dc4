package agents

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/fsutil"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

// WorkflowGenerator writes the CI pipeline file for the chosen provider
// into the scaffolded tree.
type WorkflowGenerator struct {
	log *logging.Logger
}

// NewWorkflowGenerator creates the pipeline file generator.
func NewWorkflowGenerator(log *logging.Logger) *WorkflowGenerator {
	if log == nil {
		log = logging.NewNop()
	}
	return &WorkflowGenerator{log: log}
}

func (a *WorkflowGenerator) ID() string { return "workflow_generator" }

func (a *WorkflowGenerator) Category() core.AgentCategory { return core.CategoryScaffolding }

func (a *WorkflowGenerator) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	if !contextBool(in.Context, "include_ci", true) {
		out := core.Success(map[string]any{"skipped": true})
		out.Messages = []string{"pipeline generation disabled"}
		return out, nil
	}

	dir := projectPath(in)
	if dir == "" {
		return core.Failure("no project path available for pipeline generation"), nil
	}

	provider := ciProviderFor(in.Context)
	stack := languageStack(in.Context)

	rel, content := pipelineFor(provider, stack)
	if rel == "" {
		return core.Failure("unsupported ci provider: " + provider), nil
	}

	target := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return core.Failure("creating pipeline directory: " + err.Error()), nil
	}
	if err := fsutil.WriteFileScoped(target, []byte(content), 0o644); err != nil {
		return core.Failure("writing " + rel + ": " + err.Error()), nil
	}

	a.log.WithAgent(a.ID()).WithProject(in.ProjectID).Info("pipeline file written",
		"provider", provider,
		"file", rel,
	)

	out := core.Success(map[string]any{
		"provider":      provider,
		"pipeline_file": rel,
	})
	out.Artifacts = []string{target}
	out.Messages = []string{"generated " + provider + " pipeline at " + rel}
	return out, nil
}

// pipelineFor returns the provider's conventional file location and a
// pipeline running the stack's test suite. An unknown provider returns an
// empty path.
func pipelineFor(provider, stack string) (string, string) {
	switch provider {
	case "github-actions":
		return ".github/workflows/ci.yml", githubPipeline(stack)
	case "gitlab-ci":
		return ".gitlab-ci.yml", gitlabPipeline(stack)
	case "azure-pipelines":
		return "azure-pipelines.yml", azurePipeline(stack)
	}
	return "", ""
}

func githubPipeline(stack string) string {
	return `name: CI

on:
  push:
    branches: [main]
  pull_request:
    branches: [main]

jobs:
  test:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4

` + githubSteps(stack)
}

func githubSteps(stack string) string {
	switch stack {
	case "python":
		return `      - name: Set up Python
        uses: actions/setup-python@v5
        with:
          python-version: "3.11"

      - name: Install dependencies
        run: pip install -e ".[dev]"

      - name: Run tests
        run: pytest tests/
`
	case "node":
		return `      - name: Set up Node
        uses: actions/setup-node@v4
        with:
          node-version: "20"

      - name: Install dependencies
        run: npm install

      - name: Run tests
        run: npm test
`
	case "go":
		return `      - name: Set up Go
        uses: actions/setup-go@v5
        with:
          go-version: stable

      - name: Build
        run: go build ./...

      - name: Run tests
        run: go test ./...
`
	}
	return `      - name: Placeholder
        run: echo "configure a test runner for this stack"
`
}

func gitlabPipeline(stack string) string {
	var image, script string
	switch stack {
	case "python":
		image = "python:3.11"
		script = "    - pip install -e \".[dev]\"\n    - pytest tests/\n"
	case "node":
		image = "node:20"
		script = "    - npm install\n    - npm test\n"
	case "go":
		image = "golang:1.24"
		script = "    - go build ./...\n    - go test ./...\n"
	default:
		image = "alpine:3"
		script = "    - echo \"configure a test runner for this stack\"\n"
	}
	return `stages:
  - test

test:
  stage: test
  image: ` + image + `
  script:
` + script
}

func azurePipeline(stack string) string {
	var steps string
	switch stack {
	case "python":
		steps = `  - task: UsePythonVersion@0
    inputs:
      versionSpec: "3.11"
  - script: pip install -e ".[dev]"
    displayName: Install dependencies
  - script: pytest tests/
    displayName: Run tests
`
	case "node":
		steps = `  - task: NodeTool@0
    inputs:
      versionSpec: "20.x"
  - script: npm install
    displayName: Install dependencies
  - script: npm test
    displayName: Run tests
`
	case "go":
		steps = `  - script: go build ./...
    displayName: Build
  - script: go test ./...
    displayName: Run tests
`
	default:
		steps = `  - script: echo "configure a test runner for this stack"
    displayName: Placeholder
`
	}
	return `trigger:
  branches:
    include: [main]

pool:
  vmImage: ubuntu-latest

steps:
` + steps
}

var _ core.Agent = (*WorkflowGenerator)(nil)
