package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// Accepted values for direct-mode submissions. The activation matrix folds
// unknown project types into web-app, so these lists gate what a submission
// may claim, not what the pipeline can execute.
var (
	knownProjectTypes = []string{
		"web-app", "api", "library", "cli", "monorepo",
		"ml-project", "ai-app", "full-platform",
	}
	knownLanguageStacks = []string{
		"python", "node", "java", "go", "rust", "dotnet", "multi",
	}
	knownCIProviders  = []string{"github-actions", "gitlab-ci", "azure-pipelines"}
	knownVCSProviders = []string{"github", "gitlab", "bitbucket"}
)

var (
	// Discovery names may be mixed case; direct names become directory and
	// repository names and stay lowercase.
	discoveryNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)
	directNamePattern    = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)
)

const (
	minOverviewLen = 100
	maxOverviewLen = 5000
	minNameLen     = 2
	maxNameLen     = 64
)

// InputValidator checks a discovery-mode submission: the free-text project
// overview plus its optional supporting fields. Violations produce a
// needs_input outcome so the caller can amend the submission; they are not
// retried and they do not fail the workflow.
type InputValidator struct{}

// NewInputValidator creates the discovery-mode input validator.
func NewInputValidator() *InputValidator { return &InputValidator{} }

func (a *InputValidator) ID() string { return "input_validator" }

func (a *InputValidator) Category() core.AgentCategory { return core.CategoryOrchestration }

func (a *InputValidator) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	var errs []string
	var warnings []string

	overview := contextString(in.Context, "project_overview")
	switch {
	case overview == "":
		errs = append(errs, "project_overview is required")
	case len(overview) < minOverviewLen:
		errs = append(errs, fmt.Sprintf("project_overview must be at least %d characters, got %d", minOverviewLen, len(overview)))
	case len(overview) > maxOverviewLen:
		errs = append(errs, fmt.Sprintf("project_overview must be at most %d characters, got %d", maxOverviewLen, len(overview)))
	}

	name := contextString(in.Context, "project_name")
	switch {
	case name == "":
		warnings = append(warnings, "project_name not provided; the project id will name the scaffolded tree")
	case len(name) < minNameLen || len(name) > maxNameLen:
		errs = append(errs, fmt.Sprintf("project_name must be %d-%d characters", minNameLen, maxNameLen))
	case !discoveryNamePattern.MatchString(name):
		errs = append(errs, "project_name must start with a letter and contain only letters, numbers, hyphens, and underscores")
	}

	for _, f := range []struct {
		key string
		max int
	}{
		{"target_users", 1000},
		{"key_features", 2000},
		{"constraints", 1000},
		{"similar_products", 500},
	} {
		if v := contextString(in.Context, f.key); len(v) > f.max {
			errs = append(errs, fmt.Sprintf("%s must be at most %d characters", f.key, f.max))
		}
	}

	if len(errs) > 0 {
		return needsInput(errs), nil
	}

	out := core.Success(map[string]any{
		"valid":        true,
		"project_name": strings.ToLower(name),
	})
	out.Messages = append([]string{"project overview accepted"}, warnings...)
	return out, nil
}

// SpecValidator checks a direct-mode submission: an explicit project
// specification naming the stack to scaffold.
type SpecValidator struct{}

// NewSpecValidator creates the direct-mode specification validator.
func NewSpecValidator() *SpecValidator { return &SpecValidator{} }

func (a *SpecValidator) ID() string { return "spec_validator" }

func (a *SpecValidator) Category() core.AgentCategory { return core.CategoryOrchestration }

func (a *SpecValidator) Execute(_ context.Context, in core.AgentInput) (*core.AgentOutput, error) {
	var errs []string
	var warnings []string

	name := contextString(in.Context, "project_name")
	switch {
	case name == "":
		errs = append(errs, "project_name is required")
	case len(name) < minNameLen || len(name) > maxNameLen:
		errs = append(errs, fmt.Sprintf("project_name must be %d-%d characters", minNameLen, maxNameLen))
	case !directNamePattern.MatchString(name):
		errs = append(errs, "project_name must be lowercase, start with a letter, and contain only letters, numbers, and hyphens")
	}

	projectType := contextString(in.Context, "project_type")
	if projectType == "" {
		errs = append(errs, "project_type is required")
	} else if !oneOf(projectType, knownProjectTypes) {
		errs = append(errs, fmt.Sprintf("project_type must be one of %s", strings.Join(knownProjectTypes, ", ")))
	}

	stack := contextString(in.Context, "language_stack")
	if stack == "" {
		errs = append(errs, "language_stack is required")
	} else if !oneOf(stack, knownLanguageStacks) {
		errs = append(errs, fmt.Sprintf("language_stack must be one of %s", strings.Join(knownLanguageStacks, ", ")))
	}

	if contextBool(in.Context, "include_ci", true) {
		if ci := contextString(in.Context, "ci_provider"); ci == "" {
			warnings = append(warnings, "ci_provider not set; defaulting to github-actions")
		} else if !oneOf(ci, knownCIProviders) {
			errs = append(errs, fmt.Sprintf("ci_provider must be one of %s", strings.Join(knownCIProviders, ", ")))
		}
	}
	if contextBool(in.Context, "include_repo", true) {
		if vcs := contextString(in.Context, "vcs_provider"); vcs != "" && !oneOf(vcs, knownVCSProviders) {
			errs = append(errs, fmt.Sprintf("vcs_provider must be one of %s", strings.Join(knownVCSProviders, ", ")))
		}
	}

	if len(errs) > 0 {
		return needsInput(errs), nil
	}

	out := core.Success(map[string]any{
		"valid":          true,
		"project_name":   name,
		"project_type":   projectType,
		"language_stack": stack,
	})
	out.Messages = append([]string{"project specification accepted"}, warnings...)
	return out, nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

var (
	_ core.Agent = (*InputValidator)(nil)
	_ core.Agent = (*SpecValidator)(nil)
)
