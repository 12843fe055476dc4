package service

import (
	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// scaffoldingDependencies is the canonical ordering for the scaffolding
// phase: the repository tree must exist before git provisioning, and both
// CI workflow generation and issue-tracker provisioning need the repository.
func scaffoldingDependencies() map[string][]string {
	return map[string][]string{
		"git_provisioner":    {"filesystem_scaffolder"},
		"workflow_generator": {"git_provisioner"},
		"jira_provisioner":   {"git_provisioner"},
	}
}

// DiscoveryWorkflow returns the eight-phase discovery definition: the user
// provides a project overview and the pipeline designs everything else.
func DiscoveryWorkflow() *core.WorkflowDefinition {
	return &core.WorkflowDefinition{
		Name: "AI Discovery Workflow",
		Mode: core.ModeDiscovery,
		Phases: []core.Phase{
			{
				Name:           "input",
				DisplayName:    "Input",
				Description:    "Receive and validate project overview",
				ExecutionModel: core.ModelSequential,
				Agents:         []string{"input_validator"},
			},
			{
				Name:             "product_design",
				DisplayName:      "Product Design",
				Description:      "Generate product design from overview",
				RequiresApproval: true,
				ExecutionModel:   core.ModelSequential,
				Agents:           []string{"po_agent"},
			},
			{
				Name:           "requirements",
				DisplayName:    "Requirements",
				Description:    "Generate detailed requirements, epics, and user stories",
				ExecutionModel: core.ModelParallel,
				Agents:         []string{"requirement_agent"},
			},
			{
				Name:             "architecture_design",
				DisplayName:      "Architecture Design",
				Description:      "Design system architecture",
				RequiresApproval: true,
				ExecutionModel:   core.ModelParallel,
				Agents: []string{
					"fullstack_architect",
					"backend_architect",
					"frontend_architect",
					"database_architect",
					"infrastructure_architect",
					"security_architect",
					"ml_architect",
					"ai_architect",
				},
				ActivationRules: &core.ActivationRules{UseActivationMatrix: true},
			},
			{
				Name:           "code_generation",
				DisplayName:    "Code Generation",
				Description:    "Generate code from architecture",
				ExecutionModel: core.ModelParallel,
				Agents: []string{
					"fullstack_developer",
					"backend_developer",
					"frontend_developer",
					"aiml_developer",
				},
				ActivationRules: &core.ActivationRules{UseActivationMatrix: true},
			},
			{
				Name:           "quality",
				DisplayName:    "Quality & DevOps",
				Description:    "Generate tests, CI/CD, and documentation",
				ExecutionModel: core.ModelParallel,
				Agents: []string{
					"testing_agent",
					"cicd_agent",
					"documentation_agent",
				},
			},
			{
				Name:           "scaffolding",
				DisplayName:    "Scaffolding",
				Description:    "Create project files and setup integrations",
				ExecutionModel: core.ModelDependencyGraph,
				Agents: []string{
					"filesystem_scaffolder",
					"git_provisioner",
					"workflow_generator",
					"jira_provisioner",
				},
				Dependencies: scaffoldingDependencies(),
			},
			{
				Name:           "summary",
				DisplayName:    "Summary",
				Description:    "Generate final summary and next steps",
				ExecutionModel: core.ModelSequential,
				Agents:         []string{"summary_reporter"},
			},
		},
	}
}

// DirectWorkflow returns the four-phase direct definition: the user
// specifies the exact stack and the pipeline scaffolds it.
func DirectWorkflow() *core.WorkflowDefinition {
	return &core.WorkflowDefinition{
		Name: "Direct Scaffolding Workflow",
		Mode: core.ModeDirect,
		Phases: []core.Phase{
			{
				Name:           "input",
				DisplayName:    "Input",
				Description:    "Receive and validate project specification",
				ExecutionModel: core.ModelSequential,
				Agents:         []string{"spec_validator"},
			},
			{
				Name:           "architecture_design",
				DisplayName:    "Architecture",
				Description:    "Quick architecture setup",
				ExecutionModel: core.ModelParallel,
				Agents: []string{
					"infrastructure_architect",
					"security_architect",
				},
			},
			{
				Name:           "scaffolding",
				DisplayName:    "Scaffolding",
				Description:    "Create project files and setup integrations",
				ExecutionModel: core.ModelDependencyGraph,
				Agents: []string{
					"filesystem_scaffolder",
					"git_provisioner",
					"workflow_generator",
					"jira_provisioner",
				},
				Dependencies: scaffoldingDependencies(),
			},
			{
				Name:           "summary",
				DisplayName:    "Summary",
				Description:    "Generate final summary",
				ExecutionModel: core.ModelSequential,
				Agents:         []string{"summary_reporter"},
			},
		},
	}
}

// WorkflowForMode selects the built-in workflow definition for a mode.
func WorkflowForMode(mode core.WorkflowMode) (*core.WorkflowDefinition, error) {
	switch mode {
	case core.ModeDiscovery:
		return DiscoveryWorkflow(), nil
	case core.ModeDirect:
		return DirectWorkflow(), nil
	}
	return nil, core.ErrValidation(core.CodeUnknownMode, "unknown workflow mode: "+string(mode))
}
