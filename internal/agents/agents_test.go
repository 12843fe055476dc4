package agents

import (
	"context"
	"testing"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/registry"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/service"
)

type stubLLM struct{}

func (stubLLM) Complete(_ context.Context, _ core.LLMRequest) (*core.LLMResponse, error) {
	return &core.LLMResponse{Content: "generated"}, nil
}

func TestRegister_BuiltinWorkflowsFullyResolvable(t *testing.T) {
	reg := registry.New(nil)
	if err := Register(reg, Config{WorkspaceRoot: t.TempDir()}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for _, wf := range []*core.WorkflowDefinition{service.DiscoveryWorkflow(), service.DirectWorkflow()} {
		for _, phase := range wf.Phases {
			for _, id := range phase.Agents {
				if _, err := reg.Get(id); err != nil {
					t.Errorf("%s/%s: agent %q not resolvable: %v", wf.Name, phase.Name, id, err)
				}
			}
		}
	}
}

func TestRegister_CountsAndCategories(t *testing.T) {
	reg := registry.New(nil)
	if err := Register(reg, Config{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	ids := reg.List()
	if len(ids) != 24 {
		t.Errorf("List() returned %d agents, want 24", len(ids))
	}

	architects := reg.ListByCategory(core.CategoryArchitecture)
	if len(architects) != 8 {
		t.Errorf("architecture agents = %v, want 8", architects)
	}
	developers := reg.ListByCategory(core.CategoryDevelopment)
	if len(developers) != 4 {
		t.Errorf("development agents = %v, want 4", developers)
	}
	scaffolding := reg.ListByCategory(core.CategoryScaffolding)
	if len(scaffolding) != 4 {
		t.Errorf("scaffolding agents = %v, want 4", scaffolding)
	}
}

func TestRegister_DefinitionDisplacesDesignFallback(t *testing.T) {
	reg := registry.New(stubLLM{})
	def := &core.AgentDefinition{
		Name:         "po_agent",
		Category:     core.CategoryDesign,
		Instructions: "Act as a product owner.",
	}
	if err := reg.RegisterDefinition("po_agent", def); err != nil {
		t.Fatalf("RegisterDefinition() error = %v", err)
	}
	if err := Register(reg, Config{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	agent, err := reg.Get("po_agent")
	if err != nil {
		t.Fatalf("Get(po_agent) error = %v", err)
	}
	if _, isFallback := agent.(*POAgent); isFallback {
		t.Error("a loaded definition should displace the deterministic fallback")
	}

	out, err := agent.Execute(context.Background(), core.AgentInput{ProjectID: "p1"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Output["content"] != "generated" {
		t.Errorf("Output = %v, want the LLM-backed path", out.Output)
	}
}

func TestRegister_ValidatorsStayNativeDespiteDefinitions(t *testing.T) {
	reg := registry.New(stubLLM{})
	def := &core.AgentDefinition{Name: "input_validator", Category: core.CategoryOrchestration}
	if err := reg.RegisterDefinition("input_validator", def); err != nil {
		t.Fatalf("RegisterDefinition() error = %v", err)
	}
	if err := Register(reg, Config{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	agent, err := reg.Get("input_validator")
	if err != nil {
		t.Fatalf("Get(input_validator) error = %v", err)
	}
	if _, ok := agent.(*InputValidator); !ok {
		t.Error("the input validator must stay native even when a definition exists")
	}
}
