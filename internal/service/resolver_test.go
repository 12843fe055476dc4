package service

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

func TestResolveBatches_ScaffoldingGraph(t *testing.T) {
	agents := []string{"filesystem_scaffolder", "git_provisioner", "workflow_generator", "jira_provisioner"}
	batches, err := ResolveBatches(agents, scaffoldingDependencies())
	if err != nil {
		t.Fatalf("ResolveBatches() error = %v", err)
	}

	want := [][]string{
		{"filesystem_scaffolder"},
		{"git_provisioner"},
		{"workflow_generator", "jira_provisioner"},
	}
	if !reflect.DeepEqual(batches, want) {
		t.Errorf("batches = %v, want %v", batches, want)
	}
}

func TestResolveBatches_IndependentAgentsShareOneBatch(t *testing.T) {
	batches, err := ResolveBatches([]string{"c", "a", "b"}, nil)
	if err != nil {
		t.Fatalf("ResolveBatches() error = %v", err)
	}
	want := [][]string{{"c", "a", "b"}}
	if !reflect.DeepEqual(batches, want) {
		t.Errorf("batches = %v, want %v (input order preserved)", batches, want)
	}
}

func TestResolveBatches_StableOrderWithinBatches(t *testing.T) {
	deps := map[string][]string{
		"x": {"root"},
		"y": {"root"},
		"z": {"root"},
	}
	batches, err := ResolveBatches([]string{"z", "root", "x", "y"}, deps)
	if err != nil {
		t.Fatalf("ResolveBatches() error = %v", err)
	}
	want := [][]string{{"root"}, {"z", "x", "y"}}
	if !reflect.DeepEqual(batches, want) {
		t.Errorf("batches = %v, want %v", batches, want)
	}
}

func TestResolveBatches_CycleDetected(t *testing.T) {
	deps := map[string][]string{
		"a": {"b"},
		"b": {"c"},
		"c": {"a"},
	}
	_, err := ResolveBatches([]string{"a", "b", "c"}, deps)
	if err == nil {
		t.Fatal("ResolveBatches() expected cycle error")
	}
	var domainErr *core.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("error = %T, want *core.DomainError", err)
	}
	if domainErr.Code != core.CodeDependencyCycle {
		t.Errorf("Code = %s, want %s", domainErr.Code, core.CodeDependencyCycle)
	}
}

func TestResolveBatches_SelfDependencyIsACycle(t *testing.T) {
	_, err := ResolveBatches([]string{"a"}, map[string][]string{"a": {"a"}})
	if err == nil {
		t.Fatal("ResolveBatches() expected cycle error for self-dependency")
	}
}

func TestResolveBatches_IgnoresEdgesOutsideSet(t *testing.T) {
	deps := map[string][]string{
		"b": {"a", "not_activated"},
	}
	batches, err := ResolveBatches([]string{"a", "b"}, deps)
	if err != nil {
		t.Fatalf("ResolveBatches() error = %v", err)
	}
	want := [][]string{{"a"}, {"b"}}
	if !reflect.DeepEqual(batches, want) {
		t.Errorf("batches = %v, want %v", batches, want)
	}
}

func TestResolveBatches_EmptyInput(t *testing.T) {
	batches, err := ResolveBatches(nil, scaffoldingDependencies())
	if err != nil {
		t.Fatalf("ResolveBatches() error = %v", err)
	}
	if batches != nil {
		t.Errorf("batches = %v, want nil", batches)
	}
}

func TestResolveBatches_DeduplicatesIDs(t *testing.T) {
	batches, err := ResolveBatches([]string{"a", "a", "b"}, nil)
	if err != nil {
		t.Fatalf("ResolveBatches() error = %v", err)
	}
	want := [][]string{{"a", "b"}}
	if !reflect.DeepEqual(batches, want) {
		t.Errorf("batches = %v, want %v", batches, want)
	}
}

// Every edge must place its prerequisite in a strictly earlier batch.
func TestResolveBatches_EdgeOrderingProperty(t *testing.T) {
	agents := []string{"a", "b", "c", "d", "e", "f"}
	deps := map[string][]string{
		"b": {"a"},
		"c": {"a"},
		"d": {"b", "c"},
		"e": {"d"},
		"f": {"a"},
	}
	batches, err := ResolveBatches(agents, deps)
	if err != nil {
		t.Fatalf("ResolveBatches() error = %v", err)
	}

	level := map[string]int{}
	for i, batch := range batches {
		for _, id := range batch {
			level[id] = i
		}
	}
	for agent, prereqs := range deps {
		for _, dep := range prereqs {
			if level[dep] >= level[agent] {
				t.Errorf("edge %s -> %s: batch(%s)=%d not before batch(%s)=%d",
					dep, agent, dep, level[dep], agent, level[agent])
			}
		}
	}
}
