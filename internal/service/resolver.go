package service

import (
	"strings"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// ResolveBatches groups agent ids into ordered batches using Kahn's
// algorithm: every id lands in exactly one batch, no id precedes a declared
// predecessor, and ids within a batch are mutually independent. Edges
// pointing outside the id set are ignored. The result is deterministic:
// within a batch, ids keep their input ordering.
//
// The resolver only orders; it knows nothing about execution.
func ResolveBatches(ids []string, deps map[string][]string) ([][]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	inSet := make(map[string]bool, len(ids))
	ordered := make([]string, 0, len(ids))
	for _, id := range ids {
		if !inSet[id] {
			inSet[id] = true
			ordered = append(ordered, id)
		}
	}

	inDegree := make(map[string]int, len(ordered))
	dependents := make(map[string][]string)
	for _, id := range ordered {
		for _, dep := range deps[id] {
			if !inSet[dep] {
				continue
			}
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	current := make([]string, 0, len(ordered))
	for _, id := range ordered {
		if inDegree[id] == 0 {
			current = append(current, id)
		}
	}

	var batches [][]string
	placed := 0
	for len(current) > 0 {
		batches = append(batches, current)
		placed += len(current)

		ready := make(map[string]bool)
		for _, id := range current {
			for _, succ := range dependents[id] {
				inDegree[succ]--
				if inDegree[succ] == 0 {
					ready[succ] = true
				}
			}
		}

		next := make([]string, 0, len(ready))
		for _, id := range ordered {
			if ready[id] {
				next = append(next, id)
			}
		}
		current = next
	}

	if placed != len(ordered) {
		stuck := make([]string, 0, len(ordered)-placed)
		for _, id := range ordered {
			if inDegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, core.ErrValidation(core.CodeDependencyCycle,
			"dependency cycle prevents ordering agents: "+strings.Join(stuck, ", "))
	}
	return batches, nil
}
