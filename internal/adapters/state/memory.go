package state

import (
	"context"
	"sync"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// MemoryStore keeps contexts and gates in process memory. It deep-copies
// on save and load so callers never share mutable state with the store.
type MemoryStore struct {
	mu       sync.RWMutex
	contexts map[string]*core.ExecutionContext
	gates    map[string][]*core.ApprovalGate
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contexts: make(map[string]*core.ExecutionContext),
		gates:    make(map[string][]*core.ApprovalGate),
	}
}

// Save persists the context, replacing any prior version.
func (s *MemoryStore) Save(_ context.Context, ec *core.ExecutionContext) error {
	if err := ec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contexts[ec.ProjectID] = ec.Clone()
	return nil
}

// Load returns the context for a project.
func (s *MemoryStore) Load(_ context.Context, projectID string) (*core.ExecutionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ec, ok := s.contexts[projectID]
	if !ok {
		return nil, core.ErrNotFound("project", projectID)
	}
	return ec.Clone(), nil
}

// Delete removes a project's context and gates.
func (s *MemoryStore) Delete(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, projectID)
	delete(s.gates, projectID)
	return nil
}

// ListByStatus returns all contexts currently in the given status.
func (s *MemoryStore) ListByStatus(_ context.Context, status core.ProjectStatus) ([]*core.ExecutionContext, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*core.ExecutionContext
	for _, ec := range s.contexts {
		if ec.Status == status {
			out = append(out, ec.Clone())
		}
	}
	return out, nil
}

// Close releases nothing; it satisfies the port.
func (s *MemoryStore) Close() error {
	return nil
}

// SaveGate persists a gate, replacing any prior version with the same id.
func (s *MemoryStore) SaveGate(_ context.Context, gate *core.ApprovalGate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	gates := s.gates[gate.ProjectID]
	for i, g := range gates {
		if g.GateID == gate.GateID {
			gates[i] = gate.Clone()
			return nil
		}
	}
	s.gates[gate.ProjectID] = append(gates, gate.Clone())
	return nil
}

// ListGates returns all gates for a project, oldest first.
func (s *MemoryStore) ListGates(_ context.Context, projectID string) ([]*core.ApprovalGate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gates := s.gates[projectID]
	out := make([]*core.ApprovalGate, 0, len(gates))
	for _, g := range gates {
		out = append(out, g.Clone())
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
