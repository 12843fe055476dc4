package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

// DefaultMinFeedbackChars is the minimum rejection feedback length.
const DefaultMinFeedbackChars = 10

// ApprovalManager owns the approval gates of every project. At most one
// pending gate exists per project at a time; resolving a gate never resumes
// the workflow by itself.
type ApprovalManager struct {
	store       core.GateStore
	minFeedback int
	log         *logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ApprovalOption configures an ApprovalManager.
type ApprovalOption func(*ApprovalManager)

// WithMinFeedbackChars sets the minimum rejection feedback length.
func WithMinFeedbackChars(n int) ApprovalOption {
	return func(m *ApprovalManager) { m.minFeedback = n }
}

// WithApprovalLogger sets the manager's logger.
func WithApprovalLogger(log *logging.Logger) ApprovalOption {
	return func(m *ApprovalManager) { m.log = log }
}

// NewApprovalManager creates an approval manager backed by store.
func NewApprovalManager(store core.GateStore, opts ...ApprovalOption) *ApprovalManager {
	m := &ApprovalManager{
		store:       store,
		minFeedback: DefaultMinFeedbackChars,
		log:         logging.NewNop(),
		locks:       make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// projectLock serialises gate operations per project.
func (m *ApprovalManager) projectLock(projectID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[projectID] = lock
	}
	return lock
}

// CreateGate opens a pending gate for a phase boundary. It fails when the
// project already has a pending gate.
func (m *ApprovalManager) CreateGate(ctx context.Context, projectID, phase string, artifact *core.PhaseResult) (string, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	pending, err := m.pendingLocked(ctx, projectID)
	if err != nil {
		return "", err
	}
	if pending != nil {
		return "", core.ErrState(core.CodePendingGate,
			fmt.Sprintf("project %s already has a pending gate for phase %s", projectID, pending.Phase))
	}

	gate := core.NewApprovalGate(projectID, phase, artifact)
	if err := m.store.SaveGate(ctx, gate); err != nil {
		return "", err
	}
	m.log.WithProject(projectID).WithGate(gate.GateID).Info("approval gate created",
		"phase", phase,
	)
	return gate.GateID, nil
}

// supersededFeedback archives a pending gate whose phase no longer matches
// the project's suspension point.
const supersededFeedback = "superseded during crash recovery"

// EnsurePendingGate returns the id of the project's pending gate for the
// given phase, creating one when none exists. A pending gate for a
// different phase is archived first. Crash recovery uses it to restore the
// one-pending-gate invariant without double-creating.
func (m *ApprovalManager) EnsurePendingGate(ctx context.Context, projectID, phase string, artifact *core.PhaseResult) (string, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	pending, err := m.pendingLocked(ctx, projectID)
	if err != nil {
		return "", err
	}
	if pending != nil {
		if pending.Phase == phase {
			return pending.GateID, nil
		}
		if err := pending.Resolve(core.ApprovalRejected, supersededFeedback); err != nil {
			return "", err
		}
		if err := m.store.SaveGate(ctx, pending); err != nil {
			return "", err
		}
	}

	gate := core.NewApprovalGate(projectID, phase, artifact)
	if err := m.store.SaveGate(ctx, gate); err != nil {
		return "", err
	}
	m.log.WithProject(projectID).WithGate(gate.GateID).Info("approval gate restored",
		"phase", phase,
	)
	return gate.GateID, nil
}

// Approve resolves the project's pending gate to approved. It returns false
// when no pending gate exists. Feedback is optional.
func (m *ApprovalManager) Approve(ctx context.Context, projectID, feedback string) (bool, error) {
	return m.resolve(ctx, projectID, core.ApprovalApproved, feedback)
}

// Reject resolves the project's pending gate to rejected. Feedback is
// mandatory and must carry at least the configured number of characters
// after trimming. It returns false when no pending gate exists.
func (m *ApprovalManager) Reject(ctx context.Context, projectID, feedback string) (bool, error) {
	if len(strings.TrimSpace(feedback)) < m.minFeedback {
		return false, core.ErrValidation(core.CodeFeedbackTooShort,
			fmt.Sprintf("rejection feedback must be at least %d characters", m.minFeedback))
	}
	return m.resolve(ctx, projectID, core.ApprovalRejected, feedback)
}

func (m *ApprovalManager) resolve(ctx context.Context, projectID string, status core.ApprovalStatus, feedback string) (bool, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	pending, err := m.pendingLocked(ctx, projectID)
	if err != nil {
		return false, err
	}
	if pending == nil {
		return false, nil
	}

	if err := pending.Resolve(status, feedback); err != nil {
		return false, err
	}
	if err := m.store.SaveGate(ctx, pending); err != nil {
		return false, err
	}
	m.log.WithProject(projectID).WithGate(pending.GateID).Info("approval gate resolved",
		"phase", pending.Phase,
		"resolution", string(status),
	)
	return true, nil
}

// PendingGate returns the project's pending gate, or nil when none exists.
func (m *ApprovalManager) PendingGate(ctx context.Context, projectID string) (*core.ApprovalGate, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()
	return m.pendingLocked(ctx, projectID)
}

// Gates returns all gates for a project, oldest first.
func (m *ApprovalManager) Gates(ctx context.Context, projectID string) ([]*core.ApprovalGate, error) {
	return m.store.ListGates(ctx, projectID)
}

func (m *ApprovalManager) pendingLocked(ctx context.Context, projectID string) (*core.ApprovalGate, error) {
	gates, err := m.store.ListGates(ctx, projectID)
	if err != nil {
		return nil, err
	}
	for _, g := range gates {
		if g.Pending() {
			return g, nil
		}
	}
	return nil, nil
}
