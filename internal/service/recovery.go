package service

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

// recoveryConcurrency bounds the startup rollback fan-out so a large stuck
// set does not hammer the store all at once.
const recoveryConcurrency = 4

// resetFeedback archives a stray pending gate when recovery resets a
// project to its initial input.
const resetFeedback = "workflow reset during crash recovery"

// RecoverInterrupted rolls back workflows left in the running state by a
// crash or hard shutdown. Each stuck project is moved to its most recent
// safe resumption point: the latest approval-requiring phase whose artifact
// survived, with a pending re-gate, or the initial input when no artifact
// exists. Recovery never re-executes a phase; a caller resumes deliberately.
func (e *Engine) RecoverInterrupted(ctx context.Context) ([]*core.ExecutionContext, error) {
	stuck, err := e.state.ListByStatus(ctx, core.StatusRunning)
	if err != nil {
		return nil, err
	}
	if len(stuck) == 0 {
		e.log.Debug("no interrupted workflows found")
		return nil, nil
	}
	e.log.Warn("interrupted workflows found", "count", len(stuck))

	var (
		mu        sync.Mutex
		recovered = make([]*core.ExecutionContext, 0, len(stuck))
	)
	var g errgroup.Group
	g.SetLimit(recoveryConcurrency)
	for _, ec := range stuck {
		// A live phase loop still owns its context; only orphaned runs
		// are rolled back.
		if e.liveTask(ec.ProjectID) != nil {
			continue
		}
		g.Go(func() error {
			log := e.log.WithProject(ec.ProjectID)
			// A project that cannot be rolled back stays running for the
			// next recovery attempt; it must not block the rest.
			if err := e.recoverProject(ctx, ec); err != nil {
				log.Error("recovery failed", "error", err)
				return nil
			}
			log.Info("workflow recovered",
				"status", string(ec.Status),
				"current_phase", ec.CurrentPhase,
			)
			mu.Lock()
			recovered = append(recovered, ec)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return recovered, nil
}

func (e *Engine) recoverProject(ctx context.Context, ec *core.ExecutionContext) error {
	workflow, err := e.workflows(ec.Mode)
	if err != nil {
		return err
	}
	target := rollbackTarget(workflow, ec)
	if target == "" {
		return e.resetToInitial(ctx, ec)
	}
	return e.rollbackToApproval(ctx, ec, target)
}

// rollbackTarget returns the latest approval-requiring phase strictly
// before the interrupted one whose result is still recorded. Empty means
// no artifact survived and the project must restart from its input.
func rollbackTarget(workflow *core.WorkflowDefinition, ec *core.ExecutionContext) string {
	idx := -1
	for i := range workflow.Phases {
		if workflow.Phases[i].Name == ec.CurrentPhase {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Unknown or unset current phase: nothing can be trusted.
		return ""
	}
	for i := idx - 1; i >= 0; i-- {
		phase := &workflow.Phases[i]
		if !phase.RequiresApproval {
			continue
		}
		if res, ok := ec.PhaseResults[phase.Name]; ok && res != nil {
			return phase.Name
		}
	}
	return ""
}

// resetToInitial discards all generated artifacts and returns the project
// to the pending state. A stray pending gate from the crash window is
// archived.
func (e *Engine) resetToInitial(ctx context.Context, ec *core.ExecutionContext) error {
	if _, err := e.approvals.Reject(ctx, ec.ProjectID, resetFeedback); err != nil {
		return err
	}
	ec.Status = core.StatusPending
	ec.CurrentPhase = ""
	ec.CompletedPhases = make([]string, 0)
	ec.PhaseResults = make(map[string]*core.PhaseResult)
	ec.Error = ""
	return e.checkpoint(ec)
}

// rollbackToApproval re-suspends the project at the given approval phase:
// later phase results are dropped, the completed list is truncated to the
// prefix ending at the phase, and a pending gate is guaranteed to exist.
func (e *Engine) rollbackToApproval(ctx context.Context, ec *core.ExecutionContext, target string) error {
	keep := make([]string, 0, len(ec.CompletedPhases))
	kept := make(map[string]bool, len(ec.CompletedPhases))
	for _, name := range ec.CompletedPhases {
		keep = append(keep, name)
		kept[name] = true
		if name == target {
			break
		}
	}
	for name := range ec.PhaseResults {
		if !kept[name] {
			delete(ec.PhaseResults, name)
		}
	}
	ec.CompletedPhases = keep
	ec.CurrentPhase = target
	ec.Status = core.StatusAwaitingApproval
	ec.Error = ""

	if _, err := e.approvals.EnsurePendingGate(ctx, ec.ProjectID, target, ec.PhaseResults[target]); err != nil {
		return err
	}
	return e.checkpoint(ec)
}
