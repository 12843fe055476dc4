package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

// Engine drives workflows through their phases. Each started or resumed
// workflow runs as one detached goroutine owned by the engine and keyed by
// project id; workflows share only the registry, the state store, and the
// approval manager.
type Engine struct {
	phases    *PhaseExecutor
	detector  *DomainDetector
	state     core.StateStore
	approvals *ApprovalManager
	workflows WorkflowSource
	log       *logging.Logger

	baseCtx context.Context
	stop    context.CancelFunc

	mu     sync.Mutex
	tasks  map[string]*workflowTask
	closed bool
	wg     sync.WaitGroup
}

// workflowTask tracks one detached phase loop. Cancellation is a flag the
// loop observes between phases; in-flight agents finish their attempt.
type workflowTask struct {
	cancelled atomic.Bool
	done      chan struct{}
}

// WorkflowSource maps a mode to its workflow definition.
type WorkflowSource func(core.WorkflowMode) (*core.WorkflowDefinition, error)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(log *logging.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithWorkflowSource overrides the built-in workflow definitions.
func WithWorkflowSource(src WorkflowSource) EngineOption {
	return func(e *Engine) { e.workflows = src }
}

// NewEngine creates an orchestration engine.
func NewEngine(phases *PhaseExecutor, detector *DomainDetector, state core.StateStore, approvals *ApprovalManager, opts ...EngineOption) *Engine {
	baseCtx, stop := context.WithCancel(context.Background())
	e := &Engine{
		phases:    phases,
		detector:  detector,
		state:     state,
		approvals: approvals,
		workflows: WorkflowForMode,
		log:       logging.NewNop(),
		baseCtx:   baseCtx,
		stop:      stop,
		tasks:     make(map[string]*workflowTask),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartWorkflow creates a fresh execution context, checkpoints it, and
// spawns the phase loop. It returns immediately; progress is observable
// through the state store. Starting a project that already has a
// non-terminal run fails.
func (e *Engine) StartWorkflow(ctx context.Context, projectID string, mode core.WorkflowMode, inputData map[string]interface{}) (*core.ExecutionContext, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, core.ErrValidation(core.CodeEmptyProjectID, "project id cannot be empty")
	}
	workflow, err := e.workflows(mode)
	if err != nil {
		return nil, err
	}

	existing, err := e.state.Load(ctx, projectID)
	if err != nil && !core.IsNotFound(err) {
		return nil, err
	}
	if existing != nil && !existing.IsTerminal() {
		return nil, core.ErrState(core.CodeProjectActive,
			fmt.Sprintf("project %s already has an active workflow (status %s)", projectID, existing.Status))
	}

	log := e.log.WithProject(projectID)
	log.Info("starting workflow", "mode", string(mode))

	ec := core.NewExecutionContext(projectID, mode, workflow.Name, inputData)
	if mode == core.ModeDiscovery && e.detector != nil {
		ec.ActivatedExperts = e.detector.Detect(
			stringField(ec.InputData, "project_overview"),
			stringField(ec.InputData, "key_features"),
			stringField(ec.InputData, "constraints"),
		)
		log.Info("domain experts detected", "experts", expertDomains(ec.ActivatedExperts))
	}

	// The context must be durable before the loop is scheduled so crash
	// recovery can see the run.
	if err := e.checkpoint(ec); err != nil {
		return nil, err
	}
	if err := e.spawn(ec, workflow); err != nil {
		return nil, err
	}
	return ec.Clone(), nil
}

// ResumeWorkflow reloads a project's context and spawns the phase loop
// again; completed phases are skipped. Resuming a terminal project is a
// no-op that returns the context unchanged. The engine does not verify
// gate resolution; callers resolve gates before resuming.
func (e *Engine) ResumeWorkflow(ctx context.Context, projectID string) (*core.ExecutionContext, error) {
	ec, err := e.state.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if ec.IsTerminal() {
		return ec, nil
	}
	if e.liveTask(projectID) != nil {
		return ec, nil
	}

	e.log.WithProject(projectID).Info("resuming workflow",
		"current_phase", ec.CurrentPhase,
		"completed", len(ec.CompletedPhases),
	)

	workflow, err := e.workflows(ec.Mode)
	if err != nil {
		return nil, err
	}
	if err := ec.MarkRunning(); err != nil {
		return nil, err
	}
	if err := e.checkpoint(ec); err != nil {
		return nil, err
	}
	if err := e.spawn(ec, workflow); err != nil {
		return nil, err
	}
	return ec.Clone(), nil
}

// CancelProject requests cancellation. A live phase loop transitions the
// project at its next observation point and lets in-flight agents finish
// their attempt; a suspended project is cancelled immediately.
func (e *Engine) CancelProject(ctx context.Context, projectID string) (*core.ExecutionContext, error) {
	ec, err := e.state.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if ec.IsTerminal() {
		return ec, nil
	}

	if task := e.liveTask(projectID); task != nil {
		task.cancelled.Store(true)
		e.log.WithProject(projectID).Info("cancellation requested")
		return ec, nil
	}

	ec.MarkCancelled()
	if err := e.checkpoint(ec); err != nil {
		return nil, err
	}
	e.log.WithProject(projectID).Info("workflow cancelled")
	return ec.Clone(), nil
}

// WorkflowDefinition returns the definition the engine uses for a mode.
func (e *Engine) WorkflowDefinition(mode core.WorkflowMode) (*core.WorkflowDefinition, error) {
	return e.workflows(mode)
}

// Progress is the caller-facing projection of a run's state.
type Progress struct {
	ProjectID        string             `json:"project_id"`
	Mode             core.WorkflowMode  `json:"mode"`
	Status           core.ProjectStatus `json:"status"`
	CurrentPhase     string             `json:"current_phase"`
	CompletedPhases  []string           `json:"completed_phases"`
	StartedAt        time.Time          `json:"started_at"`
	ActivatedExperts []string           `json:"activated_experts"`
	Error            string             `json:"error,omitempty"`
}

// GetProgress reports a project's progress.
func (e *Engine) GetProgress(ctx context.Context, projectID string) (*Progress, error) {
	ec, err := e.state.Load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &Progress{
		ProjectID:        ec.ProjectID,
		Mode:             ec.Mode,
		Status:           ec.Status,
		CurrentPhase:     ec.CurrentPhase,
		CompletedPhases:  append([]string(nil), ec.CompletedPhases...),
		StartedAt:        ec.StartedAt,
		ActivatedExperts: expertDomains(ec.ActivatedExperts),
		Error:            ec.Error,
	}, nil
}

// Shutdown stops accepting work, cancels the engine context, and waits for
// detached loops to exit. Interrupted runs keep status running in the
// store; recovery rolls them back on the next start.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	e.stop()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// spawn registers a task handle and launches the phase loop goroutine.
func (e *Engine) spawn(ec *core.ExecutionContext, workflow *core.WorkflowDefinition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return core.ErrState(core.CodeInvalidState, "engine is shut down")
	}
	if task, ok := e.tasks[ec.ProjectID]; ok {
		select {
		case <-task.done:
		default:
			return core.ErrState(core.CodeProjectActive,
				fmt.Sprintf("project %s already has a running phase loop", ec.ProjectID))
		}
	}

	task := &workflowTask{done: make(chan struct{})}
	e.tasks[ec.ProjectID] = task
	e.wg.Add(1)
	go e.runLoop(task, ec, workflow)
	return nil
}

func (e *Engine) liveTask(projectID string) *workflowTask {
	e.mu.Lock()
	defer e.mu.Unlock()
	task, ok := e.tasks[projectID]
	if !ok {
		return nil
	}
	select {
	case <-task.done:
		return nil
	default:
		return task
	}
}

func (e *Engine) clearTask(projectID string, task *workflowTask) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tasks[projectID] == task {
		delete(e.tasks, projectID)
	}
}

// runLoop supervises one detached phase loop. Failures are absorbed into
// the persisted context; the caller already returned.
func (e *Engine) runLoop(task *workflowTask, ec *core.ExecutionContext, workflow *core.WorkflowDefinition) {
	defer e.wg.Done()
	defer e.clearTask(ec.ProjectID, task)
	defer close(task.done)

	log := e.log.WithProject(ec.ProjectID)
	defer func() {
		if rec := recover(); rec != nil {
			e.recordFailure(ec, core.ErrInternal(fmt.Sprintf("phase loop panicked: %v", rec)))
		}
	}()

	if err := e.executeLoop(task, ec, workflow); err != nil {
		log.Error("workflow failed", "error", err)
		e.recordFailure(ec, err)
	}
}

// executeLoop runs the phase sequence. It returns nil on completion,
// suspension, cancellation, or engine shutdown; any error marks the
// workflow failed.
func (e *Engine) executeLoop(task *workflowTask, ec *core.ExecutionContext, workflow *core.WorkflowDefinition) error {
	log := e.log.WithProject(ec.ProjectID)

	for i := range workflow.Phases {
		phase := &workflow.Phases[i]
		if ec.PhaseCompleted(phase.Name) {
			continue
		}
		if e.observeStop(task, ec) {
			return nil
		}

		ec.CurrentPhase = phase.Name
		if err := e.checkpoint(ec); err != nil {
			return err
		}

		log.WithPhase(phase.Name).Info("executing phase",
			"execution_model", string(phase.ExecutionModel),
		)
		result, err := e.phases.Execute(e.baseCtx, phase, ec)
		if err != nil {
			return err
		}

		ec.RecordPhase(phase.Name, result)
		if err := e.checkpoint(ec); err != nil {
			return err
		}
		log.WithPhase(phase.Name).Info("phase finished", "status", string(result.Status))

		if e.observeStop(task, ec) {
			return nil
		}

		if phase.RequiresApproval {
			if _, err := e.approvals.CreateGate(context.Background(), ec.ProjectID, phase.Name, result); err != nil {
				return err
			}
			if err := ec.MarkAwaitingApproval(); err != nil {
				return err
			}
			if err := e.checkpoint(ec); err != nil {
				return err
			}
			log.WithPhase(phase.Name).Info("workflow awaiting approval")
			return nil
		}
	}

	if err := ec.MarkCompleted(); err != nil {
		return err
	}
	if err := e.checkpoint(ec); err != nil {
		return err
	}
	log.Info("workflow completed", "duration", time.Since(ec.StartedAt).Round(time.Millisecond))
	return nil
}

// observeStop is the loop's observation point. A soft cancel marks the
// project cancelled; an engine shutdown leaves status running so recovery
// can roll the project back on restart.
func (e *Engine) observeStop(task *workflowTask, ec *core.ExecutionContext) bool {
	if task.cancelled.Load() {
		ec.MarkCancelled()
		if err := e.checkpoint(ec); err != nil {
			e.log.WithProject(ec.ProjectID).Error("checkpoint after cancel", "error", err)
		}
		e.log.WithProject(ec.ProjectID).Info("workflow cancelled")
		return true
	}
	if e.baseCtx.Err() != nil {
		return true
	}
	return false
}

func (e *Engine) recordFailure(ec *core.ExecutionContext, err error) {
	ec.MarkFailed(err)
	if saveErr := e.checkpoint(ec); saveErr != nil {
		e.log.WithProject(ec.ProjectID).Error("checkpoint after failure", "error", saveErr)
	}
}

// checkpoint persists the context. It runs under a background context;
// an engine shutdown must not abort a write in flight.
func (e *Engine) checkpoint(ec *core.ExecutionContext) error {
	return e.state.Save(context.Background(), ec)
}

func expertDomains(experts []core.ExpertMatch) []string {
	domains := make([]string, 0, len(experts))
	for _, m := range experts {
		domains = append(domains, m.Domain)
	}
	return domains
}
