package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/adapters/llm"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/agents"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/config"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/registry"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/service"
)

// runtime bundles the collaborators that workflow commands share. Each
// command builds one, uses it, and closes it before exiting.
type runtime struct {
	cfg       *config.Config
	log       *logging.Logger
	store     state.Store
	registry  *registry.Registry
	approvals *service.ApprovalManager
	engine    *service.Engine
}

// newRuntime wires the full engine stack from the loaded configuration.
func newRuntime() (*runtime, error) {
	log := newLogger(cfg)

	store, err := state.New(cfg.State.Backend, cfg.State.Dir, cfg.State.Path)
	if err != nil {
		return nil, fmt.Errorf("opening state store: %w", err)
	}

	reg, err := buildRegistry(cfg, log)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	runner := service.NewRunner(reg,
		service.WithAgentTimeout(cfg.Agents.DefaultTimeout),
		service.WithPolicy(service.NewRetryPolicy(
			service.WithMaxAttempts(cfg.Agents.MaxRetries),
			service.WithBaseDelay(cfg.Agents.BackoffBase),
		)),
		service.WithRunnerLogger(log),
	)
	parallel := service.NewParallelExecutor(runner, reg, cfg.Agents.DefaultTimeout, log)
	phases := service.NewPhaseExecutor(runner, parallel, log)
	detector := service.NewDomainDetector(
		service.WithThreshold(cfg.Detector.ConfidenceThreshold),
		service.WithMaxExperts(cfg.Detector.MaxExperts),
	)
	approvals := service.NewApprovalManager(store,
		service.WithMinFeedbackChars(cfg.Approvals.MinFeedbackChars),
		service.WithApprovalLogger(log),
	)
	engine := service.NewEngine(phases, detector, store, approvals,
		service.WithEngineLogger(log))

	return &runtime{
		cfg:       cfg,
		log:       log,
		store:     store,
		registry:  reg,
		approvals: approvals,
		engine:    engine,
	}, nil
}

// Close drains in-flight workflow tasks and releases the store.
func (rt *runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rt.engine.Shutdown(ctx); err != nil {
		rt.log.Warn("engine shutdown", "error", err)
	}
	if err := rt.store.Close(); err != nil {
		rt.log.Warn("closing state store", "error", err)
	}
}

// newLogger builds the command logger. Logs go to stderr (or the
// configured file) so stdout stays free for command output.
func newLogger(cfg *config.Config) *logging.Logger {
	out := io.Writer(os.Stderr)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: cannot open log file %s: %v\n", cfg.Log.File, err)
		} else {
			out = f
		}
	}
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
	})
}

func buildRegistry(cfg *config.Config, log *logging.Logger) (*registry.Registry, error) {
	client := llm.NewCLIClient(cfg.LLM.Command,
		llm.WithModel(cfg.LLM.Model),
		llm.WithTimeout(cfg.LLM.Timeout),
		llm.WithLogger(log),
	)
	reg := registry.New(client,
		registry.WithDefaultModel(cfg.LLM.Model),
		registry.WithLogger(log),
	)

	if err := reg.LoadInto(cfg.Agents.DefinitionsDir); err != nil {
		return nil, fmt.Errorf("loading agent definitions: %w", err)
	}
	if err := agents.Register(reg, agents.Config{
		WorkspaceRoot: cfg.Agents.WorkspaceDir,
		Log:           log,
	}); err != nil {
		return nil, fmt.Errorf("registering agents: %w", err)
	}
	return reg, nil
}

// workflowSettled reports whether a foreground run has stopped making
// progress on its own: it either suspended at a gate or reached a
// terminal status.
func workflowSettled(status core.ProjectStatus) bool {
	switch status {
	case core.StatusAwaitingApproval, core.StatusCompleted, core.StatusFailed, core.StatusCancelled:
		return true
	}
	return false
}

// waitForIdle polls the store until the project settles or the context is
// cancelled, printing phase transitions along the way. The engine runs
// phases on detached goroutines, so foreground commands wait here.
func waitForIdle(ctx context.Context, rt *runtime, projectID string) (*core.ExecutionContext, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	lastPhase := ""
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		ec, err := rt.store.Load(ctx, projectID)
		if err != nil {
			return nil, err
		}
		if ec.CurrentPhase != "" && ec.CurrentPhase != lastPhase {
			fmt.Printf("  phase: %s\n", ec.CurrentPhase)
			lastPhase = ec.CurrentPhase
		}
		if workflowSettled(ec.Status) {
			return ec, nil
		}
	}
}

// printOutcome reports where a settled run ended up.
func printOutcome(ec *core.ExecutionContext) {
	switch ec.Status {
	case core.StatusAwaitingApproval:
		fmt.Printf("\nProject %s paused at an approval gate after phase %q.\n", ec.ProjectID, ec.CurrentPhase)
		fmt.Printf("Review it with 'forgeflow status %s', then approve or reject.\n", ec.ProjectID)
	case core.StatusCompleted:
		fmt.Printf("\nProject %s completed (%d phases).\n", ec.ProjectID, len(ec.CompletedPhases))
	case core.StatusFailed:
		fmt.Printf("\nProject %s failed: %s\n", ec.ProjectID, ec.Error)
	case core.StatusCancelled:
		fmt.Printf("\nProject %s cancelled.\n", ec.ProjectID)
	default:
		fmt.Printf("\nProject %s is %s.\n", ec.ProjectID, ec.Status)
	}
}

// buildInputData merges an optional JSON input file with key=value
// assignments; assignments win on conflicts.
func buildInputData(file string, assignments []string) (map[string]interface{}, error) {
	var input map[string]interface{}
	if file != "" {
		loaded, err := loadInputFile(file)
		if err != nil {
			return nil, err
		}
		input = loaded
	}

	overrides, err := parseInputAssignments(assignments)
	if err != nil {
		return nil, err
	}
	if input == nil {
		return overrides, nil
	}
	for k, v := range overrides {
		input[k] = v
	}
	return input, nil
}

// parseInputAssignments turns repeated key=value flags into workflow input
// data. Values that parse as booleans or numbers keep their type so
// validators see the same shapes the HTTP API receives.
func parseInputAssignments(assignments []string) (map[string]interface{}, error) {
	if len(assignments) == 0 {
		return nil, nil
	}
	input := make(map[string]interface{}, len(assignments))
	for _, assignment := range assignments {
		key, value, found := strings.Cut(assignment, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid input %q (expected key=value)", assignment)
		}
		input[key] = coerceInputValue(value)
	}
	return input, nil
}

func coerceInputValue(raw string) interface{} {
	trimmed := strings.TrimSpace(raw)
	if b, err := strconv.ParseBool(trimmed); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f
	}
	return raw
}

// loadInputFile reads workflow input data from a JSON file.
func loadInputFile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input file: %w", err)
	}
	var input map[string]interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parsing input file %s: %w", path, err)
	}
	return input, nil
}

// outputJSON writes v to stdout as indented JSON.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
