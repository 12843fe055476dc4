// Package llm adapts an external LLM CLI as the collaborator behind
// definition-backed agents.
package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
)

const defaultTimeout = 5 * time.Minute

// CLIClient runs prompts through a local LLM CLI in print mode.
type CLIClient struct {
	command string
	model   string
	timeout time.Duration
	log     *logging.Logger
}

// Option configures a CLIClient.
type Option func(*CLIClient)

// WithModel sets the model used when the request names none.
func WithModel(model string) Option {
	return func(c *CLIClient) { c.model = model }
}

// WithTimeout bounds a single CLI invocation.
func WithTimeout(d time.Duration) Option {
	return func(c *CLIClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *CLIClient) { c.log = log }
}

// NewCLIClient creates a client for the given CLI command. Multi-word
// commands ("gh copilot") are supported.
func NewCLIClient(command string, opts ...Option) *CLIClient {
	c := &CLIClient{
		command: command,
		timeout: defaultTimeout,
		log:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete executes one prompt and returns the reply.
func (c *CLIClient) Complete(ctx context.Context, req core.LLMRequest) (*core.LLMResponse, error) {
	if c.command == "" {
		return nil, core.ErrValidation("NO_COMMAND", "llm command not configured")
	}

	args := []string{"--print"}
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model != "" {
		args = append(args, "--model", model)
	}
	if req.SystemPrompt != "" {
		args = append(args, "--system-prompt", req.SystemPrompt)
	}
	args = append(args, "--dangerously-skip-permissions")
	args = append(args, req.Prompt)

	cmdPath := c.command
	cmdParts := strings.Fields(cmdPath)
	if len(cmdParts) > 1 {
		cmdPath = cmdParts[0]
		args = append(cmdParts[1:], args...)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// #nosec G204 -- command path and args come from validated config
	cmd := exec.CommandContext(ctx, cmdPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		c.log.Error("llm: command timeout",
			"command", cmdPath,
			"duration", duration,
			"timeout", c.timeout,
		)
		return nil, core.ErrTimeout(fmt.Sprintf("llm command timed out after %v", c.timeout))
	}
	if ctx.Err() == context.Canceled {
		return nil, ctx.Err()
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			c.log.Error("llm: command failed",
				"command", cmdPath,
				"exit_code", exitErr.ExitCode(),
				"stderr", truncate(stderr.String(), 2000),
			)
			return nil, core.ErrExecution("LLM_COMMAND_FAILED",
				fmt.Sprintf("llm command exited %d: %s", exitErr.ExitCode(), truncate(stderr.String(), 500)))
		}
		return nil, fmt.Errorf("executing llm command: %w", err)
	}

	resp := &core.LLMResponse{Content: stdout.String()}
	c.extractUsage(stdout.String()+stderr.String(), resp)

	c.log.Debug("llm: command completed",
		"command", cmdPath,
		"duration", duration,
		"tokens_in", resp.TokensIn,
		"tokens_out", resp.TokensOut,
	)
	return resp, nil
}

var tokenPattern = regexp.MustCompile(`tokens?:?\s*(\d+)\s*in\D*(\d+)\s*out`)

// extractUsage pulls token counts out of the CLI output when present and
// falls back to a rough length-based estimate.
func (c *CLIClient) extractUsage(combined string, resp *core.LLMResponse) {
	if matches := tokenPattern.FindStringSubmatch(combined); len(matches) == 3 {
		if in, err := strconv.Atoi(matches[1]); err == nil {
			resp.TokensIn = in
		}
		if out, err := strconv.Atoi(matches[2]); err == nil {
			resp.TokensOut = out
		}
	}
	if resp.TokensOut == 0 {
		// Rough estimate: ~4 characters per token for English.
		resp.TokensOut = len(resp.Content) / 4
	}
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "... [truncated]"
	}
	return s
}

var _ core.LLMClient = (*CLIClient)(nil)
