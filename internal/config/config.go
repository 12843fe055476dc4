// Package config loads orchestrator configuration from files, environment
// variables, and CLI flags.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Server    ServerConfig    `mapstructure:"server"`
	State     StateConfig     `mapstructure:"state"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Detector  DetectorConfig  `mapstructure:"detector"`
	Approvals ApprovalsConfig `mapstructure:"approvals"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StateConfig configures checkpoint persistence.
type StateConfig struct {
	// Backend selects the store: memory, json, or sqlite.
	Backend string `mapstructure:"backend"`
	// Dir holds per-project JSON files when backend is json.
	Dir string `mapstructure:"dir"`
	// Path is the database file when backend is sqlite.
	Path string `mapstructure:"path"`
}

// AgentsConfig configures agent discovery and execution.
type AgentsConfig struct {
	// DefinitionsDir is scanned for agent definition documents.
	DefinitionsDir string `mapstructure:"definitions_dir"`
	// WorkspaceDir is where scaffolding agents create project trees.
	WorkspaceDir   string        `mapstructure:"workspace_dir"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	// Watch re-scans the definitions directory on change (serve mode).
	Watch bool `mapstructure:"watch"`
}

// LLMConfig configures the external LLM collaborator.
type LLMConfig struct {
	// Command is the CLI binary invoked for definition-backed agents.
	Command string `mapstructure:"command"`
	// Model is used when a definition carries no model hint.
	Model string `mapstructure:"model"`
	// Timeout bounds one CLI invocation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DetectorConfig configures domain expert detection.
type DetectorConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxExperts          int     `mapstructure:"max_experts"`
}

// ApprovalsConfig configures approval gate policy.
type ApprovalsConfig struct {
	// MinFeedbackChars is the minimum rejection feedback length.
	MinFeedbackChars int `mapstructure:"min_feedback_chars"`
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	switch c.State.Backend {
	case "memory", "json", "sqlite":
	default:
		return fmt.Errorf("state.backend must be memory, json, or sqlite, got %q", c.State.Backend)
	}
	if c.State.Backend == "json" && c.State.Dir == "" {
		return fmt.Errorf("state.dir is required for the json backend")
	}
	if c.State.Backend == "sqlite" && c.State.Path == "" {
		return fmt.Errorf("state.path is required for the sqlite backend")
	}
	if c.Agents.DefaultTimeout <= 0 {
		return fmt.Errorf("agents.default_timeout must be positive")
	}
	if c.Agents.MaxRetries < 1 {
		return fmt.Errorf("agents.max_retries must be at least 1")
	}
	if c.Agents.BackoffBase < 0 {
		return fmt.Errorf("agents.backoff_base cannot be negative")
	}
	if c.Detector.ConfidenceThreshold <= 0 || c.Detector.ConfidenceThreshold > 1 {
		return fmt.Errorf("detector.confidence_threshold must be in (0, 1]")
	}
	if c.Detector.MaxExperts < 1 {
		return fmt.Errorf("detector.max_experts must be at least 1")
	}
	if c.Approvals.MinFeedbackChars < 0 {
		return fmt.Errorf("approvals.min_feedback_chars cannot be negative")
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}
