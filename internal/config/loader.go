package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultConfigName = "config"
	defaultConfigDir  = ".forgeflow"
	defaultEnvPrefix  = "FORGEFLOW"
)

// Loader reads configuration with the precedence
// flags > environment > project config > user config > defaults.
type Loader struct {
	v          *viper.Viper
	configFile string
	envPrefix  string
}

// NewLoader creates a Loader with its own viper instance.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a Loader around an existing viper instance,
// which lets callers bind CLI flags before Load runs.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, envPrefix: defaultEnvPrefix}
}

// WithConfigFile forces a specific config file instead of the search path.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// WithEnvPrefix overrides the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// Load reads configuration and unmarshals it into Config.
func (l *Loader) Load() (*Config, error) {
	l.setDefaults()

	l.v.SetEnvPrefix(l.envPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(defaultConfigName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(defaultConfigDir)
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", "forgeflow"))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// No config file anywhere on the search path, defaults apply.
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the file viper actually read, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

func (l *Loader) setDefaults() {
	l.v.SetDefault("log.level", "info")
	l.v.SetDefault("log.format", "auto")
	l.v.SetDefault("log.file", "")

	l.v.SetDefault("server.host", "127.0.0.1")
	l.v.SetDefault("server.port", 8090)
	l.v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})

	l.v.SetDefault("state.backend", "json")
	l.v.SetDefault("state.dir", filepath.Join(defaultConfigDir, "state"))
	l.v.SetDefault("state.path", filepath.Join(defaultConfigDir, "forgeflow.db"))

	l.v.SetDefault("agents.definitions_dir", filepath.Join(defaultConfigDir, "agents"))
	l.v.SetDefault("agents.workspace_dir", filepath.Join(defaultConfigDir, "workspace"))
	l.v.SetDefault("agents.default_timeout", "300s")
	l.v.SetDefault("agents.max_retries", 3)
	l.v.SetDefault("agents.backoff_base", "1s")
	l.v.SetDefault("agents.watch", false)

	l.v.SetDefault("llm.command", "claude")
	l.v.SetDefault("llm.model", "sonnet")
	l.v.SetDefault("llm.timeout", "300s")

	l.v.SetDefault("detector.confidence_threshold", 0.3)
	l.v.SetDefault("detector.max_experts", 3)

	l.v.SetDefault("approvals.min_feedback_chars", 10)
}
