package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/config"
)

var (
	cfgFile      string
	logLevel     string
	logFormat    string
	noColor      bool
	stateBackend string
	stateDir     string

	// Loaded configuration, populated by the persistent pre-run.
	cfg *config.Config

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string
)

var rootCmd = &cobra.Command{
	Use:   "forgeflow",
	Short: "Multi-agent workflow orchestrator for project bootstrapping",
	Long: `forgeflow coordinates a chain of LLM-backed agents that take a raw
project idea through requirements gathering, design, task planning and
scaffolding. Workflows checkpoint after every phase and pause at human
approval gates, so an interrupted or rejected run can always be resumed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initConfig()
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

// GetVersion returns the application version string.
func GetVersion() string {
	return appVersion
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .forgeflow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	rootCmd.PersistentFlags().StringVar(&stateBackend, "state-backend", "",
		"state backend (memory, json, sqlite)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "",
		"directory for JSON state files")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("no_color", rootCmd.PersistentFlags().Lookup("no-color"))
	_ = viper.BindPFlag("state.backend", rootCmd.PersistentFlags().Lookup("state-backend"))
	_ = viper.BindPFlag("state.dir", rootCmd.PersistentFlags().Lookup("state-dir"))
}

// initConfig loads configuration through the shared loader. Flags bound
// above take precedence over environment variables and config files.
func initConfig() error {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}

	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	cfg = loaded
	// The flag binding gives viper the resolved value across flag, env,
	// and config file; read it back so FORGEFLOW_NO_COLOR works too.
	noColor = viper.GetBool("no_color")
	return nil
}
