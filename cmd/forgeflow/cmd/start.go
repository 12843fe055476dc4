package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
)

var (
	startMode      string
	startProjectID string
	startInputFile string
	startInputs    []string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a workflow and follow it until it pauses or finishes",
	Long: `Starts a new workflow run in the foreground. The command prints phase
transitions as they happen and returns once the run completes, fails, or
pauses at an approval gate.

Discovery mode expects a project_overview describing the project; pass it
through --input-file or --set:

  forgeflow start --mode discovery --set project_overview="..."
  forgeflow start --mode direct --input-file idea.json`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&startMode, "mode", "discovery",
		"workflow mode (discovery, direct)")
	startCmd.Flags().StringVar(&startProjectID, "project", "",
		"project ID (generated when omitted)")
	startCmd.Flags().StringVar(&startInputFile, "input-file", "",
		"JSON file with workflow input data")
	startCmd.Flags().StringArrayVar(&startInputs, "set", nil,
		"input value as key=value (repeatable)")

	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, _ []string) error {
	mode, err := core.ParseMode(startMode)
	if err != nil {
		return err
	}

	input, err := buildInputData(startInputFile, startInputs)
	if err != nil {
		return err
	}

	projectID := strings.TrimSpace(startProjectID)
	if projectID == "" {
		projectID = uuid.NewString()
	}

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ec, err := rt.engine.StartWorkflow(ctx, projectID, mode, input)
	if err != nil {
		return err
	}
	fmt.Printf("Started project %s (workflow %s, mode %s)\n", ec.ProjectID, ec.Workflow, ec.Mode)

	settled, err := waitForIdle(ctx, rt, ec.ProjectID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Printf("\nInterrupted. The run keeps its last checkpoint; 'forgeflow recover' rolls it back, then 'forgeflow resume %s' continues.\n", ec.ProjectID)
			return nil
		}
		return err
	}

	printOutcome(settled)
	return nil
}
