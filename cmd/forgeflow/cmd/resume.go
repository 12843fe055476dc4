package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <project-id>",
	Short: "Resume a paused or recovered workflow",
	Long: `Re-spawns the phase loop for a project. Completed phases are skipped, so
a run paused at an approval gate continues with the next phase. Resuming a
completed, failed, or cancelled project is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ec, err := rt.engine.ResumeWorkflow(ctx, projectID)
	if err != nil {
		return err
	}
	if ec.IsTerminal() {
		fmt.Printf("Project %s is already %s; nothing to resume.\n", ec.ProjectID, ec.Status)
		return nil
	}
	fmt.Printf("Resumed project %s from phase %d of its workflow\n", ec.ProjectID, len(ec.CompletedPhases)+1)

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
