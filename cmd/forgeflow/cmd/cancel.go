package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel <project-id>",
	Short: "Cancel a project's workflow",
	Long: `Marks a paused project cancelled. A project that is mid-phase in another
process finishes its current agent attempt first and cancels at the next
phase boundary. Cancelled projects cannot be resumed.`,
	Args: cobra.ExactArgs(1),
	RunE: runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ec, err := rt.engine.CancelProject(cmd.Context(), projectID)
	if err != nil {
		return err
	}

	fmt.Printf("Project %s is %s.\n", ec.ProjectID, ec.Status)
	return nil
}
