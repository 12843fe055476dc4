package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rejectFeedback string

var rejectCmd = &cobra.Command{
	Use:   "reject <project-id>",
	Short: "Reject the pending gate for a project",
	Long: `Resolves the project's pending approval gate to rejected, recording the
feedback on the gate. The project stays paused: resume it to continue with
the next phase anyway, or start a new run with revised inputs.`,
	Args: cobra.ExactArgs(1),
	RunE: runReject,
}

func init() {
	rejectCmd.Flags().StringVar(&rejectFeedback, "feedback", "",
		"reason for the rejection (required)")
	_ = rejectCmd.MarkFlagRequired("feedback")

	rootCmd.AddCommand(rejectCmd)
}

func runReject(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ok, err := rt.approvals.Reject(cmd.Context(), projectID, rejectFeedback)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("project %s has no pending approval gate", projectID)
	}

	fmt.Printf("Rejected. Project %s stays paused with your feedback on record.\n", projectID)
	return nil
}
