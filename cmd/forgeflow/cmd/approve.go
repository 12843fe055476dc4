package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var approveFeedback string

var approveCmd = &cobra.Command{
	Use:   "approve <project-id>",
	Short: "Approve the pending gate for a project",
	Long: `Resolves the project's pending approval gate to approved. Approval does
not restart the workflow; run 'forgeflow resume' afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: runApprove,
}

func init() {
	approveCmd.Flags().StringVar(&approveFeedback, "feedback", "",
		"optional note recorded on the gate")

	rootCmd.AddCommand(approveCmd)
}

func runApprove(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ok, err := rt.approvals.Approve(cmd.Context(), projectID, approveFeedback)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("project %s has no pending approval gate", projectID)
	}

	fmt.Printf("Approved. Run 'forgeflow resume %s' to continue the workflow.\n", projectID)
	return nil
}
