package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Roll interrupted projects back to their recovery points",
	Long: `Scans the state store for projects a crashed or killed process left in the
running state and rolls each back to its last safe point: the most recent
approval gate when the run had passed one, otherwise the start of the
workflow. Continue a recovered project with 'forgeflow resume'.

The serve command performs the same recovery automatically on startup.`,
	RunE: runRecover,
}

func init() {
	rootCmd.AddCommand(recoverCmd)
}

func runRecover(cmd *cobra.Command, _ []string) error {
	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	recovered, err := rt.engine.RecoverInterrupted(cmd.Context())
	if err != nil {
		return err
	}
	if len(recovered) == 0 {
		fmt.Println("No interrupted projects found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROJECT\tSTATUS\tPHASE")
	for _, ec := range recovered {
		fmt.Fprintf(w, "%s\t%s\t%s\n", ec.ProjectID, ec.Status, ec.CurrentPhase)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nRecovered %d project(s).\n", len(recovered))
	return nil
}
