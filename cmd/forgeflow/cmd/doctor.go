package cmd

import (
	"fmt"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/adapters/state"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/logging"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/registry"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check dependencies, state backend, and host resources",
	Long:  "Verify that the LLM command is available, the state backend opens, agent definitions parse, and the host has headroom.",
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	checks := []struct {
		name     string
		command  string
		args     []string
		required bool
	}{
		{cfg.LLM.Command, cfg.LLM.Command, []string{"--version"}, true},
		{"git", "git", []string{"--version"}, false},
	}

	fmt.Println("Checking dependencies...")
	fmt.Println()

	requiredOk := true
	for _, check := range checks {
		ok := checkCommand(check.command, check.args)
		icon := "✓"
		suffix := ""
		if !ok {
			if check.required {
				icon = "✗"
				requiredOk = false
			} else {
				icon = "○"
				suffix = " (optional)"
			}
		}
		fmt.Printf("  %s %s%s\n", icon, check.name, suffix)
	}
	fmt.Println()

	fmt.Println("Checking state backend...")
	fmt.Println()
	backendOk := true
	store, err := state.New(cfg.State.Backend, cfg.State.Dir, cfg.State.Path)
	if err != nil {
		fmt.Printf("  ✗ %s backend: %v\n", cfg.State.Backend, err)
		backendOk = false
	} else {
		_ = store.Close()
		fmt.Printf("  ✓ %s backend ready\n", cfg.State.Backend)
	}
	fmt.Println()

	fmt.Println("Checking agent definitions...")
	fmt.Println()
	defs, err := registry.LoadDir(cfg.Agents.DefinitionsDir, logging.NewNop())
	switch {
	case err != nil:
		fmt.Printf("  ✗ %s: %v\n", cfg.Agents.DefinitionsDir, err)
	case len(defs) == 0:
		fmt.Printf("  ○ no definition documents in %s (native agents only)\n", cfg.Agents.DefinitionsDir)
	default:
		fmt.Printf("  ✓ %d definition document(s) in %s\n", len(defs), cfg.Agents.DefinitionsDir)
	}
	fmt.Println()

	fmt.Println("Host resources...")
	fmt.Println()
	printHostReport(diagnostics.CollectHost())
	fmt.Println()

	if !requiredOk {
		fmt.Printf("The configured LLM command %q is not runnable; workflows cannot execute agents.\n", cfg.LLM.Command)
		return fmt.Errorf("dependency check failed")
	}
	if !backendOk {
		return fmt.Errorf("state backend check failed")
	}

	fmt.Println("All required checks passed")
	return nil
}

func checkCommand(name string, args []string) bool {
	cmd := exec.Command(name, args...)
	return cmd.Run() == nil
}

func printHostReport(report diagnostics.HostReport) {
	fmt.Printf("  os:     %s/%s (%s)\n", report.OS, report.Arch, report.GoVersion)
	if report.CPUModel != "" || report.CPUThreads > 0 {
		fmt.Printf("  cpu:    %s (%d cores, %d threads, %.0f%% busy)\n",
			report.CPUModel, report.CPUCores, report.CPUThreads, report.CPUPercent)
	}
	if report.MemTotalMB > 0 {
		fmt.Printf("  memory: %.0f/%.0f MB used (%.0f%%)\n",
			report.MemUsedMB, report.MemTotalMB, report.MemPercent)
	}
	if report.DiskTotalGB > 0 {
		fmt.Printf("  disk:   %.1f/%.1f GB used (%.0f%%)\n",
			report.DiskUsedGB, report.DiskTotalGB, report.DiskPercent)
	}
	if report.LoadAvg1 > 0 || report.LoadAvg5 > 0 {
		fmt.Printf("  load:   %.2f %.2f %.2f\n",
			report.LoadAvg1, report.LoadAvg5, report.LoadAvg15)
	}
}
