package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/service"
)

var (
	statusTitleStyle = lipgloss.NewStyle().Bold(true)
	statusLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280"))
	runningStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#eab308")).Bold(true)
	pausedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#7c3aed")).Bold(true)
	completedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22c55e")).Bold(true)
	failedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	neutralStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status <project-id>",
	Short: "Show a project's workflow progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// statusOutput is the status command's view of a run, shared by the JSON
// and styled renderings.
type statusOutput struct {
	ProjectID        string      `json:"project_id"`
	Mode             string      `json:"mode"`
	Status           string      `json:"status"`
	CurrentPhase     string      `json:"current_phase,omitempty"`
	CompletedPhases  []string    `json:"completed_phases"`
	TotalPhases      int         `json:"total_phases"`
	Percent          int         `json:"percent"`
	ActivatedExperts []string    `json:"activated_experts,omitempty"`
	StartedAt        time.Time   `json:"started_at"`
	Error            string      `json:"error,omitempty"`
	PendingGate      *gateOutput `json:"pending_gate,omitempty"`
}

type gateOutput struct {
	GateID    string    `json:"gate_id"`
	Phase     string    `json:"phase"`
	CreatedAt time.Time `json:"created_at"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	projectID := args[0]

	rt, err := newRuntime()
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	progress, err := rt.engine.GetProgress(ctx, projectID)
	if err != nil {
		return err
	}

	total := 0
	if workflow, werr := rt.engine.WorkflowDefinition(progress.Mode); werr == nil {
		total = len(workflow.Phases)
	}

	gate, err := rt.approvals.PendingGate(ctx, projectID)
	if err != nil {
		return err
	}

	out := buildStatusOutput(progress, gate, total)
	if statusJSON {
		return outputJSON(out)
	}

	fmt.Println(renderStatus(out, noColor))
	return nil
}

func buildStatusOutput(progress *service.Progress, gate *core.ApprovalGate, total int) statusOutput {
	completed := progress.CompletedPhases
	if completed == nil {
		completed = []string{}
	}

	percent := 0
	if total > 0 {
		percent = len(completed) * 100 / total
	}

	out := statusOutput{
		ProjectID:        progress.ProjectID,
		Mode:             string(progress.Mode),
		Status:           string(progress.Status),
		CurrentPhase:     progress.CurrentPhase,
		CompletedPhases:  completed,
		TotalPhases:      total,
		Percent:          percent,
		ActivatedExperts: progress.ActivatedExperts,
		StartedAt:        progress.StartedAt,
		Error:            progress.Error,
	}
	if gate != nil {
		out.PendingGate = &gateOutput{
			GateID:    gate.GateID,
			Phase:     gate.Phase,
			CreatedAt: gate.CreatedAt,
		}
	}
	return out
}

// renderStatus builds the human-readable report. With plain set, styling
// is skipped entirely.
func renderStatus(out statusOutput, plain bool) string {
	style := func(s lipgloss.Style, text string) string {
		if plain {
			return text
		}
		return s.Render(text)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", style(statusTitleStyle, "Project "+out.ProjectID))
	fmt.Fprintf(&b, "  %s %s\n",
		style(statusLabelStyle, "Status:"),
		style(statusValueStyle(out.Status), strings.ReplaceAll(out.Status, "_", " ")))
	fmt.Fprintf(&b, "  %s %s\n", style(statusLabelStyle, "Mode:"), out.Mode)
	fmt.Fprintf(&b, "  %s %d/%d phases (%d%%)\n",
		style(statusLabelStyle, "Progress:"), len(out.CompletedPhases), out.TotalPhases, out.Percent)
	if out.CurrentPhase != "" {
		fmt.Fprintf(&b, "  %s %s\n", style(statusLabelStyle, "Phase:"), out.CurrentPhase)
	}
	if len(out.CompletedPhases) > 0 {
		fmt.Fprintf(&b, "  %s %s\n",
			style(statusLabelStyle, "Completed:"), strings.Join(out.CompletedPhases, ", "))
	}
	if len(out.ActivatedExperts) > 0 {
		fmt.Fprintf(&b, "  %s %s\n",
			style(statusLabelStyle, "Experts:"), strings.Join(out.ActivatedExperts, ", "))
	}
	fmt.Fprintf(&b, "  %s %s\n",
		style(statusLabelStyle, "Started:"), out.StartedAt.Local().Format("2006-01-02 15:04:05"))
	if out.Error != "" {
		fmt.Fprintf(&b, "  %s %s\n", style(statusLabelStyle, "Error:"), style(failedStyle, out.Error))
	}

	if out.PendingGate != nil {
		fmt.Fprintf(&b, "\n%s\n", style(pausedStyle, "Pending approval gate"))
		fmt.Fprintf(&b, "  %s %s\n", style(statusLabelStyle, "Phase:"), out.PendingGate.Phase)
		fmt.Fprintf(&b, "  %s %s\n",
			style(statusLabelStyle, "Created:"), out.PendingGate.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "\n%s\n", style(neutralStyle,
			fmt.Sprintf("Resolve with 'forgeflow approve %s' or 'forgeflow reject %s --feedback ...'.",
				out.ProjectID, out.ProjectID)))
	}

	return strings.TrimRight(b.String(), "\n")
}

func statusValueStyle(status string) lipgloss.Style {
	switch core.ProjectStatus(status) {
	case core.StatusRunning:
		return runningStyle
	case core.StatusAwaitingApproval:
		return pausedStyle
	case core.StatusCompleted:
		return completedStyle
	case core.StatusFailed:
		return failedStyle
	default:
		return neutralStyle
	}
}
