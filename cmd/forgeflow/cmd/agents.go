package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/forgeflow/internal/core"
	"github.com/hugo-lorenzo-mato/forgeflow/internal/registry"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "Inspect the agent registry",
}

var agentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered agents",
	RunE:  runAgentsList,
}

var agentsShowCmd = &cobra.Command{
	Use:   "show <agent-id>",
	Short: "Show an agent's definition document",
	Args:  cobra.ExactArgs(1),
	RunE:  runAgentsShow,
}

func init() {
	agentsCmd.AddCommand(agentsListCmd)
	agentsCmd.AddCommand(agentsShowCmd)

	rootCmd.AddCommand(agentsCmd)
}

func runAgentsList(cmd *cobra.Command, _ []string) error {
	reg, err := buildRegistry(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	ids := reg.List()
	if len(ids) == 0 {
		fmt.Println("No agents registered.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tSOURCE\tMODEL\tDESCRIPTION")
	for _, id := range ids {
		row := describeAgent(reg, id)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			row.id, row.category, row.source, row.model, truncateText(row.description, 60))
	}
	return w.Flush()
}

func runAgentsShow(cmd *cobra.Command, args []string) error {
	reg, err := buildRegistry(cfg, newLogger(cfg))
	if err != nil {
		return err
	}

	id := args[0]
	def, ok := reg.Definition(id)
	if !ok {
		if reg.Has(id) {
			row := describeAgent(reg, id)
			fmt.Printf("%s (native agent)\n", id)
			if row.category != "" {
				fmt.Printf("Category: %s\n", row.category)
			}
			fmt.Println("Implemented in code; no definition document to show.")
			return nil
		}
		if suggestions := reg.Suggest(id); len(suggestions) > 0 {
			return fmt.Errorf("unknown agent %q (did you mean %s?)", id, strings.Join(suggestions, ", "))
		}
		return fmt.Errorf("unknown agent %q", id)
	}

	md := definitionMarkdown(id, def)
	if noColor {
		fmt.Println(md)
		return nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		fmt.Println(md)
		return nil
	}
	fmt.Print(rendered)
	return nil
}

type agentRow struct {
	id          string
	category    string
	source      string
	model       string
	description string
}

// describeAgent resolves an agent's listing row. Definition documents win
// over native metadata, mirroring the HTTP agents endpoint.
func describeAgent(reg *registry.Registry, id string) agentRow {
	row := agentRow{id: id, source: "native"}
	if def, ok := reg.Definition(id); ok {
		row.source = "definition"
		row.category = string(def.Category)
		row.model = def.Model
		row.description = def.Description
		return row
	}
	if agent, err := reg.Get(id); err == nil {
		row.category = string(agent.Category())
	}
	return row
}

// definitionMarkdown rebuilds a markdown document from a loaded definition.
func definitionMarkdown(id string, def *core.AgentDefinition) string {
	title := def.Name
	if title == "" {
		title = id
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", title)
	if def.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", def.Description)
	}
	fmt.Fprintf(&b, "- Category: %s\n", def.Category)
	if def.Model != "" {
		fmt.Fprintf(&b, "- Model: %s\n", def.Model)
	}
	if len(def.Tools) > 0 {
		fmt.Fprintf(&b, "- Tools: %s\n", strings.Join(def.Tools, ", "))
	}
	fmt.Fprintf(&b, "\n## Instructions\n\n%s\n", strings.TrimSpace(def.Instructions))
	return b.String()
}

func truncateText(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
