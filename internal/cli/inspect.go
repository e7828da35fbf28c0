package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/ecsgraph/pkg/graph"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "inspect [topology.json]",
		Short: "Show the nodes of a topology with their degrees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := c.loadTopology(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if interactive {
				return browse(cmd.Context(), g)
			}
			fmt.Println(renderInspect(g))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse nodes and their connections interactively")

	return cmd
}

// renderInspect renders the summary header and the full node table.
func renderInspect(g *graph.Graph) string {
	v := graph.ViewGraph(g)
	header := StyleTitle.Render(fmt.Sprintf("Graph %d", v.ID)) +
		StyleDim.Render(fmt.Sprintf("  %d nodes · %d edges", len(v.Nodes), len(v.Edges)))
	return header + "\n" + nodeTable(v.Nodes, degreesOf(v), -1)
}

func browse(ctx context.Context, g *graph.Graph) error {
	p := tea.NewProgram(NewNodeBrowserModel(g), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("node browser: %w", err)
	}
	return nil
}
