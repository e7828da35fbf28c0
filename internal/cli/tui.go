package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/ecsgraph/pkg/ecs"
	"github.com/matzehuels/ecsgraph/pkg/graph"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorText)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorFaint)
	headerStyle       = lipgloss.NewStyle().Foreground(colorMuted).Bold(true)
)

// =============================================================================
// NodeBrowserModel - Interactive node browser
// =============================================================================

// NodeBrowserModel is the bubbletea model for browsing the nodes of a graph.
// It works on a snapshot of node views, so browsing never contends with the
// engine's locks.
type NodeBrowserModel struct {
	Graph  graph.GraphView
	Degree degrees
	Cursor int
	Height int
	Offset int
	Detail bool
}

// NewNodeBrowserModel creates a browser over a snapshot of g.
func NewNodeBrowserModel(g *graph.Graph) NodeBrowserModel {
	v := graph.ViewGraph(g)
	return NodeBrowserModel{
		Graph:  v,
		Degree: degreesOf(v),
		Height: 15,
	}
}

func (m NodeBrowserModel) Init() tea.Cmd {
	return nil
}

func (m NodeBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.Detail {
				m.Detail = false
				return m, nil
			}
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Graph.Nodes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.Graph.Nodes) > 0 {
				m.Detail = !m.Detail
			}
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 8
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m NodeBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(fmt.Sprintf("Graph %d", m.Graph.ID)))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d nodes · %d edges", len(m.Graph.Nodes), len(m.Graph.Edges))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ connections  esc back  q quit"))
	b.WriteString("\n\n")

	if len(m.Graph.Nodes) == 0 {
		b.WriteString(listDimStyle.Render("  (no nodes)"))
		return b.String()
	}

	if m.Detail {
		b.WriteString(nodeDetail(m.Graph.Nodes[m.Cursor]))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Graph.Nodes))
	b.WriteString(nodeTable(m.Graph.Nodes[m.Offset:end], m.Degree, m.Cursor-m.Offset))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Graph.Nodes))))

	return b.String()
}

// =============================================================================
// Rendering
// =============================================================================

// nodeTable renders nodes as a table. The row at cursor is highlighted;
// pass -1 for no highlight.
func nodeTable(nodes []graph.NodeView, d degrees, cursor int) string {
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		marker := "  "
		if i == cursor {
			marker = "▸ "
		}
		name := n.Name
		if name == "" {
			name = "—"
		}
		rows[i] = []string{
			marker,
			n.ID.String(),
			name,
			fmt.Sprint(d.out[n.ID]),
			fmt.Sprint(d.in[n.ID]),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorFaint)).
		Headers("", "ID", "Name", "Out", "In").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if row == cursor {
				return listSelectedStyle
			}
			if col == 3 || col == 4 {
				return StyleNumber
			}
			return listNormalStyle
		})

	return t.Render()
}

// nodeDetail renders the connection summaries of n.
func nodeDetail(n graph.NodeView) string {
	var b strings.Builder

	title := n.Name
	if title == "" {
		title = fmt.Sprintf("Node %d", n.ID)
	}
	b.WriteString(StyleHighlight.Render(title))
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  id %d", n.ID)))
	b.WriteString("\n\n")

	section := func(label string, lines []string) {
		b.WriteString(headerStyle.Render(label))
		b.WriteString("\n")
		if len(lines) == 0 {
			b.WriteString(listDimStyle.Render("  none"))
			b.WriteString("\n")
		}
		for _, line := range lines {
			b.WriteString("  " + listNormalStyle.Render(line) + "\n")
		}
		b.WriteString("\n")
	}
	section("Outgoing", n.OutgoingConnections)
	section("Incoming", n.IncomingConnections)

	return b.String()
}

// degrees holds per-node edge counts; parallel edges count separately.
type degrees struct {
	out, in map[ecs.Entity]int
}

func degreesOf(g graph.GraphView) degrees {
	d := degrees{
		out: make(map[ecs.Entity]int, len(g.Nodes)),
		in:  make(map[ecs.Entity]int, len(g.Nodes)),
	}
	for _, e := range g.Edges {
		d.out[e.Source]++
		d.in[e.Destination]++
	}
	return d
}
