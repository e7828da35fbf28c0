package graph

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"
)

// ToDOT converts g to Graphviz DOT format. Nodes are identified by entity and
// labelled with their display string; named edges carry their name as label.
// Nodes and edges are sorted by entity so the output is stable.
func ToDOT(g *Graph) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph G%d {\n", g.Entity())
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14];\n")
	buf.WriteString("\n")

	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b *Node) int { return cmp.Compare(a.Entity(), b.Entity()) })
	for _, n := range nodes {
		fmt.Fprintf(&buf, "  n%d [label=%s];\n", n.Entity(), dotQuote(n.String()))
	}

	buf.WriteString("\n")
	edges := g.Edges()
	slices.SortFunc(edges, func(a, b *Edge) int { return cmp.Compare(a.Entity(), b.Entity()) })
	for _, e := range edges {
		if e.Name() != "" {
			fmt.Fprintf(&buf, "  n%d -> n%d [label=%s];\n", e.Source().Entity(), e.Destination().Entity(), dotQuote(e.Name()))
			continue
		}
		fmt.Fprintf(&buf, "  n%d -> n%d;\n", e.Source().Entity(), e.Destination().Entity())
	}

	buf.WriteString("}\n")
	return buf.String()
}

var dotEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
	"\x00", "",
)

// dotQuote returns s as a DOT double-quoted string. Newlines become the
// centered line break escape; NUL bytes are dropped since Graphviz cannot
// carry them.
func dotQuote(s string) string {
	return `"` + dotEscaper.Replace(s) + `"`
}

// RenderSVG renders a DOT document to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
