package graph

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ToGML returns the GML representation of g.
//
// Node blocks follow the graph's node set; edge blocks are emitted per node
// from its incoming list, so the block order is not stable across runs.
func ToGML(g *Graph) string {
	var sb strings.Builder
	_ = WriteGML(&sb, g)
	return sb.String()
}

// WriteGML writes the GML representation of g to w.
func WriteGML(w io.Writer, g *Graph) error {
	bw := bufio.NewWriter(w)
	nodes := g.Nodes()

	fmt.Fprintf(bw, "graph [\n")
	fmt.Fprintf(bw, "\tdirected 1\n")
	fmt.Fprintf(bw, "\tid %d\n", g.Entity())

	for _, n := range nodes {
		fmt.Fprintf(bw, "\t node [\n")
		fmt.Fprintf(bw, "\t\tid %d\n", n.Entity())
		fmt.Fprintf(bw, "\t]\n")
	}

	for _, n := range nodes {
		for _, e := range n.Incoming() {
			fmt.Fprintf(bw, "\tedge [\n")
			fmt.Fprintf(bw, "\t\t source %d\n", e.Source().Entity())
			fmt.Fprintf(bw, "\t\t target %d\n", e.Destination().Entity())
			fmt.Fprintf(bw, "\t]\n")
		}
	}

	fmt.Fprintf(bw, "]\n")
	return bw.Flush()
}
