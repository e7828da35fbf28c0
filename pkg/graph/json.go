package graph

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/matzehuels/ecsgraph/pkg/ecs"
)

// NodeView is the JSON shape of a node. Connection summaries group the
// adjacency lists by neighbour, e.g. "To Node 7: 3 connections".
type NodeView struct {
	ID                  ecs.Entity `json:"id"`
	Name                string     `json:"name"`
	GraphID             ecs.Entity `json:"graphId"`
	OutgoingConnections []string   `json:"outgoingConnections"`
	IncomingConnections []string   `json:"incomingConnections"`
}

// EdgeView is the JSON shape of an edge.
type EdgeView struct {
	ID          ecs.Entity `json:"id"`
	Name        string     `json:"name"`
	Source      ecs.Entity `json:"source"`
	Destination ecs.Entity `json:"destination"`
}

// GraphView is the JSON shape of a graph. Nodes and edges are sorted by id.
type GraphView struct {
	ID    ecs.Entity `json:"id"`
	Nodes []NodeView `json:"nodes"`
	Edges []EdgeView `json:"edges"`
}

// =============================================================================
// Views
// =============================================================================

// ViewNode builds the JSON view of n.
func ViewNode(n *Node) NodeView {
	out, in := n.Outgoing(), n.Incoming()
	return NodeView{
		ID:                  n.Entity(),
		Name:                n.Name(),
		GraphID:             n.Graph().Entity(),
		OutgoingConnections: summarize("To", out, (*Edge).Destination),
		IncomingConnections: summarize("From", in, (*Edge).Source),
	}
}

// ViewEdge builds the JSON view of e.
func ViewEdge(e *Edge) EdgeView {
	return EdgeView{
		ID:          e.Entity(),
		Name:        e.Name(),
		Source:      e.Source().Entity(),
		Destination: e.Destination().Entity(),
	}
}

// ViewGraph builds the JSON view of g.
func ViewGraph(g *Graph) GraphView {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b *Node) int { return cmp.Compare(a.Entity(), b.Entity()) })
	edges := g.Edges()
	slices.SortFunc(edges, func(a, b *Edge) int { return cmp.Compare(a.Entity(), b.Entity()) })

	v := GraphView{
		ID:    g.Entity(),
		Nodes: make([]NodeView, len(nodes)),
		Edges: make([]EdgeView, len(edges)),
	}
	for i, n := range nodes {
		v.Nodes[i] = ViewNode(n)
	}
	for i, e := range edges {
		v.Edges[i] = ViewEdge(e)
	}
	return v
}

// summarize counts edges per neighbour in order of first appearance.
func summarize(dir string, edges []*Edge, neighbour func(*Edge) *Node) []string {
	var order []ecs.Entity
	counts := make(map[ecs.Entity]int)
	for _, e := range edges {
		id := neighbour(e).Entity()
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	out := make([]string, 0, len(order))
	for _, id := range order {
		k := counts[id]
		unit := "connections"
		if k == 1 {
			unit = "connection"
		}
		out = append(out, fmt.Sprintf("%s Node %d: %d %s", dir, id, k, unit))
	}
	return out
}

// =============================================================================
// Marshalling
// =============================================================================

// MarshalNode returns the JSON encoding of n.
func MarshalNode(n *Node) ([]byte, error) {
	return json.Marshal(ViewNode(n))
}

// MarshalEdge returns the JSON encoding of e.
func MarshalEdge(e *Edge) ([]byte, error) {
	return json.Marshal(ViewEdge(e))
}

// MarshalGraph returns the JSON encoding of g.
func MarshalGraph(g *Graph) ([]byte, error) {
	return json.Marshal(ViewGraph(g))
}

// WriteJSON writes the indented JSON encoding of g to w.
func WriteJSON(w io.Writer, g *Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ViewGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
