package graph

import (
	"fmt"
	"slices"

	"github.com/matzehuels/ecsgraph/pkg/ecs"
)

// Component kinds as they appear in events and errors.
const (
	KindGraph = "Graph"
	KindNode  = "Node"
	KindEdge  = "Edge"
)

// =============================================================================
// Graph
// =============================================================================

// Graph is the set of nodes and edges created in it.
// Membership is identity-based and unordered.
type Graph struct {
	ecs.Base
	nodes map[*Node]struct{}
	edges map[*Edge]struct{}
}

func newGraph() *Graph {
	return &Graph{
		nodes: make(map[*Node]struct{}),
		edges: make(map[*Edge]struct{}),
	}
}

// ID returns the graph's entity.
func (g *Graph) ID() ecs.Entity { return g.Entity() }

// Nodes returns a snapshot of the graph's nodes in no particular order.
func (g *Graph) Nodes() []*Node {
	g.RLock()
	defer g.RUnlock()
	out := make([]*Node, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	return out
}

// Edges returns a snapshot of the graph's edges in no particular order.
func (g *Graph) Edges() []*Edge {
	g.RLock()
	defer g.RUnlock()
	out := make([]*Edge, 0, len(g.edges))
	for e := range g.edges {
		out = append(out, e)
	}
	return out
}

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int {
	g.RLock()
	defer g.RUnlock()
	return len(g.nodes)
}

// NumEdges returns the number of edges in the graph.
func (g *Graph) NumEdges() int {
	g.RLock()
	defer g.RUnlock()
	return len(g.edges)
}

// HasNode reports whether n is a member of the graph.
func (g *Graph) HasNode(n *Node) bool {
	g.RLock()
	defer g.RUnlock()
	_, ok := g.nodes[n]
	return ok
}

// HasEdge reports whether e is a member of the graph.
func (g *Graph) HasEdge(e *Edge) bool {
	g.RLock()
	defer g.RUnlock()
	_, ok := g.edges[e]
	return ok
}

func (g *Graph) String() string { return fmt.Sprintf("Graph %d", g.Entity()) }

func (g *Graph) addNode(n *Node)    { g.nodes[n] = struct{}{} }
func (g *Graph) removeNode(n *Node) { delete(g.nodes, n) }
func (g *Graph) addEdge(e *Edge)    { g.edges[e] = struct{}{} }
func (g *Graph) removeEdge(e *Edge) { delete(g.edges, e) }

// =============================================================================
// Node
// =============================================================================

// Node is a vertex of exactly one graph. Its outgoing and incoming lists keep
// edges in creation order.
type Node struct {
	ecs.Base
	graph    *Graph
	name     string
	outgoing []*Edge
	incoming []*Edge
}

// ID returns the node's entity.
func (n *Node) ID() ecs.Entity { return n.Entity() }

// Graph returns the graph the node was created in. It never changes.
func (n *Node) Graph() *Graph { return n.graph }

// Name returns the display name, possibly empty.
func (n *Node) Name() string { return n.name }

// Outgoing returns a snapshot of the edges whose source is n.
func (n *Node) Outgoing() []*Edge {
	n.RLock()
	defer n.RUnlock()
	return slices.Clone(n.outgoing)
}

// Incoming returns a snapshot of the edges whose destination is n.
func (n *Node) Incoming() []*Edge {
	n.RLock()
	defer n.RUnlock()
	return slices.Clone(n.incoming)
}

// String returns the name, or "Node <id>" for unnamed nodes.
func (n *Node) String() string {
	if n.name != "" {
		return n.name
	}
	return fmt.Sprintf("Node %d", n.Entity())
}

func (n *Node) addOutgoing(e *Edge) { n.outgoing = append(n.outgoing, e) }
func (n *Node) addIncoming(e *Edge) { n.incoming = append(n.incoming, e) }

func (n *Node) removeOutgoing(e *Edge) { n.outgoing = removeFirst(n.outgoing, e) }
func (n *Node) removeIncoming(e *Edge) { n.incoming = removeFirst(n.incoming, e) }

func removeFirst(list []*Edge, e *Edge) []*Edge {
	if i := slices.Index(list, e); i >= 0 {
		return slices.Delete(list, i, i+1)
	}
	return list
}

// =============================================================================
// Edge
// =============================================================================

// Edge is a directed link between two nodes of the same graph. Its endpoints
// and name are fixed at creation.
type Edge struct {
	ecs.Base
	source      *Node
	destination *Node
	name        string
}

// ID returns the edge's entity.
func (e *Edge) ID() ecs.Entity { return e.Entity() }

// Source returns the node the edge leaves.
func (e *Edge) Source() *Node { return e.source }

// Destination returns the node the edge enters.
func (e *Edge) Destination() *Node { return e.destination }

// Name returns the display name, possibly empty.
func (e *Edge) Name() string { return e.name }

// Graph returns the graph of the edge's endpoints.
func (e *Edge) Graph() *Graph { return e.source.graph }

// Connects reports whether e links a and b in either direction.
func (e *Edge) Connects(a, b *Node) bool {
	return (e.source == a && e.destination == b) || (e.source == b && e.destination == a)
}

// String returns the name, or "Edge <id>" for unnamed edges.
func (e *Edge) String() string {
	if e.name != "" {
		return e.name
	}
	return fmt.Sprintf("Edge %d", e.Entity())
}
