package graph

import (
	errs "github.com/matzehuels/ecsgraph/pkg/errors"
)

// Verify checks the structural invariants of g and reports the first
// violation as an INVARIANT_VIOLATION error:
//
//   - every member node is attached and belongs to g
//   - every member edge is attached, both endpoints are attached members of g
//   - each edge appears exactly once in its source's outgoing list and
//     exactly once in its destination's incoming list
//   - every edge in a node's adjacency lists is a member of g and points
//     back at that node
//
// Verify takes no read locks. Run it on a quiescent graph.
func Verify(g *Graph) error {
	if g == nil {
		return errs.New(errs.ErrCodeInvalidInput, "graph is nil")
	}
	if !g.Attached() {
		return violation("%s is not attached", g)
	}

	nodes := g.Nodes()
	for _, n := range nodes {
		if !n.Attached() {
			return violation("%s is a member of %s but not attached", n, g)
		}
		if n.Graph() != g {
			return violation("%s is a member of %s but belongs to %s", n, g, n.Graph())
		}
		for _, e := range n.Outgoing() {
			if e.Source() != n {
				return violation("%s lists outgoing %s whose source is %s", n, e, e.Source())
			}
			if !g.HasEdge(e) {
				return violation("%s lists outgoing %s which is not a member of %s", n, e, g)
			}
		}
		for _, e := range n.Incoming() {
			if e.Destination() != n {
				return violation("%s lists incoming %s whose destination is %s", n, e, e.Destination())
			}
			if !g.HasEdge(e) {
				return violation("%s lists incoming %s which is not a member of %s", n, e, g)
			}
		}
	}

	for _, e := range g.Edges() {
		if !e.Attached() {
			return violation("%s is a member of %s but not attached", e, g)
		}
		src, dst := e.Source(), e.Destination()
		if src.Graph() != dst.Graph() {
			return violation("%s crosses graphs", e)
		}
		for _, n := range []*Node{src, dst} {
			if !n.Attached() || !g.HasNode(n) {
				return violation("%s references %s which is not a live member of %s", e, n, g)
			}
		}
		if c := count(src.Outgoing(), e); c != 1 {
			return violation("%s appears %d times in the outgoing list of %s", e, c, src)
		}
		if c := count(dst.Incoming(), e); c != 1 {
			return violation("%s appears %d times in the incoming list of %s", e, c, dst)
		}
	}
	return nil
}

func count(list []*Edge, e *Edge) int {
	c := 0
	for _, x := range list {
		if x == e {
			c++
		}
	}
	return c
}

func violation(format string, args ...any) error {
	return errs.New(errs.ErrCodeInvariant, format, args...)
}
