// Package graph implements directed graphs whose graphs, nodes and edges are
// components in an [ecs] store.
//
// # Overview
//
// A [Graph] holds the sets of its nodes and edges. A [Node] keeps ordered
// outgoing and incoming edge lists plus a reference to its graph. An [Edge]
// links a source and a destination node of the same graph.
//
// Components are never mutated directly. Every structural change goes
// through [System], which coordinates the three component stores inside one
// transactional scope:
//
//	ctrl := ecs.NewController()
//	sys := graph.NewSystem(ctrl, logger)
//
//	g, _ := sys.CreateGraph(ctx)
//	a, _ := sys.CreateNode(ctx, g, graph.WithName("a"))
//	b, _ := sys.CreateNode(ctx, g, graph.WithName("b"))
//	e, _ := sys.CreateEdge(ctx, a, b, graph.WithName("link"))
//
// # Cascades
//
// Deleting a node deletes every edge touching it, outgoing first. Deleting a
// graph deletes all of its edges, then all of its nodes, then the graph.
// A cascade runs inside the caller's scope when one is open, so listeners
// see it as a single batch:
//
//	ctx, sc := ctrl.Begin(ctx)
//	defer sc.Close()
//	sys.DeleteNode(ctx, a)
//
// # Locking
//
// Before mutating a node or edge the engine takes the component's read lock
// ([ecs.Mapper.AcquireReadLock]). Concurrent readers are never blocked; two
// scopes mutating the same node are serialized until the first commits.
//
// # Exports
//
// [WriteGML] produces the line-oriented GML block format, [MarshalNode],
// [MarshalEdge] and [MarshalGraph] the JSON views, and [ToDOT]/[RenderSVG]
// a Graphviz drawing.
package graph
