// Package pkg provides the libraries behind ecsgraph, a directed multigraph
// engine built on an entity-component store.
//
// # Overview
//
// Graphs, nodes and edges are components attached to numeric entities. The
// engine keeps three structures consistent under concurrent mutation: a
// graph's node and edge sets, and each node's ordered outgoing and incoming
// edge lists. The pkg directory is organized into these areas:
//
//  1. [ecs] - Entities, component stores, transactional scopes and events
//  2. [graph] - Graph/Node/Edge components, the mutation engine and exports
//  3. [io] - Topology document import and export
//  4. [notify], [cache], [observability] - Commit sinks, artifact cache, metrics
//  5. [api], [config] - HTTP API and its TOML configuration
//
// # Architecture
//
// The typical data flow:
//
//	Topology JSON / HTTP request
//	         ↓
//	    [graph.System] (create/delete with cascades, inside a scope)
//	         ↓
//	    [ecs.Mapper] (attach, detach, update; events buffered in the scope)
//	         ↓
//	    scope commit → one [ecs.Batch] → log / Redis stream / MongoDB
//	         ↓
//	    GML / JSON / DOT / SVG exports
//
// # Quick Start
//
//	ctrl := ecs.NewController()
//	sys := graph.NewSystem(ctrl, nil)
//
//	g, _ := sys.CreateGraph(ctx)
//	a, _ := sys.CreateNode(ctx, g, graph.WithName("a"))
//	b, _ := sys.CreateNode(ctx, g, graph.WithName("b"))
//	_, _ = sys.CreateEdge(ctx, a, b)
//
//	fmt.Print(graph.ToGML(g))
//
// Group several operations into one commit by opening a scope:
//
//	ctx, sc := ctrl.Begin(ctx)
//	defer sc.Close()
//
// # Error Handling
//
// Every engine failure is a coded [errors.Error]. Match on the code:
//
//	if errors.Is(err, errors.ErrCodeCrossGraph) { ... }
package pkg
