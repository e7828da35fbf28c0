// Package io reads and writes graph topologies as JSON.
//
// # Overview
//
// A topology file describes one graph as node and edge arrays. Importing a
// topology builds the graph through [graph.System], so every component is
// created by the engine and listeners see the whole import as one batch.
//
// # JSON Format
//
//	{
//	  "nodes": [
//	    {"id": "gw", "name": "gateway"},
//	    {"id": "db"}
//	  ],
//	  "edges": [
//	    {"from": "gw", "to": "db", "name": "sql"}
//	  ]
//	}
//
// Node ids are local to the file and only serve to reference nodes from
// edges. A node without a name takes its id as name. Edge names are
// optional. Self-loops and parallel edges are allowed.
//
// # Import
//
// Use [ImportTopology] for a file path or [ReadTopology] for any io.Reader:
//
//	g, err := io.ImportTopology(ctx, sys, "topology.json")
//
// The whole document is validated before the first component is created:
// duplicate node ids, empty ids and edges referencing unknown nodes are
// rejected with INVALID_INPUT, malformed JSON with INVALID_FORMAT.
//
// # Export
//
// [WriteTopology] and [ExportTopology] write a graph back in the same
// format. Node ids are "n" followed by the entity, so an exported topology
// re-imports into an equivalent graph.
package io
