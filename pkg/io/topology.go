package io

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	errs "github.com/matzehuels/ecsgraph/pkg/errors"
	"github.com/matzehuels/ecsgraph/pkg/graph"
)

type topology struct {
	Nodes []node `json:"nodes"`
	Edges []edge `json:"edges"`
}

type node struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Name string `json:"name,omitempty"`
}

// ReadTopology decodes a topology from r and builds it as a new graph in
// sys. The graph is built inside the scope carried by ctx, or a fresh one
// when ctx has none. ReadTopology does not close r.
func ReadTopology(ctx context.Context, sys *graph.System, r io.Reader) (*graph.Graph, error) {
	var data topology
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode topology")
	}
	if err := data.validate(); err != nil {
		return nil, err
	}
	return data.build(ctx, sys)
}

// ImportTopology reads the topology file at path and builds it in sys.
func ImportTopology(ctx context.Context, sys *graph.System, path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadTopology(ctx, sys, f)
}

// WriteTopology encodes g as an indented topology document.
// Nodes and edges are sorted by entity.
func WriteTopology(g *graph.Graph, w io.Writer) error {
	nodes := g.Nodes()
	slices.SortFunc(nodes, func(a, b *graph.Node) int { return cmp.Compare(a.ID(), b.ID()) })
	edges := g.Edges()
	slices.SortFunc(edges, func(a, b *graph.Edge) int { return cmp.Compare(a.ID(), b.ID()) })

	out := topology{
		Nodes: make([]node, len(nodes)),
		Edges: make([]edge, len(edges)),
	}
	for i, n := range nodes {
		out.Nodes[i] = node{ID: nodeKey(n), Name: n.Name()}
	}
	for i, e := range edges {
		out.Edges[i] = edge{From: nodeKey(e.Source()), To: nodeKey(e.Destination()), Name: e.Name()}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportTopology writes g to a topology file at path.
func ExportTopology(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteTopology(g, f)
}

func nodeKey(n *graph.Node) string { return fmt.Sprintf("n%d", n.ID()) }

func (t *topology) validate() error {
	seen := make(map[string]bool, len(t.Nodes))
	for i, n := range t.Nodes {
		if n.ID == "" {
			return errs.New(errs.ErrCodeInvalidInput, "node %d: missing id", i)
		}
		if seen[n.ID] {
			return errs.New(errs.ErrCodeInvalidInput, "node %s: duplicate id", n.ID)
		}
		seen[n.ID] = true
		if err := errs.ValidateName(n.displayName()); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "node %s", n.ID)
		}
	}
	for _, e := range t.Edges {
		if !seen[e.From] {
			return errs.New(errs.ErrCodeInvalidInput, "edge %s->%s: unknown source", e.From, e.To)
		}
		if !seen[e.To] {
			return errs.New(errs.ErrCodeInvalidInput, "edge %s->%s: unknown target", e.From, e.To)
		}
		if err := errs.ValidateName(e.Name); err != nil {
			return errs.Wrap(errs.ErrCodeInvalidInput, err, "edge %s->%s", e.From, e.To)
		}
	}
	return nil
}

func (t *topology) build(ctx context.Context, sys *graph.System) (*graph.Graph, error) {
	ctx, sc := sys.Controller().Begin(ctx)
	defer sc.Close()

	g, err := sys.CreateGraph(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*graph.Node, len(t.Nodes))
	for _, n := range t.Nodes {
		gn, err := sys.CreateNode(ctx, g, graph.WithName(n.displayName()))
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		byID[n.ID] = gn
	}
	for _, e := range t.Edges {
		if _, err := sys.CreateEdge(ctx, byID[e.From], byID[e.To], graph.WithName(e.Name)); err != nil {
			return nil, fmt.Errorf("edge %s->%s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}

func (n node) displayName() string {
	if n.Name != "" {
		return n.Name
	}
	return n.ID
}
