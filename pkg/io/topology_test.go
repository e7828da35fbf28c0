package io

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/ecsgraph/pkg/ecs"
	errs "github.com/matzehuels/ecsgraph/pkg/errors"
	"github.com/matzehuels/ecsgraph/pkg/graph"
)

const sample = `{
  "nodes": [
    {"id": "gw", "name": "gateway"},
    {"id": "app"},
    {"id": "db"}
  ],
  "edges": [
    {"from": "gw", "to": "app", "name": "http"},
    {"from": "app", "to": "db"},
    {"from": "app", "to": "db"},
    {"from": "db", "to": "db"}
  ]
}`

func newSystem() (*graph.System, *ecs.EventCounter) {
	ctrl := ecs.NewController()
	counter := ecs.NewEventCounter()
	ctrl.Subscribe(counter)
	return graph.NewSystem(ctrl, nil), counter
}

func TestReadTopology(t *testing.T) {
	sys, counter := newSystem()

	g, err := ReadTopology(context.Background(), sys, strings.NewReader(sample))
	if err != nil {
		t.Fatalf("ReadTopology: %v", err)
	}

	if g.NumNodes() != 3 || g.NumEdges() != 4 {
		t.Fatalf("graph has %d nodes, %d edges, want 3, 4", g.NumNodes(), g.NumEdges())
	}
	names := map[string]*graph.Node{}
	for _, n := range g.Nodes() {
		names[n.Name()] = n
	}
	for _, want := range []string{"gateway", "app", "db"} {
		if names[want] == nil {
			t.Errorf("missing node %q", want)
		}
	}
	if got := len(names["db"].Incoming()); got != 3 {
		t.Errorf("db incoming = %d, want 3", got)
	}
	if err := graph.Verify(g); err != nil {
		t.Errorf("Verify: %v", err)
	}
	if counter.Batches() != 1 {
		t.Errorf("import committed %d batches, want 1", counter.Batches())
	}
}

func TestReadTopologyErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  errs.Code
	}{
		{"malformed", `{"nodes": [`, errs.ErrCodeInvalidFormat},
		{"missing id", `{"nodes": [{"name": "x"}]}`, errs.ErrCodeInvalidInput},
		{"duplicate id", `{"nodes": [{"id": "a"}, {"id": "a"}]}`, errs.ErrCodeInvalidInput},
		{"unknown source", `{"nodes": [{"id": "a"}], "edges": [{"from": "x", "to": "a"}]}`, errs.ErrCodeInvalidInput},
		{"unknown target", `{"nodes": [{"id": "a"}], "edges": [{"from": "a", "to": "x"}]}`, errs.ErrCodeInvalidInput},
		{"control char", `{"nodes": [{"id": "a", "name": "bad\u0007"}]}`, errs.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sys, counter := newSystem()
			_, err := ReadTopology(context.Background(), sys, strings.NewReader(tt.input))
			if !errs.Is(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
			if counter.Total() != 0 {
				t.Errorf("rejected topology produced %d events", counter.Total())
			}
		})
	}
}

func TestTopologyRoundTrip(t *testing.T) {
	sys, _ := newSystem()
	ctx := context.Background()

	g, err := ReadTopology(ctx, sys, strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteTopology(g, &buf); err != nil {
		t.Fatal(err)
	}

	again, err := ReadTopology(ctx, sys, &buf)
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if again.NumNodes() != g.NumNodes() || again.NumEdges() != g.NumEdges() {
		t.Errorf("round trip: %d/%d, want %d/%d",
			again.NumNodes(), again.NumEdges(), g.NumNodes(), g.NumEdges())
	}
	if again == g {
		t.Error("re-import must build a new graph")
	}
}

func TestImportExportFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	out := filepath.Join(dir, "out.json")
	if err := os.WriteFile(in, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}

	sys, _ := newSystem()
	g, err := ImportTopology(context.Background(), sys, in)
	if err != nil {
		t.Fatal(err)
	}
	if err := ExportTopology(g, out); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"name": "gateway"`) {
		t.Errorf("export missing gateway node:\n%s", data)
	}

	if _, err := ImportTopology(context.Background(), sys, filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}
