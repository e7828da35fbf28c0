package graph

import (
	"encoding/json"
	"strings"
	"testing"

	errs "github.com/matzehuels/ecsgraph/pkg/errors"
)

func TestToGML(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)
	n1, n2 := w.node(t, g), w.node(t, g)
	w.edge(t, n1, n2)

	const case1 = "graph [\n" +
		"\tdirected 1\n" +
		"\tid 0\n" +
		"\t node [\n" +
		"\t\tid 1\n" +
		"\t]\n" +
		"\t node [\n" +
		"\t\tid 2\n" +
		"\t]\n" +
		"\tedge [\n" +
		"\t\t source 1\n" +
		"\t\t target 2\n" +
		"\t]\n" +
		"]\n"
	const case2 = "graph [\n" +
		"\tdirected 1\n" +
		"\tid 0\n" +
		"\t node [\n" +
		"\t\tid 2\n" +
		"\t]\n" +
		"\t node [\n" +
		"\t\tid 1\n" +
		"\t]\n" +
		"\tedge [\n" +
		"\t\t source 1\n" +
		"\t\t target 2\n" +
		"\t]\n" +
		"]\n"

	got := ToGML(g)
	if got != case1 && got != case2 {
		t.Errorf("ToGML() =\n%s", got)
	}
}

func TestToGMLEmpty(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)

	want := "graph [\n\tdirected 1\n\tid 0\n]\n"
	if got := ToGML(g); got != want {
		t.Errorf("ToGML() = %q, want %q", got, want)
	}
}

func TestToGMLParallelEdges(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)
	a, b := w.node(t, g), w.node(t, g)
	w.edge(t, a, b)
	w.edge(t, a, b)
	w.edge(t, b, a)

	got := ToGML(g)
	if n := strings.Count(got, "\tedge [\n"); n != 3 {
		t.Errorf("edge blocks = %d, want 3", n)
	}
	if n := strings.Count(got, "\t node [\n"); n != 2 {
		t.Errorf("node blocks = %d, want 2", n)
	}
}

func TestMarshalNode(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)
	hub := w.node(t, g, WithName("hub"))
	a, b := w.node(t, g), w.node(t, g)
	w.edge(t, hub, a)
	w.edge(t, hub, a)
	w.edge(t, hub, b)
	w.edge(t, b, hub)

	data, err := MarshalNode(hub)
	if err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["id"] != float64(1) || got["name"] != "hub" || got["graphId"] != float64(0) {
		t.Errorf("identity fields = %v", got)
	}

	v := ViewNode(hub)
	wantOut := []string{"To Node 2: 2 connections", "To Node 3: 1 connection"}
	if strings.Join(v.OutgoingConnections, "|") != strings.Join(wantOut, "|") {
		t.Errorf("outgoing = %v, want %v", v.OutgoingConnections, wantOut)
	}
	wantIn := []string{"From Node 3: 1 connection"}
	if strings.Join(v.IncomingConnections, "|") != strings.Join(wantIn, "|") {
		t.Errorf("incoming = %v, want %v", v.IncomingConnections, wantIn)
	}
}

func TestMarshalNodeIsolated(t *testing.T) {
	w := newWorld(t)
	n := w.node(t, w.graph(t))

	data, err := MarshalNode(n)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":1,"name":"","graphId":0,"outgoingConnections":[],"incomingConnections":[]}`
	if string(data) != want {
		t.Errorf("MarshalNode() = %s, want %s", data, want)
	}
}

func TestMarshalEdge(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)
	e := w.edge(t, w.node(t, g), w.node(t, g), WithName("uplink"))

	data, err := MarshalEdge(e)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":3,"name":"uplink","source":1,"destination":2}`
	if string(data) != want {
		t.Errorf("MarshalEdge() = %s, want %s", data, want)
	}
}

func TestMarshalGraphSorted(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)
	nodes := []*Node{w.node(t, g), w.node(t, g), w.node(t, g)}
	w.edge(t, nodes[2], nodes[0])
	w.edge(t, nodes[0], nodes[1])

	data, err := MarshalGraph(g)
	if err != nil {
		t.Fatal(err)
	}
	var v GraphView
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatal(err)
	}
	if len(v.Nodes) != 3 || len(v.Edges) != 2 {
		t.Fatalf("view has %d nodes, %d edges", len(v.Nodes), len(v.Edges))
	}
	for i := 1; i < len(v.Nodes); i++ {
		if v.Nodes[i-1].ID >= v.Nodes[i].ID {
			t.Errorf("nodes not sorted: %v", v.Nodes)
		}
	}
	if v.Edges[0].ID != 4 || v.Edges[0].Source != 3 {
		t.Errorf("first edge = %+v", v.Edges[0])
	}
}

func TestToDOT(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)
	a := w.node(t, g, WithName("ingress"))
	b := w.node(t, g)
	w.edge(t, a, b, WithName("fwd"))
	w.edge(t, b, a)

	dot := ToDOT(g)
	for _, want := range []string{
		"digraph G0 {",
		`n1 [label="ingress"];`,
		`n2 [label="Node 2"];`,
		`n1 -> n2 [label="fwd"];`,
		"n2 -> n1;",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTEscapesLabels(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)
	a := w.node(t, g, WithName("a \"b\"\nc\\d\te"))
	w.edge(t, a, a, WithName("x\r\ny\x00"))

	dot := ToDOT(g)
	for _, want := range []string{
		"n1 [label=\"a \\\"b\\\"\\nc\\\\d\te\"];",
		"n1 -> n1 [label=\"x\\ny\"];",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %s:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "\\x00") || strings.Contains(dot, "\\u") {
		t.Errorf("ToDOT() used Go escapes:\n%s", dot)
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		corrupt func(g *Graph, a, b *Node, e *Edge)
	}{
		{
			name:    "duplicate outgoing",
			corrupt: func(_ *Graph, a, _ *Node, e *Edge) { a.outgoing = append(a.outgoing, e) },
		},
		{
			name:    "missing incoming",
			corrupt: func(_ *Graph, _, b *Node, _ *Edge) { b.incoming = nil },
		},
		{
			name:    "edge not in graph",
			corrupt: func(g *Graph, _, _ *Node, e *Edge) { g.removeEdge(e) },
		},
		{
			name:    "endpoint not in graph",
			corrupt: func(g *Graph, _, b *Node, _ *Edge) { g.removeNode(b) },
		},
		{
			name:    "foreign edge in adjacency",
			corrupt: func(_ *Graph, a, b *Node, _ *Edge) { a.incoming = append(a.incoming, &Edge{source: b, destination: b}) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld(t)
			g := w.graph(t)
			a, b := w.node(t, g), w.node(t, g)
			e := w.edge(t, a, b)
			if err := Verify(g); err != nil {
				t.Fatalf("Verify before corruption: %v", err)
			}

			tt.corrupt(g, a, b, e)

			if err := Verify(g); !errs.Is(err, errs.ErrCodeInvariant) {
				t.Errorf("Verify() = %v, want INVARIANT_VIOLATION", err)
			}
		})
	}
}

func TestVerifyDeletedGraph(t *testing.T) {
	w := newWorld(t)
	g := w.graph(t)
	if err := w.sys.DeleteGraph(w.ctx, g); err != nil {
		t.Fatal(err)
	}
	if err := Verify(g); !errs.Is(err, errs.ErrCodeInvariant) {
		t.Errorf("Verify() = %v, want INVARIANT_VIOLATION", err)
	}
	if err := Verify(nil); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("Verify(nil) = %v, want INVALID_INPUT", err)
	}
}
