package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/ecsgraph/pkg/cache"
	"github.com/matzehuels/ecsgraph/pkg/ecs"
	errs "github.com/matzehuels/ecsgraph/pkg/errors"
	"github.com/matzehuels/ecsgraph/pkg/graph"
	"github.com/matzehuels/ecsgraph/pkg/observability"
)

type testServer struct {
	*httptest.Server
	sys     *graph.System
	counter *ecs.EventCounter
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()
	ctrl := ecs.NewController()
	counter := ecs.NewEventCounter()
	ctrl.Subscribe(counter)
	sys := graph.NewSystem(ctrl, nil)

	opts = append([]Option{WithLogger(log.New(&bytes.Buffer{}))}, opts...)
	srv := New(sys, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, sys: sys, counter: counter}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, rdr)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestGraphLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/graphs", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	gid := decode[idResponse](t, resp).ID
	require.Equal(t, ecs.Entity(0), gid)

	resp = ts.do(t, http.MethodPost, "/graphs/0/nodes", map[string]string{"name": "a"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	a := decode[graph.NodeView](t, resp)
	require.Equal(t, "a", a.Name)

	resp = ts.do(t, http.MethodPost, "/graphs/0/nodes", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	b := decode[graph.NodeView](t, resp)

	resp = ts.do(t, http.MethodPost, "/edges", map[string]any{"source": a.ID, "destination": b.ID, "name": "link"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	e := decode[graph.EdgeView](t, resp)
	require.Equal(t, graph.EdgeView{ID: 3, Name: "link", Source: a.ID, Destination: b.ID}, e)

	resp = ts.do(t, http.MethodGet, "/nodes/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	nv := decode[graph.NodeView](t, resp)
	require.Equal(t, []string{"To Node 2: 1 connection"}, nv.OutgoingConnections)

	resp = ts.do(t, http.MethodGet, "/graphs/0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gv := decode[graph.GraphView](t, resp)
	require.Len(t, gv.Nodes, 2)
	require.Len(t, gv.Edges, 1)

	resp = ts.do(t, http.MethodGet, "/graphs/0/verify", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/graphs/0", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Equal(t, ecs.Counts{Created: 1, Updated: 6, Deleted: 1}, ts.counter.Counts(graph.KindGraph))
	require.Equal(t, ecs.Counts{Created: 2, Updated: 4, Deleted: 2}, ts.counter.Counts(graph.KindNode))
	require.Equal(t, ecs.Counts{Created: 1, Updated: 0, Deleted: 1}, ts.counter.Counts(graph.KindEdge))

	resp = ts.do(t, http.MethodGet, "/graphs/0", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteNodeAndEdge(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	g, err := ts.sys.CreateGraph(ctx)
	require.NoError(t, err)
	a, err := ts.sys.CreateNode(ctx, g)
	require.NoError(t, err)
	b, err := ts.sys.CreateNode(ctx, g)
	require.NoError(t, err)
	e1, err := ts.sys.CreateEdge(ctx, a, b)
	require.NoError(t, err)
	_, err = ts.sys.CreateEdge(ctx, b, a)
	require.NoError(t, err)

	resp := ts.do(t, http.MethodDelete, "/edges/"+e1.ID().String(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, 1, g.NumEdges())

	resp = ts.do(t, http.MethodGet, "/edges/"+e1.ID().String(), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/nodes/"+a.ID().String(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, 1, g.NumNodes())
	require.Zero(t, g.NumEdges())
	require.NoError(t, graph.Verify(g))
}

func TestErrorStatus(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	g1, err := ts.sys.CreateGraph(ctx)
	require.NoError(t, err)
	g2, err := ts.sys.CreateGraph(ctx)
	require.NoError(t, err)
	a, err := ts.sys.CreateNode(ctx, g1)
	require.NoError(t, err)
	b, err := ts.sys.CreateNode(ctx, g2)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   errs.Code
	}{
		{"bad id", http.MethodGet, "/nodes/abc", nil, http.StatusBadRequest, errs.ErrCodeInvalidInput},
		{"unknown graph", http.MethodGet, "/graphs/99", nil, http.StatusNotFound, errs.ErrCodeNotFound},
		{"unknown edge", http.MethodDelete, "/edges/99", nil, http.StatusNotFound, errs.ErrCodeNotFound},
		{"cross graph", http.MethodPost, "/edges", map[string]any{"source": a.ID(), "destination": b.ID()}, http.StatusUnprocessableEntity, errs.ErrCodeCrossGraph},
		{"missing endpoint", http.MethodPost, "/edges", map[string]any{"source": a.ID()}, http.StatusBadRequest, errs.ErrCodeInvalidInput},
		{"unknown field", http.MethodPost, "/graphs/0/nodes", map[string]any{"label": "x"}, http.StatusBadRequest, errs.ErrCodeInvalidInput},
		{"bad name", http.MethodPost, "/graphs/0/nodes", map[string]any{"name": "bad\x07"}, http.StatusBadRequest, errs.ErrCodeInvalidInput},
		{"bad edge name", http.MethodPost, "/edges", map[string]any{"source": a.ID(), "destination": a.ID(), "name": "x\ny"}, http.StatusBadRequest, errs.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode)
			body := decode[errorResponse](t, resp)
			require.Equal(t, tt.code, body.Code)
			require.NotEmpty(t, body.Error)
		})
	}
}

func TestExports(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	g, err := ts.sys.CreateGraph(ctx)
	require.NoError(t, err)
	a, err := ts.sys.CreateNode(ctx, g, graph.WithName("a"))
	require.NoError(t, err)
	b, err := ts.sys.CreateNode(ctx, g)
	require.NoError(t, err)
	_, err = ts.sys.CreateEdge(ctx, a, b)
	require.NoError(t, err)

	resp := ts.do(t, http.MethodGet, "/graphs/0/gml", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(buf.String(), "graph [\n\tdirected 1\n\tid 0\n"))
	require.Contains(t, buf.String(), "\t\t source 1\n\t\t target 2\n")

	resp = ts.do(t, http.MethodGet, "/graphs/0/dot", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	buf.Reset()
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	require.Equal(t, graph.ToDOT(g), buf.String())
}

func TestSVGCached(t *testing.T) {
	dir := t.TempDir()
	fc, err := cache.NewFileCache(dir)
	require.NoError(t, err)

	var renders atomic.Int32
	ts := newTestServer(t, WithCache(fc, time.Hour), withRenderer(func(_ context.Context, dot string) ([]byte, error) {
		renders.Add(1)
		return []byte("<svg><!-- " + dot + " --></svg>"), nil
	}))

	_, err = ts.sys.CreateGraph(context.Background())
	require.NoError(t, err)

	resp := ts.do(t, http.MethodGet, "/graphs/0/svg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/svg+xml", resp.Header.Get("Content-Type"))
	require.Equal(t, "miss", resp.Header.Get("X-Cache"))

	resp = ts.do(t, http.MethodGet, "/graphs/0/svg", nil)
	require.Equal(t, "hit", resp.Header.Get("X-Cache"))
	require.Equal(t, int32(1), renders.Load())
}

func withRenderer(fn func(context.Context, string) ([]byte, error)) Option {
	return func(s *Server) { s.render = fn }
}

type httpRecorder struct {
	observability.NoopHTTPHooks
	routes atomic.Value
}

func (h *httpRecorder) OnResponse(_ context.Context, method, route string, status int, _ time.Duration) {
	h.routes.Store(method + " " + route + " " + http.StatusText(status))
}

func TestMetricsAndHooks(t *testing.T) {
	rec := &httpRecorder{}
	observability.SetHTTPHooks(rec)
	t.Cleanup(observability.Reset)

	reg := prometheus.NewRegistry()
	ts := newTestServer(t, WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	resp := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/nodes/7", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "GET /nodes/{nodeID} Not Found", rec.routes.Load())

	resp = ts.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	health := decode[map[string]string](t, resp)
	require.Equal(t, "ok", health["status"])
	require.Equal(t, "dev", health["version"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errs.New(errs.ErrCodeNotFound, "x"), http.StatusNotFound},
		{errs.New(errs.ErrCodeCrossGraph, "x"), http.StatusUnprocessableEntity},
		{errs.New(errs.ErrCodeInvalidInput, "x"), http.StatusBadRequest},
		{errs.New(errs.ErrCodeNotAttached, "x"), http.StatusConflict},
		{errs.New(errs.ErrCodeNoScope, "x"), http.StatusInternalServerError},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
