package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/ecsgraph/pkg/buildinfo"
	"github.com/matzehuels/ecsgraph/pkg/ecs"
	errs "github.com/matzehuels/ecsgraph/pkg/errors"
	"github.com/matzehuels/ecsgraph/pkg/graph"
)

// maxBodyBytes bounds request bodies; node and edge payloads are tiny.
const maxBodyBytes = 1 << 20

type createNodeRequest struct {
	Name string `json:"name"`
}

type createEdgeRequest struct {
	Source      *ecs.Entity `json:"source"`
	Destination *ecs.Entity `json:"destination"`
	Name        string      `json:"name"`
}

type idResponse struct {
	ID ecs.Entity `json:"id"`
}

type errorResponse struct {
	Code  errs.Code `json:"code"`
	Error string    `json:"error"`
}

// =============================================================================
// Graphs
// =============================================================================

func (s *Server) createGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.sys.CreateGraph(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, idResponse{ID: g.ID()})
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGraph(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, graph.ViewGraph(g))
}

func (s *Server) deleteGraph(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entityParam(w, r, "graphID")
	if !ok {
		return
	}
	if err := s.sys.DeleteGraphEntity(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) graphGML(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGraph(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := graph.WriteGML(w, g); err != nil {
		s.logger.Warn("write gml", "graph", g.ID(), "err", err)
	}
}

func (s *Server) graphDOT(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGraph(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = io.WriteString(w, graph.ToDOT(g))
}

func (s *Server) graphSVG(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGraph(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	dot := graph.ToDOT(g)
	key := s.keyer.ArtifactKey("svg", []byte(dot))

	svg, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("artifact cache get", "key", key, "err", err)
	}
	if !hit {
		svg, err = s.render(ctx, dot)
		if err != nil {
			s.respondError(w, r, errs.Wrap(errs.ErrCodeInternal, err, "render graph %d", g.ID()))
			return
		}
		if err := s.cache.Set(ctx, key, svg, s.ttl); err != nil {
			s.logger.Warn("artifact cache set", "key", key, "err", err)
		}
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	if hit {
		w.Header().Set("X-Cache", "hit")
	} else {
		w.Header().Set("X-Cache", "miss")
	}
	_, _ = w.Write(svg)
}

func (s *Server) verifyGraph(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGraph(w, r)
	if !ok {
		return
	}
	if err := graph.Verify(g); err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// =============================================================================
// Nodes
// =============================================================================

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	g, ok := s.lookupGraph(w, r)
	if !ok {
		return
	}
	var req createNodeRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := errs.ValidateName(req.Name); err != nil {
		s.respondError(w, r, err)
		return
	}
	n, err := s.sys.CreateNode(r.Context(), g, graph.WithName(req.Name))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, graph.ViewNode(n))
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entityParam(w, r, "nodeID")
	if !ok {
		return
	}
	n, err := s.sys.Node(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, graph.ViewNode(n))
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entityParam(w, r, "nodeID")
	if !ok {
		return
	}
	if err := s.sys.DeleteNodeEntity(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Edges
// =============================================================================

func (s *Server) createEdge(w http.ResponseWriter, r *http.Request) {
	var req createEdgeRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if req.Source == nil || req.Destination == nil {
		s.respondError(w, r, errs.New(errs.ErrCodeInvalidInput, "source and destination are required"))
		return
	}
	if err := errs.ValidateName(req.Name); err != nil {
		s.respondError(w, r, err)
		return
	}

	src, err := s.sys.Node(*req.Source)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	dst, err := s.sys.Node(*req.Destination)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	e, err := s.sys.CreateEdge(r.Context(), src, dst, graph.WithName(req.Name))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, graph.ViewEdge(e))
}

func (s *Server) getEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entityParam(w, r, "edgeID")
	if !ok {
		return
	}
	e, err := s.sys.Edge(id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, graph.ViewEdge(e))
}

func (s *Server) deleteEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := s.entityParam(w, r, "edgeID")
	if !ok {
		return
	}
	if err := s.sys.DeleteEdgeEntity(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
		buildinfo.Info
	}{"ok", buildinfo.Current()})
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Server) entityParam(w http.ResponseWriter, r *http.Request, name string) (ecs.Entity, bool) {
	raw := chi.URLParam(r, name)
	id, err := ecs.ParseEntity(raw)
	if err != nil {
		s.respondError(w, r, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid id %q", raw))
		return 0, false
	}
	return id, true
}

func (s *Server) lookupGraph(w http.ResponseWriter, r *http.Request) (*graph.Graph, bool) {
	id, ok := s.entityParam(w, r, "graphID")
	if !ok {
		return nil, false
	}
	g, err := s.sys.Graph(id)
	if err != nil {
		s.respondError(w, r, err)
		return nil, false
	}
	return g, true
}

// decodeBody decodes a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	}
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	respondJSON(w, status, errorResponse{Code: code, Error: errs.UserMessage(err)})
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidFormat:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound:
		return http.StatusNotFound
	case errs.ErrCodeCrossGraph:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeNotAttached, errs.ErrCodeDuplicateAttach, errs.ErrCodeInvariant:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
