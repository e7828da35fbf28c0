// Package api exposes the graph engine over HTTP.
//
// # Routes
//
//	POST   /graphs                  create a graph, returns {"id"}
//	GET    /graphs/{id}             graph JSON (nodes and edges sorted by entity)
//	DELETE /graphs/{id}             delete a graph and everything in it
//	GET    /graphs/{id}/gml         GML export
//	GET    /graphs/{id}/dot         Graphviz DOT export
//	GET    /graphs/{id}/svg         rendered SVG, cached by DOT source
//	GET    /graphs/{id}/verify      structural invariant check
//	POST   /graphs/{id}/nodes       create a node, body {"name"}
//	GET    /nodes/{id}              node JSON with connection summaries
//	DELETE /nodes/{id}              delete a node and its edges
//	POST   /edges                   create an edge, body {"source","destination","name"}
//	GET    /edges/{id}              edge JSON
//	DELETE /edges/{id}              delete an edge
//	GET    /healthz                 liveness
//	GET    /metrics                 Prometheus metrics, when enabled
//
// Every request runs in its own engine scope, so a request produces exactly
// one event batch. Errors are rendered as {"code","error"} with a status
// derived from the error code.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/ecsgraph/pkg/cache"
	"github.com/matzehuels/ecsgraph/pkg/graph"
)

// Server serves the engine API. Create one with [New].
type Server struct {
	sys     *graph.System
	logger  *log.Logger
	cache   cache.Cache
	keyer   cache.Keyer
	ttl     time.Duration
	metrics http.Handler
	render  func(ctx context.Context, dot string) ([]byte, error)
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger. Defaults to the system's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCache stores rendered SVGs in c for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Server) {
		if c != nil {
			s.cache = c
		}
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithKeyer overrides the artifact key derivation.
func WithKeyer(k cache.Keyer) Option {
	return func(s *Server) {
		if k != nil {
			s.keyer = k
		}
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// New returns a server for sys. Without [WithCache], SVGs are rendered on
// every request.
func New(sys *graph.System, opts ...Option) *Server {
	s := &Server{
		sys:    sys,
		logger: sys.Controller().Logger(),
		cache:  cache.NewNullCache(),
		keyer:  cache.NewDefaultKeyer(),
		ttl:    cache.DefaultTTL,
		render: graph.RenderSVG,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/graphs", func(r chi.Router) {
		r.Post("/", s.createGraph)
		r.Route("/{graphID}", func(r chi.Router) {
			r.Get("/", s.getGraph)
			r.Delete("/", s.deleteGraph)
			r.Get("/gml", s.graphGML)
			r.Get("/dot", s.graphDOT)
			r.Get("/svg", s.graphSVG)
			r.Get("/verify", s.verifyGraph)
			r.Post("/nodes", s.createNode)
		})
	})

	r.Get("/nodes/{nodeID}", s.getNode)
	r.Delete("/nodes/{nodeID}", s.deleteNode)

	r.Post("/edges", s.createEdge)
	r.Get("/edges/{edgeID}", s.getEdge)
	r.Delete("/edges/{edgeID}", s.deleteEdge)

	return r
}

// ListenAndServe serves the API on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
