package graph

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/ecsgraph/pkg/ecs"
	errs "github.com/matzehuels/ecsgraph/pkg/errors"
	"github.com/matzehuels/ecsgraph/pkg/observability"
)

// Operation names reported to [observability.EngineHooks].
const (
	OpCreateGraph = "create_graph"
	OpDeleteGraph = "delete_graph"
	OpCreateNode  = "create_node"
	OpDeleteNode  = "delete_node"
	OpCreateEdge  = "create_edge"
	OpDeleteEdge  = "delete_edge"
)

// System is the only writer of [Graph], [Node] and [Edge] state. Every
// operation runs in a scope of the controller: the one carried by ctx if
// present, otherwise a fresh one committed before the operation returns.
//
// System is safe for concurrent use.
type System struct {
	ctrl   *ecs.Controller
	graphs *ecs.Mapper[*Graph]
	nodes  *ecs.Mapper[*Node]
	edges  *ecs.Mapper[*Edge]
	logger *log.Logger
}

// NewSystem creates the three component stores on ctrl. A nil logger falls
// back to the controller's.
func NewSystem(ctrl *ecs.Controller, logger *log.Logger) *System {
	if logger == nil {
		logger = ctrl.Logger()
	}
	return &System{
		ctrl:   ctrl,
		graphs: ecs.NewMapper[*Graph](ctrl, KindGraph),
		nodes:  ecs.NewMapper[*Node](ctrl, KindNode),
		edges:  ecs.NewMapper[*Edge](ctrl, KindEdge),
		logger: logger,
	}
}

// Controller returns the controller the stores live on.
func (s *System) Controller() *ecs.Controller { return s.ctrl }

// Graph resolves the graph attached to e.
func (s *System) Graph(e ecs.Entity) (*Graph, error) { return s.graphs.Get(e) }

// Node resolves the node attached to e.
func (s *System) Node(e ecs.Entity) (*Node, error) { return s.nodes.Get(e) }

// Edge resolves the edge attached to e.
func (s *System) Edge(e ecs.Entity) (*Edge, error) { return s.edges.Get(e) }

// =============================================================================
// Graph operations
// =============================================================================

// CreateGraph attaches a new empty graph.
func (s *System) CreateGraph(ctx context.Context, opts ...Option) (g *Graph, err error) {
	done := s.track(ctx, OpCreateGraph)
	defer func() { done(err) }()

	o := applyOptions(opts)
	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()

	id := s.entity(o)
	g = newGraph()
	if err = s.graphs.Attach(ctx, id, g); err != nil {
		return nil, err
	}

	s.logger.Debug("graph created", "graph", id, "scope", sc.ID())
	return g, nil
}

// DeleteGraph deletes every edge of g, then every node, then g itself.
func (s *System) DeleteGraph(ctx context.Context, g *Graph) (err error) {
	done := s.track(ctx, OpDeleteGraph)
	defer func() { done(err) }()

	if g == nil {
		return errs.New(errs.ErrCodeInvalidInput, "graph is nil")
	}
	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()
	return s.deleteGraph(ctx, g)
}

// DeleteGraphEntity resolves the graph attached to id and deletes it.
func (s *System) DeleteGraphEntity(ctx context.Context, id ecs.Entity) (err error) {
	done := s.track(ctx, OpDeleteGraph)
	defer func() { done(err) }()

	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()

	g, err := s.graphs.Get(id)
	if err != nil {
		return err
	}
	return s.deleteGraph(ctx, g)
}

func (s *System) deleteGraph(ctx context.Context, g *Graph) error {
	if err := s.graphs.AcquireReadLock(ctx, g); err != nil {
		return err
	}

	edges := g.Edges()
	for _, e := range edges {
		if err := s.deleteEdge(ctx, e); err != nil {
			return err
		}
	}

	nodes := g.Nodes()
	for _, n := range nodes {
		if err := s.nodes.Detach(ctx, n); err != nil {
			return err
		}
		if err := s.graphs.Update(ctx, g, func() { g.removeNode(n) }); err != nil {
			return err
		}
	}

	if err := s.graphs.Detach(ctx, g); err != nil {
		return err
	}

	s.logger.Debug("graph deleted",
		"graph", g.Entity(),
		"nodes", len(nodes),
		"edges", len(edges),
		"scope", s.scopeID(ctx))
	return nil
}

// =============================================================================
// Node operations
// =============================================================================

// CreateNode adds a new node to g. The graph's node set is updated before
// the node is attached.
func (s *System) CreateNode(ctx context.Context, g *Graph, opts ...Option) (n *Node, err error) {
	done := s.track(ctx, OpCreateNode)
	defer func() { done(err) }()

	if g == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "graph is nil")
	}
	o := applyOptions(opts)

	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()

	id := s.entity(o)
	if o.hasEntity && s.nodes.Has(id) {
		return nil, errs.New(errs.ErrCodeDuplicateAttach, "entity %d already carries a %s", id, KindNode)
	}

	n = &Node{graph: g, name: o.name}
	if err = s.graphs.Update(ctx, g, func() { g.addNode(n) }); err != nil {
		return nil, err
	}
	if err = s.nodes.Attach(ctx, id, n); err != nil {
		return nil, err
	}

	s.logger.Debug("node created", "node", id, "graph", g.Entity(), "scope", sc.ID())
	return n, nil
}

// DeleteNode removes n from its graph, deletes its outgoing then incoming
// edges and detaches it.
func (s *System) DeleteNode(ctx context.Context, n *Node) (err error) {
	done := s.track(ctx, OpDeleteNode)
	defer func() { done(err) }()

	if n == nil {
		return errs.New(errs.ErrCodeInvalidInput, "node is nil")
	}
	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()
	return s.deleteNode(ctx, n)
}

// DeleteNodeEntity resolves the node attached to id and deletes it.
func (s *System) DeleteNodeEntity(ctx context.Context, id ecs.Entity) (err error) {
	done := s.track(ctx, OpDeleteNode)
	defer func() { done(err) }()

	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()

	n, err := s.nodes.Get(id)
	if err != nil {
		return err
	}
	return s.deleteNode(ctx, n)
}

func (s *System) deleteNode(ctx context.Context, n *Node) error {
	if err := s.nodes.AcquireReadLock(ctx, n); err != nil {
		return err
	}

	g := n.graph
	if err := s.graphs.Update(ctx, g, func() { g.removeNode(n) }); err != nil {
		return err
	}

	outgoing, incoming := n.Outgoing(), n.Incoming()
	for _, e := range outgoing {
		if err := s.deleteEdge(ctx, e); err != nil {
			return err
		}
	}
	for _, e := range incoming {
		// Self-loops were already deleted with the outgoing list.
		if e.source == n {
			continue
		}
		if err := s.deleteEdge(ctx, e); err != nil {
			return err
		}
	}

	if err := s.nodes.Detach(ctx, n); err != nil {
		return err
	}

	s.logger.Debug("node deleted",
		"node", n.Entity(),
		"graph", g.Entity(),
		"edges", len(outgoing)+len(incoming),
		"scope", s.scopeID(ctx))
	return nil
}

// =============================================================================
// Edge operations
// =============================================================================

// CreateEdge links src to dst. Both nodes must be attached and belong to the
// same graph; otherwise nothing is created and the error carries
// NOT_ATTACHED or CROSS_GRAPH.
func (s *System) CreateEdge(ctx context.Context, src, dst *Node, opts ...Option) (e *Edge, err error) {
	done := s.track(ctx, OpCreateEdge)
	defer func() { done(err) }()

	if src == nil || dst == nil {
		return nil, errs.New(errs.ErrCodeInvalidInput, "edge endpoints must not be nil")
	}
	if src.graph != dst.graph {
		return nil, errs.New(errs.ErrCodeCrossGraph,
			"cannot link %s of graph %d to %s of graph %d", src, src.graph.Entity(), dst, dst.graph.Entity())
	}
	if !src.Attached() || !dst.Attached() {
		return nil, errs.New(errs.ErrCodeNotAttached, "cannot link deleted node")
	}
	o := applyOptions(opts)

	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()

	id := s.entity(o)
	e = &Edge{source: src, destination: dst, name: o.name}
	if err = s.edges.Attach(ctx, id, e); err != nil {
		return nil, err
	}
	if err = s.linkEdge(ctx, e); err != nil {
		s.unlinkEdge(ctx, e)
		return nil, err
	}

	g := src.graph
	s.logger.Debug("edge created",
		"edge", id,
		"source", src.Entity(),
		"destination", dst.Entity(),
		"graph", g.Entity(),
		"scope", sc.ID())
	return e, nil
}

// linkEdge adds an attached edge to its graph and both endpoints. The source
// lock may block, so both endpoints are checked again once it is held.
func (s *System) linkEdge(ctx context.Context, e *Edge) error {
	src, dst := e.source, e.destination
	if err := s.nodes.AcquireReadLock(ctx, src); err != nil {
		return err
	}
	if !dst.Attached() {
		return errs.New(errs.ErrCodeNotAttached, "cannot link deleted node %s", dst)
	}

	g := src.graph
	if err := s.graphs.Update(ctx, g, func() { g.addEdge(e) }); err != nil {
		return err
	}
	if err := s.nodes.Update(ctx, src, func() { src.addOutgoing(e) }); err != nil {
		return err
	}
	return s.nodes.Update(ctx, dst, func() { dst.addIncoming(e) })
}

// unlinkEdge undoes whatever part of linkEdge was applied and detaches e.
// Holders that were detached in the meantime are skipped.
func (s *System) unlinkEdge(ctx context.Context, e *Edge) {
	src, dst := e.source, e.destination
	g := src.graph

	_ = s.edges.Detach(ctx, e)
	if g.HasEdge(e) {
		_ = s.graphs.Update(ctx, g, func() { g.removeEdge(e) })
	}
	if slices.Contains(src.Outgoing(), e) {
		_ = s.nodes.Update(ctx, src, func() { src.removeOutgoing(e) })
	}
	if slices.Contains(dst.Incoming(), e) {
		_ = s.nodes.Update(ctx, dst, func() { dst.removeIncoming(e) })
	}
}

// DeleteEdge detaches e and removes it from its graph and both endpoints.
func (s *System) DeleteEdge(ctx context.Context, e *Edge) (err error) {
	done := s.track(ctx, OpDeleteEdge)
	defer func() { done(err) }()

	if e == nil {
		return errs.New(errs.ErrCodeInvalidInput, "edge is nil")
	}
	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()
	return s.deleteEdge(ctx, e)
}

// DeleteEdgeEntity resolves the edge attached to id and deletes it.
func (s *System) DeleteEdgeEntity(ctx context.Context, id ecs.Entity) (err error) {
	done := s.track(ctx, OpDeleteEdge)
	defer func() { done(err) }()

	ctx, sc := s.ctrl.Begin(ctx)
	defer sc.Close()

	e, err := s.edges.Get(id)
	if err != nil {
		return err
	}
	return s.deleteEdge(ctx, e)
}

// deleteEdge detaches e before touching the collections so that e is never
// observed as live while the removals are pending.
func (s *System) deleteEdge(ctx context.Context, e *Edge) error {
	if err := s.edges.AcquireReadLock(ctx, e); err != nil {
		return err
	}
	src, dst := e.source, e.destination
	if err := s.nodes.AcquireReadLock(ctx, src); err != nil {
		return err
	}

	g := src.graph
	if err := s.edges.Detach(ctx, e); err != nil {
		return err
	}
	if err := s.graphs.Update(ctx, g, func() { g.removeEdge(e) }); err != nil {
		return err
	}
	if err := s.nodes.Update(ctx, src, func() { src.removeOutgoing(e) }); err != nil {
		return err
	}
	if err := s.nodes.Update(ctx, dst, func() { dst.removeIncoming(e) }); err != nil {
		return err
	}

	s.logger.Debug("edge deleted",
		"edge", e.Entity(),
		"graph", g.Entity(),
		"scope", s.scopeID(ctx))
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *System) entity(o createOptions) ecs.Entity {
	if o.hasEntity {
		return o.entity
	}
	return s.ctrl.CreateEntity()
}

func (s *System) track(ctx context.Context, op string) func(error) {
	start := time.Now()
	hooks := observability.Engine()
	hooks.OnOperationStart(ctx, op)
	return func(err error) {
		hooks.OnOperationComplete(ctx, op, time.Since(start), err)
		if err != nil {
			s.logger.Debug("operation failed", "op", op, "code", errs.GetCode(err), "err", err)
		}
	}
}

func (s *System) scopeID(ctx context.Context) string {
	id, _ := s.ctrl.ScopeID(ctx)
	return id.String()
}
