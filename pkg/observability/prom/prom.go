// Package prom implements the observability hooks with Prometheus metrics.
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/ecsgraph/pkg/observability"
)

// Metrics holds the collectors behind every hook interface.
type Metrics struct {
	// OperationsTotal counts engine operations by name and outcome.
	OperationsTotal *prometheus.CounterVec
	// OperationSeconds observes engine operation latency.
	OperationSeconds *prometheus.HistogramVec
	// CommitsTotal counts committed outermost scopes.
	CommitsTotal prometheus.Counter
	// CommitEvents observes the number of events per committed scope.
	CommitEvents prometheus.Histogram
	// LockWaitSeconds observes contended read-lock acquisitions.
	LockWaitSeconds *prometheus.HistogramVec
	// CacheTotal counts artifact cache lookups and writes.
	CacheTotal *prometheus.CounterVec
	// RequestsTotal counts HTTP API requests.
	RequestsTotal *prometheus.CounterVec
	// RequestSeconds observes HTTP API latency.
	RequestSeconds *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
// It panics if registration fails, like prometheus.MustRegister.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecsgraph_operations_total",
				Help: "Total number of graph engine operations",
			},
			[]string{"op", "result"},
		),
		OperationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ecsgraph_operation_seconds",
				Help:    "Latency of graph engine operations",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"op"},
		),
		CommitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ecsgraph_scope_commits_total",
				Help: "Total number of committed outermost scopes",
			},
		),
		CommitEvents: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ecsgraph_scope_commit_events",
				Help:    "Number of component events per committed scope",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		LockWaitSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ecsgraph_lock_wait_seconds",
				Help:    "Time spent waiting for contended read locks",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"component"},
		),
		CacheTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecsgraph_cache_total",
				Help: "Artifact cache operations",
			},
			[]string{"type", "result"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ecsgraph_http_requests_total",
				Help: "Total number of HTTP API requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ecsgraph_http_request_seconds",
				Help:    "Latency of HTTP API requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.OperationsTotal,
		m.OperationSeconds,
		m.CommitsTotal,
		m.CommitEvents,
		m.LockWaitSeconds,
		m.CacheTotal,
		m.RequestsTotal,
		m.RequestSeconds,
	)
	return m
}

// Install registers m for every hook category.
func (m *Metrics) Install() {
	observability.SetEngineHooks(m)
	observability.SetScopeHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

func (m *Metrics) OnOperationStart(context.Context, string) {}

func (m *Metrics) OnOperationComplete(_ context.Context, op string, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.OperationsTotal.WithLabelValues(op, result).Inc()
	m.OperationSeconds.WithLabelValues(op).Observe(d.Seconds())
}

func (m *Metrics) OnCommit(_ context.Context, _ string, events, _ int, _ time.Duration) {
	m.CommitsTotal.Inc()
	m.CommitEvents.Observe(float64(events))
}

func (m *Metrics) OnLockWait(_ context.Context, component string, wait time.Duration) {
	m.LockWaitSeconds.WithLabelValues(component).Observe(wait.Seconds())
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheTotal.WithLabelValues(keyType, "hit").Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheTotal.WithLabelValues(keyType, "miss").Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, _ int) {
	m.CacheTotal.WithLabelValues(keyType, "set").Inc()
}

func (m *Metrics) OnResponse(_ context.Context, method, route string, status int, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.EngineHooks = (*Metrics)(nil)
	_ observability.ScopeHooks  = (*Metrics)(nil)
	_ observability.CacheHooks  = (*Metrics)(nil)
	_ observability.HTTPHooks   = (*Metrics)(nil)
)
