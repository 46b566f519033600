// Package metrics exposes Prometheus collectors for the evaluation core:
// node computations, restarts, cache reuse, dirtiness checks, and completion
// events.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors for one evaluator instance. Registering the
// same instance on multiple registries is the caller's concern.
type Metrics struct {
	NodesComputed  *prometheus.CounterVec
	NodeRestarts   prometheus.Counter
	CacheHits      prometheus.Counter
	DirtyChecks    *prometheus.CounterVec
	Completions    *prometheus.CounterVec
	ArtifactsBuilt prometheus.Counter
}

// New creates and registers the collectors on the given registerer. Pass
// prometheus.NewRegistry() in tests to keep them isolated.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NodesComputed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buildgraph_nodes_computed_total",
			Help: "Node computations that ran to a final value, by node kind.",
		}, []string{"kind"}),
		NodeRestarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buildgraph_node_restarts_total",
			Help: "Computations restarted after discovering missing dependencies.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buildgraph_cache_hits_total",
			Help: "Dependency requests served from clean cached values.",
		}),
		DirtyChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buildgraph_dirty_checks_total",
			Help: "Dirtiness check outcomes, by result.",
		}, []string{"result"}),
		Completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "buildgraph_completions_total",
			Help: "Terminal completion events, by outcome.",
		}, []string{"outcome"}),
		ArtifactsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "buildgraph_artifacts_built_total",
			Help: "Artifacts reported by successful completions.",
		}),
	}
	reg.MustRegister(
		m.NodesComputed,
		m.NodeRestarts,
		m.CacheHits,
		m.DirtyChecks,
		m.Completions,
		m.ArtifactsBuilt,
	)
	return m
}

// NewUnregistered creates the collectors without registering them, for
// callers that do not scrape.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
