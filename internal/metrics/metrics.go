// Package metrics holds the process's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "notion_architect"

var (
	// Attempts counts generation attempts by outcome
	// (ok, malformed, invalid, stream_error, cancelled).
	Attempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_attempts_total",
		Help:      "Generation attempts by outcome.",
	}, []string{"outcome"})

	// Runs counts finished generation runs by final state.
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_runs_total",
		Help:      "Generation runs by final state.",
	}, []string{"state"})

	// RemoteCalls counts Notion API calls by operation and status code.
	RemoteCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "remote_calls_total",
		Help:      "Notion API calls by operation and HTTP status.",
	}, []string{"op", "status"})

	RemoteLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_call_seconds",
		Help:      "Notion API call latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// NodesCreated counts remote nodes created by materialization.
	NodesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "nodes_created_total",
		Help:      "Remote nodes created while materializing documents.",
	})

	ExamplesIndexed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "examples_indexed_total",
		Help:      "Few-shot examples stored and indexed.",
	})
)

// Registry holds every collector of this package.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(Attempts, Runs, RemoteCalls, RemoteLatency, NodesCreated, ExamplesIndexed)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
