package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TraversalNodes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "branch",
		Subsystem: "tree",
		Name:      "traversal_nodes",
		Help:      "Number of branches returned by a subtree traversal, by store.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"store"})

	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "branch",
		Subsystem: "tree",
		Name:      "cache_requests_total",
		Help:      "Subtree cache lookups broken down by result (hit, miss, error).",
	}, []string{"result"})

	AssemblyAnomalies = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "branch",
		Subsystem: "tree",
		Name:      "assembly_anomalies_total",
		Help:      "Data-integrity anomalies found while assembling trees.",
	}, []string{"kind"})

	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "branch",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of branch API requests broken down by route and status class.",
	}, []string{"route", "status"})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "branch",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for branch API requests.",
		Buckets: []float64{
			0.001, 0.002, 0.005,
			0.01, 0.02, 0.05,
			0.1, 0.2, 0.5,
			1, 2, 5, 10,
		},
	}, []string{"route", "status"})

	ImportedBranches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "branch",
		Subsystem: "import",
		Name:      "messages_total",
		Help:      "Branch import messages broken down by outcome.",
	}, []string{"outcome"})
)

const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)
