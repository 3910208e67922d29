package build

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// repositoriesProcessed counts processed repositories by result.
	repositoriesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "repominer_repositories_processed_total",
		Help: "Repositories processed by result",
	}, []string{"result"})

	// buildDuration tracks full build latency.
	buildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "repominer_build_duration_seconds",
		Help:    "Build duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	graphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repominer_graph_nodes",
		Help: "Nodes in the graph after the last build",
	})

	graphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "repominer_graph_edges",
		Help: "Edges in the graph after the last build",
	})

	// referencesFound counts reference edges discovered by scans.
	referencesFound = promauto.NewCounter(prometheus.CounterOpts{
		Name: "repominer_references_found_total",
		Help: "Import references found while scanning",
	})
)
