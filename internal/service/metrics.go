package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Airflow and import metrics, registered with the default registry
var (
	computationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ductflow_airflow_computations_total",
		Help: "Airflow computations by outcome",
	}, []string{"status"})

	computationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ductflow_airflow_computation_duration_seconds",
		Help:    "Time to traverse a network and sum terminal airflow",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	})

	nodesExpanded = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ductflow_airflow_nodes_expanded",
		Help:    "Pass-through nodes expanded per computation",
		Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
	})

	importsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ductflow_network_imports_total",
		Help: "Network document imports by outcome",
	}, []string{"status"})

	snapshotCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ductflow_snapshot_cache_hits_total",
		Help: "Network snapshot lookups served from cache",
	})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ductflow_events_dropped_total",
		Help: "Events skipped because a subscriber was not ready",
	})
)

const (
	statusOK    = "ok"
	statusError = "error"
)
