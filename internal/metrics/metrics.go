// Package metrics declares the Prometheus collectors of the gas estimator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Estimator metrics
var (
	EstimationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gasest_estimation_duration_seconds",
			Help:    "Wall time of estimator operations",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	BytecodeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasest_bytecode_cache_lookups_total",
			Help: "Bytecode analysis cache lookups by result",
		},
		[]string{"result"},
	)

	SlowOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasest_slow_operations_total",
			Help: "Estimator operations that exceeded the slow threshold",
		},
		[]string{"operation"},
	)
)

// Oracle metrics
var (
	GasPriceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasest_gas_price_fetches_total",
			Help: "Gas price fetch attempts by network, source and outcome",
		},
		[]string{"network", "source", "outcome"},
	)

	GasPriceCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasest_gas_price_cache_lookups_total",
			Help: "Gas price cache lookups by network and result",
		},
		[]string{"network", "result"},
	)

	OracleRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasest_oracle_retries_total",
			Help: "Rate-limited oracle requests that were retried",
		},
		[]string{"network"},
	)
)

// Simulation and report metrics
var (
	Simulations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasest_simulations_total",
			Help: "Deployment simulations by network and outcome",
		},
		[]string{"network", "outcome"},
	)

	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gasest_reports_generated_total",
			Help: "Optimization reports generated by network",
		},
		[]string{"network"},
	)

	OptimizationScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gasest_optimization_score",
			Help:    "Distribution of optimization scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

// Cache lookup results
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
