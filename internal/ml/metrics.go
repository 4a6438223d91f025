// Package ml provides Prometheus metrics for model-service calls.
package ml

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MLPredictionsTotal tracks scored rows
	MLPredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keiba_edge",
			Name:      "ml_predictions_total",
			Help:      "Total number of rows scored by the model service",
		},
		[]string{"model_version", "status"},
	)

	// MLPredictionLatency tracks full-table scoring latency
	MLPredictionLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "keiba_edge",
			Name:      "ml_prediction_latency_seconds",
			Help:      "Model service scoring latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"model_version"},
	)

	// MLCacheHitRatio tracks cache hit ratio
	MLCacheHitRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "keiba_edge",
			Name:      "ml_cache_hit_ratio",
			Help:      "Prediction cache hit ratio",
		},
	)

	// MLServiceErrorsTotal tracks model service errors
	MLServiceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "keiba_edge",
			Name:      "ml_service_errors_total",
			Help:      "Total number of model service errors",
		},
		[]string{"path", "error_type"},
	)
)
