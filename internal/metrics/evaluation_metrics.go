package metrics

import "github.com/prometheus/client_golang/prometheus"

// Evaluation counter vectors
var (
	EvaluationRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "evaluation_runs_total",
		Help:      "Total number of gain-curve evaluations by bet type and status",
	}, []string{"kind", "status"})
)

// Evaluation histogram vectors
var (
	EvaluationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "evaluation_duration_seconds",
		Help:      "Duration of gain-curve evaluations in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"kind"})
)

// Evaluation gauge vectors
var (
	BestReturnRate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "best_return_rate",
		Help:      "Best return rate on the latest gain curve by bet type and model version",
	}, []string{"kind", "model_version"})
	GainCurvePoints = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gain_curve_points",
		Help:      "Number of points on the latest gain curve by bet type",
	}, []string{"kind"})
	EvaluationAUC = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "evaluation_auc",
		Help:      "ROC AUC of the latest scored test partition by model version",
	}, []string{"model_version"})
)

// RecordEvaluationRun records an evaluation event.
// status should be one of: "success", "failure", "empty"
func RecordEvaluationRun(kind, status string, durationSeconds float64) {
	EvaluationRunsTotal.WithLabelValues(kind, status).Inc()
	EvaluationDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// UpdateGainCurve records the size and best return rate of a gain curve.
func UpdateGainCurve(kind, modelVersion string, points int, bestReturnRate float64) {
	GainCurvePoints.WithLabelValues(kind).Set(float64(points))
	BestReturnRate.WithLabelValues(kind, modelVersion).Set(bestReturnRate)
}

// UpdateAUC records the AUC of a scored partition.
func UpdateAUC(modelVersion string, auc float64) {
	EvaluationAUC.WithLabelValues(modelVersion).Set(auc)
}
