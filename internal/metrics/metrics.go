// Package metrics provides the centralized Prometheus metrics registry for keiba-edge.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "keiba_edge"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_runs_total",
		Help:      "Total number of feature pipeline runs by mode and status",
	}, []string{"mode", "status"})
	PipelineRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pipeline_rows_total",
		Help:      "Total number of rows leaving each pipeline stage",
	}, []string{"stage"})
	ParseSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parse_skipped_total",
		Help:      "Total number of raw records dropped during parsing by source and code",
	}, []string{"source", "code"})
	MissingPedigreeTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "missing_pedigree_total",
		Help:      "Total number of horses without a pedigree record",
	})
	NewCategoryCodesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "new_category_codes_total",
		Help:      "Total number of category codes assigned by field",
	}, []string{"field"})
)

// Gauge metrics
var (
	CodecVersion = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "codec_version",
		Help:      "Version of the most recently produced codec state",
	})
	FeatureColumns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "feature_columns",
		Help:      "Number of columns in the most recently built feature table",
	})
)

// Histogram metrics
var (
	PipelineStageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pipeline_stage_duration_seconds",
		Help:      "Duration of feature pipeline stages in seconds",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
	}, []string{"stage"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register pipeline metrics
		registry.MustRegister(PipelineRunsTotal)
		registry.MustRegister(PipelineRowsTotal)
		registry.MustRegister(ParseSkippedTotal)
		registry.MustRegister(MissingPedigreeTotal)
		registry.MustRegister(NewCategoryCodesTotal)
		registry.MustRegister(CodecVersion)
		registry.MustRegister(FeatureColumns)
		registry.MustRegister(PipelineStageDuration)

		// Register evaluation metrics
		registry.MustRegister(EvaluationRunsTotal)
		registry.MustRegister(EvaluationDuration)
		registry.MustRegister(BestReturnRate)
		registry.MustRegister(GainCurvePoints)
		registry.MustRegister(EvaluationAUC)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler. Metrics registered with the
// default registry, such as the model-service client's, are served as well.
func Handler() http.Handler {
	gatherers := prometheus.Gatherers{GetRegistry(), prometheus.DefaultGatherer}
	return promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{})
}

// RecordPipelineRun records a finished pipeline run.
// status should be one of: "success", "failure"
func RecordPipelineRun(mode, status string) {
	PipelineRunsTotal.WithLabelValues(mode, status).Inc()
}

// RecordStage records the output size and duration of a pipeline stage.
func RecordStage(stage string, rowsOut int, durationSeconds float64) {
	PipelineRowsTotal.WithLabelValues(stage).Add(float64(rowsOut))
	PipelineStageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordParseSkips records dropped raw records grouped by error code.
func RecordParseSkips(source string, countsByCode map[string]int) {
	for code, n := range countsByCode {
		ParseSkippedTotal.WithLabelValues(source, code).Add(float64(n))
	}
}

// RecordMissingPedigree records horses without a pedigree.
func RecordMissingPedigree(count int) {
	MissingPedigreeTotal.Add(float64(count))
}

// RecordCodecState records the version and code growth of a codec state.
func RecordCodecState(version int, newCodes map[string]int) {
	CodecVersion.Set(float64(version))
	for field, n := range newCodes {
		NewCategoryCodesTotal.WithLabelValues(field).Add(float64(n))
	}
}

// UpdateFeatureColumns updates the feature column gauge.
func UpdateFeatureColumns(count int) {
	FeatureColumns.Set(float64(count))
}
