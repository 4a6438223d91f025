package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func valueOf(t *testing.T, m prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestMetricsRegistry(t *testing.T) {
	InitRegistry()
	registry := GetRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordPipelineRun(t *testing.T) {
	InitRegistry()
	before := valueOf(t, PipelineRunsTotal.WithLabelValues("labeled", "success"))

	RecordPipelineRun("labeled", "success")

	assert.Equal(t, before+1, valueOf(t, PipelineRunsTotal.WithLabelValues("labeled", "success")))
}

func TestRecordStage(t *testing.T) {
	InitRegistry()
	before := valueOf(t, PipelineRowsTotal.WithLabelValues("merge"))

	assert.NotPanics(t, func() {
		RecordStage("merge", 120, 0.25)
	})
	assert.Equal(t, before+120, valueOf(t, PipelineRowsTotal.WithLabelValues("merge")))
}

func TestRecordParseSkips(t *testing.T) {
	InitRegistry()
	before := valueOf(t, ParseSkippedTotal.WithLabelValues("payouts", "slot_mismatch"))

	RecordParseSkips("payouts", map[string]int{"slot_mismatch": 3, "no_winners": 1})

	assert.Equal(t, before+3, valueOf(t, ParseSkippedTotal.WithLabelValues("payouts", "slot_mismatch")))
}

func TestRecordCodecState(t *testing.T) {
	InitRegistry()

	RecordCodecState(7, map[string]int{"horse_id": 2})

	assert.Equal(t, float64(7), valueOf(t, CodecVersion))
}

func TestUpdateGainCurve(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name   string
		points int
		best   float64
	}{
		{name: "profitable", points: 40, best: 1.12},
		{name: "losing", points: 12, best: 0.78},
		{name: "empty", points: 0, best: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			UpdateGainCurve("place", "v1", tt.points, tt.best)
			assert.Equal(t, tt.best, valueOf(t, BestReturnRate.WithLabelValues("place", "v1")))
			assert.Equal(t, float64(tt.points), valueOf(t, GainCurvePoints.WithLabelValues("place")))
		})
	}
}

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	InitRegistry()
	RecordEvaluationRun("win_proper", "success", 1.5)
	UpdateFeatureColumns(88)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "keiba_edge_evaluation_runs_total"))
	assert.True(t, strings.Contains(body, "keiba_edge_feature_columns 88"))
}
