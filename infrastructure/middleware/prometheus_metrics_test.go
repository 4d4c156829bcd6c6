package middleware

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*PrometheusMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewPrometheusMetrics(reg), reg
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	tests := []struct {
		name    string
		metric  string
		labels  map[string]string
		counter func(pm *PrometheusMetrics) prometheus.Collector
	}{
		{
			name:   "llm requests",
			metric: "llm_requests_total",
			labels: map[string]string{"provider": "openai", "model": "gpt-4o-mini", "status": "success"},
			counter: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.llmRequests.WithLabelValues("openai", "gpt-4o-mini", "success")
			},
		},
		{
			name:   "llm tokens",
			metric: "llm_tokens_total",
			labels: map[string]string{"provider": "google", "model": "gemini", "token_type": "input"},
			counter: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.llmTokens.WithLabelValues("google", "gemini", "input")
			},
		},
		{
			name:   "chatbot requests",
			metric: "chatbot_requests_total",
			labels: map[string]string{"chatbot_type": "api", "status": "timeout"},
			counter: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.chatbotRequests.WithLabelValues("api", "timeout")
			},
		},
		{
			name:   "records evaluated with missing label",
			metric: "records_evaluated_total",
			labels: map[string]string{},
			counter: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.recordsEvaluated.WithLabelValues("unknown")
			},
		},
		{
			name:   "unknown metric falls back to operations",
			metric: "cache_hits",
			labels: nil,
			counter: func(pm *PrometheusMetrics) prometheus.Collector {
				return pm.operationCounter.WithLabelValues("cache_hits", "success")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, _ := newTestMetrics(t)
			pm.RecordCounter(tt.metric, 2, tt.labels)
			pm.RecordCounter(tt.metric, 3, tt.labels)
			assert.Equal(t, 5.0, testutil.ToFloat64(tt.counter(pm)))
		})
	}
}

func TestPrometheusMetrics_HistogramsAndGauges(t *testing.T) {
	pm, reg := newTestMetrics(t)

	pm.RecordLatency("chatbot_response", 120*time.Millisecond, map[string]string{"status": "success"})
	pm.RecordHistogram("score", 0.42, map[string]string{"scorer": "bert_f1"})
	pm.RecordHistogram("score", 0.9, map[string]string{"scorer": "bert_f1"})
	pm.RecordHistogram("scorer_duration", 0.01, nil)
	pm.RecordGauge("evaluation_records", 5, map[string]string{"scope": "multiple"})
	pm.RecordGauge("evaluation_records", 7, map[string]string{"scope": "multiple"})

	assert.Equal(t, 1, testutil.CollectAndCount(pm.scores))
	assert.Equal(t, 2, testutil.CollectAndCount(pm.latency))
	assert.Equal(t, 7.0, testutil.ToFloat64(pm.gauges.WithLabelValues("evaluation_records", "multiple")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "chateval_score")
	assert.Contains(t, names, "chateval_operation_duration_seconds")
	assert.Contains(t, names, "chateval_run_state")
}

func TestNewPrometheusMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewPrometheusMetrics(prometheus.NewRegistry())
		NewPrometheusMetrics(prometheus.NewRegistry())
	})
}

func TestWriteTextfile(t *testing.T) {
	pm, reg := newTestMetrics(t)
	pm.RecordCounter("records_evaluated_total", 3, map[string]string{"dataset_type": "single"})

	path := filepath.Join(t.TempDir(), "metrics", "chateval.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `chateval_records_evaluated_total{dataset_type="single"} 3`)
}
