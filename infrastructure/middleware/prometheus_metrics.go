// Package middleware provides cross-cutting concerns for the evaluation
// pipeline.
package middleware

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-chateval/internal/ports"
)

const namespace = "chateval"

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks chatbot calls, scorer output, judge LLM usage and
// overall run progress.
type PrometheusMetrics struct {
	llmRequests      *prometheus.CounterVec
	llmTokens        *prometheus.CounterVec
	chatbotRequests  *prometheus.CounterVec
	recordsEvaluated *prometheus.CounterVec
	operationCounter *prometheus.CounterVec
	latency          *prometheus.HistogramVec
	scores           *prometheus.HistogramVec
	gauges           *prometheus.GaugeVec
}

// NewPrometheusMetrics creates the metric vectors and registers them with
// reg. A nil reg falls back to the default registerer.
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		llmRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Judge LLM requests by provider, model and outcome.",
			},
			[]string{"provider", "model", "status"},
		),
		llmTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_tokens_total",
				Help:      "Tokens consumed by judge LLM requests.",
			},
			[]string{"provider", "model", "token_type"},
		),
		chatbotRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chatbot_requests_total",
				Help:      "Remote chatbot requests by outcome.",
			},
			[]string{"chatbot_type", "status"},
		),
		recordsEvaluated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_evaluated_total",
				Help:      "Dataset records scored.",
			},
			[]string{"dataset_type"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Counters without a dedicated metric.",
			},
			[]string{"operation", "status"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of chatbot, scorer and LLM operations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		scores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "score",
				Help:      "Distribution of scores per scorer.",
				Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"scorer"},
		),
		gauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "run_state",
				Help:      "Current values describing the evaluation run.",
			},
			[]string{"metric", "scope"},
		),
	}
}

func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	pm.latency.WithLabelValues(operation, label(labels, "status")).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case "llm_requests_total":
		pm.llmRequests.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Add(value)
	case "llm_tokens_total":
		pm.llmTokens.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "token_type")).Add(value)
	case "chatbot_requests_total":
		pm.chatbotRequests.WithLabelValues(label(labels, "chatbot_type"), label(labels, "status")).Add(value)
	case "records_evaluated_total":
		pm.recordsEvaluated.WithLabelValues(label(labels, "dataset_type")).Add(value)
	default:
		status := labels["status"]
		if status == "" {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	scope := labels["scope"]
	if scope == "" {
		scope = "run"
	}
	pm.gauges.WithLabelValues(metric, scope).Set(value)
}

// RecordHistogram implements the MetricsCollector interface. Score values
// go to the score histogram; anything else is treated as a duration in
// seconds.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	if metric == "score" {
		pm.scores.WithLabelValues(label(labels, "scorer")).Observe(value)
		return
	}
	pm.latency.WithLabelValues(metric, label(labels, "status")).Observe(value)
}

// WriteTextfile writes every metric gathered by g to path in the text
// exposition format, creating the parent directory.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
