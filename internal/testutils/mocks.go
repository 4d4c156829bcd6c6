package testutils

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

var (
	_ ports.ChatBot          = (*MockChatBot)(nil)
	_ ports.Scorer           = (*MockScorer)(nil)
	_ ports.Embedder         = (*HashEmbedder)(nil)
	_ ports.MetricsCollector = (*RecordingMetrics)(nil)
)

// MockChatBot returns scripted answers in order, cycling when exhausted.
type MockChatBot struct {
	mu      sync.Mutex
	Answers []string
	// Err is returned from every call when set.
	Err error
	// Delay is slept before answering.
	Delay   time.Duration
	Prompts []domain.Prompt
}

// GetResponse returns the next scripted answer.
func (m *MockChatBot) GetResponse(ctx context.Context, prompt domain.Prompt) (string, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.Prompts)
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Answers) == 0 {
		return "", nil
	}
	return m.Answers[n%len(m.Answers)], nil
}

// GetParameters reports the mock as chatbot_type "mock".
func (m *MockChatBot) GetParameters() map[string]any {
	return map[string]any{"chatbot_type": "mock"}
}

// Calls returns the number of GetResponse calls.
func (m *MockChatBot) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// MockScorer returns a fixed score, or Err, and counts its calls.
type MockScorer struct {
	mu    sync.Mutex
	Tag   ports.ScorerType
	Value float64
	Err   error
	calls int
}

// Score returns Value or Err.
func (m *MockScorer) Score(context.Context, string, string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Value, nil
}

// Type returns Tag.
func (m *MockScorer) Type() ports.ScorerType { return m.Tag }

// Calls returns the number of Score calls.
func (m *MockScorer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// HashEmbedder maps each lowercased word to a deterministic vector by
// hashing it into Dim buckets. Texts that share words get similar vectors
// and identical texts get identical ones.
type HashEmbedder struct {
	Dim int
}

// EmbedBatch returns one normalized bag-of-words vector per text.
func (h HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dim := h.Dim
	if dim <= 0 {
		dim = 64
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, dim)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(w))
			v[f.Sum32()%uint32(dim)]++
		}
		var norm float64
		for _, x := range v {
			norm += float64(x) * float64(x)
		}
		if norm == 0 {
			// Empty text still needs a non-zero vector.
			v[0] = 1
			norm = 1
		}
		norm = math.Sqrt(norm)
		for j := range v {
			v[j] = float32(float64(v[j]) / norm)
		}
		out[i] = v
	}
	return out, nil
}

// Name returns "hash".
func (HashEmbedder) Name() string { return "hash" }

// Model returns "bag-of-words".
func (HashEmbedder) Model() string { return "bag-of-words" }

// MetricCall is one call observed by RecordingMetrics.
type MetricCall struct {
	Kind   string
	Name   string
	Value  float64
	Labels map[string]string
}

// RecordingMetrics keeps every metric call in memory.
type RecordingMetrics struct {
	mu    sync.Mutex
	calls []MetricCall
}

func (r *RecordingMetrics) add(kind, name string, v float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, MetricCall{Kind: kind, Name: name, Value: v, Labels: labels})
}

// RecordLatency records d in seconds.
func (r *RecordingMetrics) RecordLatency(op string, d time.Duration, labels map[string]string) {
	r.add("latency", op, d.Seconds(), labels)
}

// RecordCounter records a counter increment.
func (r *RecordingMetrics) RecordCounter(metric string, v float64, labels map[string]string) {
	r.add("counter", metric, v, labels)
}

// RecordGauge records a gauge value.
func (r *RecordingMetrics) RecordGauge(metric string, v float64, labels map[string]string) {
	r.add("gauge", metric, v, labels)
}

// RecordHistogram records a histogram observation.
func (r *RecordingMetrics) RecordHistogram(metric string, v float64, labels map[string]string) {
	r.add("histogram", metric, v, labels)
}

// Calls returns the calls of the given kind and name.
func (r *RecordingMetrics) Calls(kind, name string) []MetricCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []MetricCall
	for _, c := range r.calls {
		if c.Kind == kind && c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
