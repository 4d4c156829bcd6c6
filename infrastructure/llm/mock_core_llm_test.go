package llm

import (
	"context"
	"sync"
	"time"
)

// mockCoreLLM is a configurable CoreLLM that records every call.
type mockCoreLLM struct {
	mu sync.Mutex

	response  string
	tokensIn  int
	tokensOut int
	err       error
	model     string
	delay     time.Duration

	calls      int
	lastPrompt string
	lastOpts   map[string]any
}

func newMockCoreLLM() *mockCoreLLM {
	return &mockCoreLLM{
		response:  "test response",
		tokensIn:  10,
		tokensOut: 20,
		model:     "test-model",
	}
}

func (m *mockCoreLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	m.mu.Lock()
	m.calls++
	m.lastPrompt = prompt
	m.lastOpts = opts
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", 0, 0, ctx.Err()
		}
	}
	if err != nil {
		return "", 0, 0, err
	}
	return m.response, m.tokensIn, m.tokensOut, nil
}

func (m *mockCoreLLM) GetModel() string { return m.model }

func (m *mockCoreLLM) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// recordingCollector captures metrics keyed by name and provider label.
type recordingCollector struct {
	mu        sync.Mutex
	latencies map[string]time.Duration
	counters  map[string]float64
	labels    map[string]map[string]string
}

func newRecordingCollector() *recordingCollector {
	return &recordingCollector{
		latencies: make(map[string]time.Duration),
		counters:  make(map[string]float64),
		labels:    make(map[string]map[string]string),
	}
}

func (r *recordingCollector) RecordLatency(operation string, d time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies[operation] = d
	r.labels[operation] = labels
}

func (r *recordingCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := metric
	if tt, ok := labels["token_type"]; ok {
		key += ":" + tt
	}
	r.counters[key] += value
	r.labels[key] = labels
}

func (r *recordingCollector) RecordGauge(string, float64, map[string]string) {}

func (r *recordingCollector) RecordHistogram(string, float64, map[string]string) {}
