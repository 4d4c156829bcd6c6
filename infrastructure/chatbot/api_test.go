package chatbot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-chateval/internal/domain"
)

type countingCollector struct {
	mu       sync.Mutex
	statuses []string
}

func (c *countingCollector) RecordLatency(string, time.Duration, map[string]string) {}

func (c *countingCollector) RecordCounter(_ string, _ float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, labels["status"])
}

func (c *countingCollector) RecordGauge(string, float64, map[string]string)     {}
func (c *countingCollector) RecordHistogram(string, float64, map[string]string) {}

func newAPIForServer(server *httptest.Server, cfg APIConfig, opts ...Option) *API {
	cfg.URL = strings.TrimPrefix(server.URL, "https://")
	opts = append([]Option{WithHTTPClient(server.Client())}, opts...)
	return NewAPI(cfg, opts...)
}

func TestAPI_GetResponse_Payload(t *testing.T) {
	var got map[string]any
	var auth string
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "Pasta needs salt."})
	}))
	defer server.Close()

	bot := newAPIForServer(server, APIConfig{Token: "secret"})
	answer, err := bot.GetResponse(context.Background(), domain.PromptFromQuestion("How do I cook pasta?"))
	require.NoError(t, err)

	assert.Equal(t, "Pasta needs salt.", answer)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, []any{map[string]any{"user": "How do I cook pasta?"}}, got["history"])
	assert.Equal(t, "abc", got["approach"])
	assert.Equal(t, map[string]any{
		"retrieval_mode":    "hybrid",
		"semantic_ranker":   true,
		"semantic_captions": false,
		"top":               float64(3),
		"temperature":       0.7,
		"category_filter":   []any{},
	}, got["overrides"])
}

func TestAPI_GetResponse_History(t *testing.T) {
	var got struct {
		History []domain.Turn `json:"history"`
	}
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]string{"answer": "ok"})
	}))
	defer server.Close()

	history := []domain.Turn{domain.NewTurn("one", "first"), {User: "two"}}
	bot := newAPIForServer(server, APIConfig{Token: "t", TokenType: "Token"})
	_, err := bot.GetResponse(context.Background(), domain.PromptFromHistory(history))
	require.NoError(t, err)
	assert.Equal(t, history, got.History)
}

func TestAPI_GetResponse_Fallbacks(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantAnswer string
		wantStatus string
	}{
		{
			name: "missing answer field",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data_points": []}`))
			},
			wantAnswer: NoAnswerFallback,
			wantStatus: "success",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			wantAnswer: ConnectionFallback,
			wantStatus: "status",
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			wantAnswer: ConnectionFallback,
			wantStatus: "status",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			},
			wantAnswer: ConnectionFallback,
			wantStatus: "other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewTLSServer(tt.handler)
			defer server.Close()

			metrics := &countingCollector{}
			bot := newAPIForServer(server, APIConfig{Token: "t"}, WithMetrics(metrics))
			answer, err := bot.GetResponse(context.Background(), domain.PromptFromQuestion("q"))

			require.NoError(t, err)
			assert.Equal(t, tt.wantAnswer, answer)
			assert.Equal(t, []string{tt.wantStatus}, metrics.statuses)
		})
	}
}

func TestAPI_GetResponse_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := server.Client()
	client.Timeout = 50 * time.Millisecond
	metrics := &countingCollector{}
	bot := NewAPI(APIConfig{URL: strings.TrimPrefix(server.URL, "https://")}, WithHTTPClient(client), WithMetrics(metrics))

	answer, err := bot.GetResponse(context.Background(), domain.PromptFromQuestion("q"))
	require.NoError(t, err)
	assert.Equal(t, ConnectionFallback, answer)
	assert.Equal(t, []string{"timeout"}, metrics.statuses)
}

func TestAPI_GetResponse_ConnectionRefused(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	host := strings.TrimPrefix(server.URL, "https://")
	client := server.Client()
	server.Close()

	metrics := &countingCollector{}
	bot := NewAPI(APIConfig{URL: host}, WithHTTPClient(client), WithMetrics(metrics))
	answer, err := bot.GetResponse(context.Background(), domain.PromptFromQuestion("q"))

	require.NoError(t, err)
	assert.Equal(t, ConnectionFallback, answer)
	assert.Equal(t, []string{"connection"}, metrics.statuses)
}

func TestAPI_Parameters(t *testing.T) {
	bot := NewAPI(APIConfig{URL: "bot.example.com", Token: "t", Approach: "rrr", RetrievalMode: "vectors"})
	assert.Equal(t, "https://bot.example.com/chat", bot.Endpoint())
	assert.Equal(t, map[string]any{
		"chatbot_type":   "api",
		"url":            "https://bot.example.com/chat",
		"approach":       "rrr",
		"retrieval_mode": "vectors",
	}, bot.GetParameters())
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", preview("short"))
	assert.Equal(t, "0123456789...", preview("0123456789abc"))
}
