package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		config   ClientConfig
		wantErr  error
	}{
		{
			name:     "missing api key",
			provider: "openai",
			config:   ClientConfig{Model: "gpt-4o-mini"},
			wantErr:  ErrEmptyAPIKey,
		},
		{
			name:     "unknown provider",
			provider: "mistral",
			config:   ClientConfig{APIKey: "k", Model: "m"},
			wantErr:  ErrUnknownProvider,
		},
		{
			name:     "openai",
			provider: "openai",
			config:   ClientConfig{APIKey: "k", Model: "gpt-4o-mini"},
		},
		{
			name:     "anthropic",
			provider: "anthropic",
			config:   ClientConfig{APIKey: "k", Model: "claude-3-5-haiku-latest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.provider, tt.config)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.config.Model, client.GetModel())
		})
	}
}

func TestNewClientFromCore_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &orderLLM{next: next, name: name, order: &order}
		}
	}

	client := NewClientFromCore(newMockCoreLLM(), tag("outer"), tag("inner"))
	_, err := client.Complete(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

type orderLLM struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (o *orderLLM) DoRequest(ctx context.Context, p string, opts map[string]any) (string, int, int, error) {
	*o.order = append(*o.order, o.name)
	return o.next.DoRequest(ctx, p, opts)
}

func (o *orderLLM) GetModel() string { return o.next.GetModel() }

func TestClient_CompleteWithUsage(t *testing.T) {
	mock := newMockCoreLLM()
	client := NewClientFromCore(mock)

	text, in, out, err := client.CompleteWithUsage(context.Background(), "prompt", map[string]any{"temperature": 0.0})
	require.NoError(t, err)
	assert.Equal(t, "test response", text)
	assert.Equal(t, 10, in)
	assert.Equal(t, 20, out)
	assert.Equal(t, "prompt", mock.lastPrompt)
	assert.Equal(t, 0.0, mock.lastOpts["temperature"])
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("deadline exceeded", func(t *testing.T) {
		mock := newMockCoreLLM()
		mock.delay = time.Second
		client := NewClientFromCore(mock, TimeoutMiddleware(10*time.Millisecond))

		_, err := client.Complete(context.Background(), "slow", nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Contains(t, err.Error(), "judge request exceeded 10ms")
	})

	t.Run("caller deadline is passed through", func(t *testing.T) {
		mock := newMockCoreLLM()
		mock.delay = time.Second
		client := NewClientFromCore(mock, TimeoutMiddleware(time.Minute))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := client.Complete(ctx, "slow", nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.NotContains(t, err.Error(), "judge request exceeded")
	})

	t.Run("zero timeout is a no-op", func(t *testing.T) {
		mock := newMockCoreLLM()
		core := TimeoutMiddleware(0)(mock)
		assert.Same(t, mock, core)
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	mock := newMockCoreLLM()
	client := NewClientFromCore(mock, RateLimitMiddleware(rate.Limit(1), 1))

	_, err := client.Complete(context.Background(), "first", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Complete(ctx, "second", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge rate limit")
	assert.Equal(t, 1, mock.callCount())
}

func TestMetricsMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
		wantTokens bool
	}{
		{name: "success", wantStatus: "success", wantTokens: true},
		{name: "failure", err: errors.New("boom"), wantStatus: "error"},
		{name: "timeout", err: context.DeadlineExceeded, wantStatus: "timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMockCoreLLM()
			mock.err = tt.err
			collector := newRecordingCollector()
			client := NewClientFromCore(mock, MetricsMiddleware("openai", collector))

			_, _ = client.Complete(context.Background(), "p", nil)

			assert.Equal(t, 1.0, collector.counters["llm_requests_total"])
			assert.Equal(t, tt.wantStatus, collector.labels["llm_request"]["status"])
			assert.Equal(t, "test-model", collector.labels["llm_request"]["model"])
			if tt.wantTokens {
				assert.Equal(t, 10.0, collector.counters["llm_tokens_total:input"])
				assert.Equal(t, 20.0, collector.counters["llm_tokens_total:output"])
			} else {
				assert.NotContains(t, collector.counters, "llm_tokens_total:input")
			}
		})
	}
}

func TestTracingMiddleware_PassesThrough(t *testing.T) {
	mock := newMockCoreLLM()
	mock.err = errors.New("provider down")
	client := NewClientFromCore(mock, TracingMiddleware("judge"))

	_, err := client.Complete(context.Background(), "p", nil)
	assert.EqualError(t, err, "provider down")
	assert.Equal(t, "test-model", client.GetModel())
}

func TestParseRequestOptions(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
		want RequestOptions
	}{
		{
			name: "defaults",
			want: RequestOptions{MaxTokens: DefaultMaxTokens, Model: "base"},
		},
		{
			name: "overrides",
			opts: map[string]any{"max_tokens": 64, "model": "other", "system": "be terse", "temperature": 0, "top_p": 0.5},
			want: RequestOptions{MaxTokens: 64, Model: "other", System: "be terse", Temperature: ptr(0.0), TopP: ptr(0.5)},
		},
		{
			name: "out of range ignored",
			opts: map[string]any{"max_tokens": -1, "temperature": 3.0, "top_p": "high"},
			want: RequestOptions{MaxTokens: DefaultMaxTokens, Model: "base"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRequestOptions(tt.opts, "base"))
		})
	}
}

func ptr(v float64) *float64 { return &v }

func TestProviderError(t *testing.T) {
	cause := errors.New("unauthorized")
	err := classifyHTTPError("openai", 401, "bad key", cause)

	assert.Equal(t, ErrorTypeAuthentication, err.Type)
	assert.Equal(t, "openai error (HTTP 401) [authentication]: bad key: unauthorized", err.Error())
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, ErrorTypeRateLimit, classifyStatus(429))
	assert.Equal(t, ErrorTypeServerError, classifyStatus(503))
	assert.Equal(t, ErrorTypeBadRequest, classifyStatus(422))
	assert.Nil(t, classifyContextError("openai", cause))
	assert.Equal(t, ErrorTypeTimeout, classifyContextError("openai", context.DeadlineExceeded).Type)
}
