package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

// Answers substituted by the API chatbot when the remote call does not
// produce one.
const (
	NoAnswerFallback   = "Sorry, I couldn't process your question."
	ConnectionFallback = "I'm having trouble connecting to the server right now."
)

// API chatbot defaults.
const (
	DefaultTokenType     = "Bearer"
	DefaultApproach      = "abc"
	DefaultRetrievalMode = "hybrid"
	DefaultAPITimeout    = 10 * time.Second
)

// APIConfig configures the remote chatbot client.
type APIConfig struct {
	// URL is the host (and optional path prefix) of the service, without
	// scheme. Requests go to https://{URL}/chat.
	URL           string
	Token         string
	TokenType     string
	Approach      string
	RetrievalMode string

	// RequestsPerSecond paces calls when positive.
	RequestsPerSecond float64
}

type apiOverrides struct {
	RetrievalMode    string   `json:"retrieval_mode"`
	SemanticRanker   bool     `json:"semantic_ranker"`
	SemanticCaptions bool     `json:"semantic_captions"`
	Top              int      `json:"top"`
	Temperature      float64  `json:"temperature"`
	CategoryFilter   []string `json:"category_filter"`
}

type apiRequest struct {
	History   []domain.Turn `json:"history"`
	Approach  string        `json:"approach"`
	Overrides apiOverrides  `json:"overrides"`
}

type apiResponse struct {
	Answer *string `json:"answer"`
}

var _ ports.ChatBot = (*API)(nil)

// API posts the conversation to a remote chat service. Transport failures
// never surface as errors; they are logged and answered with
// ConnectionFallback.
type API struct {
	endpoint      string
	authorization string
	approach      string
	retrievalMode string

	client  *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewAPI builds a remote chatbot client. Missing credentials are not
// checked here; they fail at call time.
func NewAPI(cfg APIConfig, opts ...Option) *API {
	s := applyOptions(opts)

	if cfg.TokenType == "" {
		cfg.TokenType = DefaultTokenType
	}
	if cfg.Approach == "" {
		cfg.Approach = DefaultApproach
	}
	if cfg.RetrievalMode == "" {
		cfg.RetrievalMode = DefaultRetrievalMode
	}

	client := &http.Client{Timeout: DefaultAPITimeout}
	if s.httpClient != nil {
		c := *s.httpClient
		if c.Timeout == 0 {
			c.Timeout = DefaultAPITimeout
		}
		client = &c
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &API{
		endpoint:      fmt.Sprintf("https://%s/chat", strings.TrimSuffix(cfg.URL, "/")),
		authorization: cfg.TokenType + " " + cfg.Token,
		approach:      cfg.Approach,
		retrievalMode: cfg.RetrievalMode,
		client:        client,
		limiter:       limiter,
		logger:        s.logger.With("chatbot_type", "api"),
		metrics:       s.metrics,
		tracer:        otel.Tracer("api-chatbot"),
	}
}

// Endpoint returns the full chat URL.
func (a *API) Endpoint() string { return a.endpoint }

// GetResponse sends the prompt, upgraded to a history, and returns the
// service's answer.
func (a *API) GetResponse(ctx context.Context, prompt domain.Prompt) (string, error) {
	ctx, span := a.tracer.Start(ctx, "chatbot.api.get_response",
		trace.WithAttributes(
			attribute.String("chatbot.url", a.endpoint),
			attribute.Bool("chatbot.history", prompt.IsHistory()),
		),
	)
	defer span.End()

	start := time.Now()
	a.logger.Info("posting received question")

	answer, err := a.post(ctx, prompt.History())
	status := "success"
	if err != nil {
		var nerr *ports.NetworkError
		if errors.As(err, &nerr) {
			status = string(nerr.Kind)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.logger.Error("chatbot request failed", "error", err)
		answer = ConnectionFallback
	} else {
		a.logger.Info("post response received", "answer", preview(answer))
	}

	a.record(status, time.Since(start))
	return answer, nil
}

func (a *API) post(ctx context.Context, history []domain.Turn) (string, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return "", ports.NewNetworkError(ports.NetworkOther, a.endpoint, 0, err)
		}
	}

	body, err := json.Marshal(apiRequest{
		History:  history,
		Approach: a.approach,
		Overrides: apiOverrides{
			RetrievalMode:    a.retrievalMode,
			SemanticRanker:   true,
			SemanticCaptions: false,
			Top:              3,
			Temperature:      0.7,
			CategoryFilter:   []string{},
		},
	})
	if err != nil {
		return "", ports.NewNetworkError(ports.NetworkOther, a.endpoint, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", ports.NewNetworkError(ports.NetworkOther, a.endpoint, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", a.authorization)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", a.classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", ports.NewNetworkError(ports.NetworkStatus, a.endpoint, resp.StatusCode,
			fmt.Errorf("%w: %s", ports.ErrUnexpectedStatus, bytes.TrimSpace(msg)))
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", ports.NewNetworkError(ports.NetworkOther, a.endpoint, resp.StatusCode,
			fmt.Errorf("%w: %w", ports.ErrInvalidResponse, err))
	}
	if out.Answer == nil {
		return NoAnswerFallback, nil
	}
	return *out.Answer, nil
}

// classify maps a transport error to a NetworkError kind.
func (a *API) classify(err error) *ports.NetworkError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return ports.NewNetworkError(ports.NetworkTimeout, a.endpoint, 0, fmt.Errorf("%w: %w", ports.ErrTimeout, err))
	case errors.As(err, &netErr):
		return ports.NewNetworkError(ports.NetworkConnection, a.endpoint, 0, fmt.Errorf("%w: %w", ports.ErrConnection, err))
	default:
		return ports.NewNetworkError(ports.NetworkOther, a.endpoint, 0, err)
	}
}

func (a *API) record(status string, d time.Duration) {
	if a.metrics == nil {
		return
	}
	labels := map[string]string{"chatbot_type": "api", "status": status}
	a.metrics.RecordCounter("chatbot_requests_total", 1, labels)
	a.metrics.RecordLatency("chatbot_request", d, labels)
}

// GetParameters returns the chatbot type, URL, approach and retrieval mode.
func (a *API) GetParameters() map[string]any {
	return map[string]any{
		"chatbot_type":   "api",
		"url":            a.endpoint,
		"approach":       a.approach,
		"retrieval_mode": a.retrievalMode,
	}
}
