// Package chatbot implements the chatbots under evaluation: a dummy that
// answers from a fixed list, a client for a remote chat endpoint, and a
// placeholder for locally hosted models.
package chatbot

import (
	"log/slog"
	"net/http"

	"github.com/ahrav/go-chateval/internal/ports"
)

type settings struct {
	logger     *slog.Logger
	metrics    ports.MetricsCollector
	httpClient *http.Client
	seed       *uint64
}

// Option configures a chatbot.
type Option func(*settings)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMetrics records request counts and latencies to m.
func WithMetrics(m ports.MetricsCollector) Option {
	return func(s *settings) { s.metrics = m }
}

// WithHTTPClient replaces the HTTP client of the API chatbot. Its timeout
// is set to the chatbot timeout when unset.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithSeed makes the dummy chatbot's choices reproducible.
func WithSeed(seed uint64) Option {
	return func(s *settings) { s.seed = &seed }
}

func applyOptions(opts []Option) settings {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// preview shortens an answer for log lines.
func preview(s string) string {
	const n = 10
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
