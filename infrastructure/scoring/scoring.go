// Package scoring implements the answer scorers. Every scorer compares a
// predicted answer to a reference answer and returns a non-negative score
// tagged with a family/metric pair.
package scoring

import (
	"context"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-chateval/internal/ports"
)

// Scorer tags.
var (
	DummyType = ports.ScorerType{Family: "dummy", Metric: "similarity"}
	BERTType  = ports.ScorerType{Family: "bert", Metric: "f1"}
	SBERTType = ports.ScorerType{Family: "sbert", Metric: "cosine_sim"}
	LLMType   = ports.ScorerType{Family: "llm", Metric: "float"}
	FuzzyType = ports.ScorerType{Family: "fuzzy", Metric: "levenshtein"}
	ExactType = ports.ScorerType{Family: "exact", Metric: "match"}
)

var tracer = otel.Tracer("scoring")

type settings struct {
	logger *slog.Logger
}

// Option configures a scorer.
type Option func(*settings)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
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

func startSpan(ctx context.Context, t ports.ScorerType, predicted, reference string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "scorer.score", trace.WithAttributes(
		attribute.String("scorer.family", t.Family),
		attribute.String("scorer.metric", t.Metric),
		attribute.Int("scorer.predicted.length", len(predicted)),
		attribute.Int("scorer.reference.length", len(reference)),
	))
}

// fail logs err, marks the span and wraps err as a ScoringError.
func fail(logger *slog.Logger, span trace.Span, t ports.ScorerType, err error) error {
	logger.Error("scoring failed", "scorer", t.Key(), "error", err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return ports.NewScoringError(t.Key(), err)
}

// cosine returns the cosine similarity of a and b, or 0 when either is a
// zero vector or their lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
