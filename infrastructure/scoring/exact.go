package scoring

import (
	"context"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ahrav/go-chateval/internal/ports"
)

var _ ports.Scorer = (*Exact)(nil)

// Exact scores 1 when the answers match and 0 otherwise.
type Exact struct {
	caseSensitive  bool
	trimWhitespace bool
}

// NewExact returns an exact-match scorer. Unless caseSensitive is set,
// both answers are case folded. With trimWhitespace, leading and trailing
// whitespace is ignored.
func NewExact(caseSensitive, trimWhitespace bool) *Exact {
	return &Exact{caseSensitive: caseSensitive, trimWhitespace: trimWhitespace}
}

// Score compares the normalized answers.
func (e *Exact) Score(ctx context.Context, predicted, reference string) (float64, error) {
	_, span := startSpan(ctx, ExactType, predicted, reference)
	defer span.End()

	if e.trimWhitespace {
		predicted = strings.TrimSpace(predicted)
		reference = strings.TrimSpace(reference)
	}
	if !e.caseSensitive {
		fold := cases.Fold()
		predicted = fold.String(predicted)
		reference = fold.String(reference)
	}
	if predicted == reference {
		return 1, nil
	}
	return 0, nil
}

// Type returns exact/match.
func (e *Exact) Type() ports.ScorerType { return ExactType }
