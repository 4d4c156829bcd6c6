package scoring

import (
	"context"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

var _ ports.Scorer = (*Fuzzy)(nil)

// Fuzzy scores by normalized Levenshtein similarity.
type Fuzzy struct {
	caseSensitive bool
}

// NewFuzzy returns a fuzzy scorer. Unless caseSensitive is set, both
// answers are case folded first.
func NewFuzzy(caseSensitive bool) *Fuzzy {
	return &Fuzzy{caseSensitive: caseSensitive}
}

// Score returns 1 - distance/maxRuneLen. Two empty strings score 1.
func (f *Fuzzy) Score(ctx context.Context, predicted, reference string) (float64, error) {
	_, span := startSpan(ctx, FuzzyType, predicted, reference)
	defer span.End()

	if !f.caseSensitive {
		fold := cases.Fold()
		predicted = fold.String(predicted)
		reference = fold.String(reference)
	}
	return similarity(predicted, reference), nil
}

func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	// The distance counts runes, so normalize by rune length.
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return domain.ClampScore(1 - float64(distance)/float64(maxLen))
}

// Type returns fuzzy/levenshtein.
func (f *Fuzzy) Type() ports.ScorerType { return FuzzyType }
