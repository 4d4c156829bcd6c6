package ports

import (
	"context"
)

// ScorerType identifies a scoring strategy by family and metric,
// e.g. family "bert" with metric "f1".
type ScorerType struct {
	Family string
	Metric string
}

// Key returns the composite result column name "<family>_<metric>".
func (t ScorerType) Key() string { return t.Family + "_" + t.Metric }

// String implements fmt.Stringer.
func (t ScorerType) String() string { return t.Key() }

// Scorer compares a predicted answer to a reference answer.
// Scores are never negative; by convention they do not exceed 1.
type Scorer interface {
	// Score returns the similarity of predicted to reference.
	Score(ctx context.Context, predicted, reference string) (float64, error)

	// Type returns the scorer's family/metric tag.
	Type() ScorerType
}
