package scoring

import (
	"context"
	"math/rand/v2"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

// DefaultDummySeed is the seed used when none is configured.
const DefaultDummySeed = 42

var _ ports.Scorer = (*Dummy)(nil)

// Dummy produces a pseudo-random score damped by the length difference of
// the two answers. The generator is reseeded on every call, so the random
// factor is the same for every pair and only the lengths vary the score.
type Dummy struct {
	seed uint64
}

// NewDummy returns a dummy scorer with the given seed.
func NewDummy(seed uint64) *Dummy {
	return &Dummy{seed: seed}
}

// Score returns v / (|len(predicted) - len(reference)| + 1), v in [0, 1).
func (d *Dummy) Score(ctx context.Context, predicted, reference string) (float64, error) {
	_, span := startSpan(ctx, DummyType, predicted, reference)
	defer span.End()

	rng := rand.New(rand.NewPCG(d.seed, d.seed))
	diff := len(predicted) - len(reference)
	if diff < 0 {
		diff = -diff
	}
	return domain.ClampScore(rng.Float64() / float64(diff+1)), nil
}

// Type returns dummy/similarity.
func (d *Dummy) Type() ports.ScorerType { return DummyType }
