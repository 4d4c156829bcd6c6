package scoring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

var _ ports.Scorer = (*SBERT)(nil)

// SBERT scores by cosine similarity of whole-answer embeddings.
type SBERT struct {
	embedder ports.Embedder
	logger   *slog.Logger
}

// NewSBERT returns a sentence-embedding scorer over embedder.
func NewSBERT(embedder ports.Embedder, opts ...Option) (*SBERT, error) {
	if embedder == nil {
		return nil, ports.NewConfigError("sbert", fmt.Errorf("embedder is required"))
	}
	s := applyOptions(opts)
	return &SBERT{embedder: embedder, logger: s.logger}, nil
}

// Score returns max(0, cos(embed(predicted), embed(reference))).
func (s *SBERT) Score(ctx context.Context, predicted, reference string) (float64, error) {
	ctx, span := startSpan(ctx, SBERTType, predicted, reference)
	defer span.End()

	vectors, err := s.embedder.EmbedBatch(ctx, []string{predicted, reference})
	if err != nil {
		return 0, fail(s.logger, span, SBERTType, err)
	}
	if len(vectors) != 2 {
		return 0, fail(s.logger, span, SBERTType, fmt.Errorf("embedder returned %d vectors for 2 texts", len(vectors)))
	}
	return domain.ClampScore(cosine(vectors[0], vectors[1])), nil
}

// Type returns sbert/cosine_sim.
func (s *SBERT) Type() ports.ScorerType { return SBERTType }
