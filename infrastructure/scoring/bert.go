package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

// BERTConfig configures the BERT scorer.
type BERTConfig struct {
	// Lang is a BCP 47 tag used to lowercase tokens.
	Lang string
	// RescaleWithBaseline maps F1 onto (F1-b)/(1-b) when Baseline is in
	// (0, 1).
	RescaleWithBaseline bool
	Baseline            float64
}

var _ ports.Scorer = (*BERT)(nil)

// BERT computes a BERTScore-style F1: every token of one answer is greedily
// matched to its most similar token of the other by cosine similarity of
// their embeddings.
type BERT struct {
	embedder ports.Embedder
	lang     language.Tag
	cfg      BERTConfig
	logger   *slog.Logger
}

// NewBERT returns a BERT scorer over embedder. An unparsable language tag
// is a configuration error.
func NewBERT(embedder ports.Embedder, cfg BERTConfig, opts ...Option) (*BERT, error) {
	if embedder == nil {
		return nil, ports.NewConfigError("bert", fmt.Errorf("embedder is required"))
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	tag, err := language.Parse(cfg.Lang)
	if err != nil {
		return nil, ports.NewConfigError("bert.lang", err)
	}

	s := applyOptions(opts)
	return &BERT{
		embedder: embedder,
		lang:     tag,
		cfg:      cfg,
		logger:   s.logger,
	}, nil
}

// Score returns the (optionally rescaled) F1, clamped at 0. An answer
// without tokens scores 0.
func (b *BERT) Score(ctx context.Context, predicted, reference string) (float64, error) {
	ctx, span := startSpan(ctx, BERTType, predicted, reference)
	defer span.End()

	candTokens := b.tokenize(predicted)
	refTokens := b.tokenize(reference)
	if len(candTokens) == 0 || len(refTokens) == 0 {
		return 0, nil
	}

	var cand, ref [][]float32
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		cand, err = b.embedder.EmbedBatch(gctx, candTokens)
		return err
	})
	g.Go(func() error {
		var err error
		ref, err = b.embedder.EmbedBatch(gctx, refTokens)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fail(b.logger, span, BERTType, err)
	}
	if len(cand) != len(candTokens) || len(ref) != len(refTokens) {
		return 0, fail(b.logger, span, BERTType, fmt.Errorf("embedder returned %d/%d vectors for %d/%d tokens",
			len(cand), len(ref), len(candTokens), len(refTokens)))
	}

	precision := greedyMatch(cand, ref)
	recall := greedyMatch(ref, cand)
	f1 := 0.0
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	if b.cfg.RescaleWithBaseline && b.cfg.Baseline > 0 && b.cfg.Baseline < 1 {
		f1 = (f1 - b.cfg.Baseline) / (1 - b.cfg.Baseline)
	}

	span.SetAttributes(
		attribute.Float64("bert.precision", precision),
		attribute.Float64("bert.recall", recall),
	)
	return domain.ClampScore(f1), nil
}

// greedyMatch averages, over from, the best cosine similarity in to.
func greedyMatch(from, to [][]float32) float64 {
	var total float64
	for _, f := range from {
		best := -1.0
		for _, t := range to {
			best = max(best, cosine(f, t))
		}
		total += best
	}
	return total / float64(len(from))
}

// tokenize lowercases s and splits it into letter and digit runs. A Caser
// holds state, so each call gets its own.
func (b *BERT) tokenize(s string) []string {
	return strings.FieldsFunc(cases.Lower(b.lang).String(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Type returns bert/f1.
func (b *BERT) Type() ports.ScorerType { return BERTType }
