package application

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-chateval/infrastructure/embedding"
	"github.com/ahrav/go-chateval/infrastructure/llm"
	"github.com/ahrav/go-chateval/infrastructure/middleware"
	"github.com/ahrav/go-chateval/infrastructure/scoring"
	"github.com/ahrav/go-chateval/internal/ports"
)

// Dependencies are the shared collaborators handed to scorer factories.
// Nil fields fall back to what the configuration describes.
type Dependencies struct {
	Logger  *slog.Logger
	Metrics ports.MetricsCollector
	// Embedder replaces the configured embedding provider of the semantic
	// scorers.
	Embedder ports.Embedder
	// LLMClient replaces the client built from llm.model.
	LLMClient ports.LLMClient
}

func (d Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// ScorerFactory builds a scorer from the run configuration.
type ScorerFactory func(ctx context.Context, cfg *Config, deps Dependencies) (ports.Scorer, error)

// ScorerRegistry maps scorer names, as written in the scorers list, to
// their factories.
type ScorerRegistry struct {
	mu        sync.RWMutex
	factories map[string]ScorerFactory
}

// NewScorerRegistry returns a registry with the built-in scorers:
// dummy, bert, sbert, llm, fuzzy and exact.
func NewScorerRegistry() *ScorerRegistry {
	r := &ScorerRegistry{factories: make(map[string]ScorerFactory)}
	r.registerBuiltinFactories()
	return r
}

func (r *ScorerRegistry) registerBuiltinFactories() {
	r.factories["dummy"] = func(_ context.Context, cfg *Config, _ Dependencies) (ports.Scorer, error) {
		return scoring.NewDummy(cfg.Dummy.Seed), nil
	}

	r.factories["fuzzy"] = func(_ context.Context, cfg *Config, _ Dependencies) (ports.Scorer, error) {
		return scoring.NewFuzzy(cfg.Fuzzy.CaseSensitive), nil
	}

	r.factories["exact"] = func(_ context.Context, cfg *Config, _ Dependencies) (ports.Scorer, error) {
		return scoring.NewExact(cfg.Exact.CaseSensitive, cfg.Exact.TrimWhitespace), nil
	}

	r.factories["bert"] = func(ctx context.Context, cfg *Config, deps Dependencies) (ports.Scorer, error) {
		emb, err := embedderFor(ctx, deps, embedding.Config{
			Provider: cfg.BERT.Provider,
			Model:    cfg.BERT.ModelName,
			BaseURL:  cfg.BERT.BaseURL,
		})
		if err != nil {
			return nil, ports.NewConfigError("bert", err)
		}
		return scoring.NewBERT(emb, scoring.BERTConfig{
			Lang:                cfg.BERT.Lang,
			RescaleWithBaseline: cfg.BERT.RescaleWithBaseline,
			Baseline:            cfg.BERT.Baseline,
		}, scoring.WithLogger(deps.logger()))
	}

	r.factories["sbert"] = func(ctx context.Context, cfg *Config, deps Dependencies) (ports.Scorer, error) {
		emb, err := embedderFor(ctx, deps, embedding.Config{
			Provider: cfg.SBERT.Provider,
			Model:    cfg.SBERT.ModelName,
			BaseURL:  cfg.SBERT.BaseURL,
		})
		if err != nil {
			return nil, ports.NewConfigError("sbert", err)
		}
		return scoring.NewSBERT(emb, scoring.WithLogger(deps.logger()))
	}

	r.factories["llm"] = func(_ context.Context, cfg *Config, deps Dependencies) (ports.Scorer, error) {
		client := deps.LLMClient
		if client == nil && cfg.LLM.Model != "" {
			provider, _, err := llm.ParseModelSpec(cfg.LLM.Model)
			if err != nil {
				return nil, ports.NewConfigError("llm.model", err)
			}
			c, err := llm.NewClientFromSpec(cfg.LLM.Model, cfg.LLMTimeout(), judgeMiddleware(cfg, provider, deps)...)
			if err != nil {
				return nil, ports.NewConfigError("llm.model", err)
			}
			client = c
		}
		return scoring.NewLLMJudge(client, scoring.WithLogger(deps.logger())), nil
	}
}

// judgeMiddleware orders the judge client's middleware outermost first:
// tracing, then the run budget so refused calls are never throttled or
// counted as provider requests.
func judgeMiddleware(cfg *Config, provider string, deps Dependencies) []llm.Middleware {
	mw := []llm.Middleware{llm.TracingMiddleware("llm-judge")}
	if cfg.LLM.MaxTokens > 0 || cfg.LLM.MaxCalls > 0 {
		budget := middleware.NewBudgetManager(
			middleware.Budget{MaxTokens: cfg.LLM.MaxTokens, MaxCalls: cfg.LLM.MaxCalls},
			middleware.NewOTelBudgetObserver(deps.Metrics, "llm-judge"),
		)
		mw = append(mw, budget.Middleware())
	}
	if cfg.LLM.RequestsPerSecond > 0 {
		burst := max(1, int(cfg.LLM.RequestsPerSecond))
		mw = append(mw, llm.RateLimitMiddleware(rate.Limit(cfg.LLM.RequestsPerSecond), burst))
	}
	return append(mw,
		llm.MetricsMiddleware(provider, deps.Metrics),
		llm.TimeoutMiddleware(cfg.LLMTimeout()),
	)
}

// embedderFor returns the injected embedder, or builds a cached one from
// cfg.
func embedderFor(ctx context.Context, deps Dependencies, cfg embedding.Config) (ports.Embedder, error) {
	if deps.Embedder != nil {
		return deps.Embedder, nil
	}
	emb, err := embedding.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return embedding.NewCached(emb), nil
}

// Create builds the scorer registered under name.
func (r *ScorerRegistry) Create(ctx context.Context, name string, cfg *Config, deps Dependencies) (ports.Scorer, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, ports.NewConfigError("scorers", fmt.Errorf("%w: scorer %q", ports.ErrUnknownComponent, name))
	}

	scorer, err := factory(ctx, cfg, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create scorer %s: %w", name, err)
	}
	return scorer, nil
}

// Register adds or replaces the factory for name.
func (r *ScorerRegistry) Register(name string, factory ScorerFactory) error {
	if name == "" {
		return fmt.Errorf("scorer name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
	return nil
}

// Names returns the registered scorer names in sorted order.
func (r *ScorerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
