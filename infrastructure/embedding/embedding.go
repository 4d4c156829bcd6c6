// Package embedding provides the text embedders behind the semantic
// scorers. Each provider implements ports.Embedder; New picks one by name.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ahrav/go-chateval/internal/ports"
)

// DefaultTimeout bounds a single embedding request.
const DefaultTimeout = 60 * time.Second

// ErrEmptyEmbedding indicates that a provider returned fewer vectors than
// texts, or an empty vector.
var ErrEmptyEmbedding = errors.New("empty embedding returned")

// Config selects and configures an embedding provider.
type Config struct {
	// Provider is one of "ollama", "openai" or "google".
	Provider string
	Model    string
	BaseURL  string
	// APIKey overrides the provider's environment variable.
	APIKey  string
	Timeout time.Duration
}

var apiKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"google": "GOOGLE_API_KEY",
}

// New builds the embedder named by cfg.Provider.
func New(ctx context.Context, cfg Config) (ports.Embedder, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.APIKey == "" {
		if env, ok := apiKeyEnv[cfg.Provider]; ok {
			cfg.APIKey = os.Getenv(env)
		}
	}

	switch cfg.Provider {
	case "ollama", "":
		return NewOllama(cfg), nil
	case "openai":
		return NewOpenAI(cfg)
	case "google":
		return NewGoogle(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", ports.ErrUnknownComponent, cfg.Provider)
	}
}

// checkVectors verifies that a provider answered every text.
func checkVectors(provider string, texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("%s: %w: got %d vectors for %d texts", provider, ErrEmptyEmbedding, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("%s: %w: text %d", provider, ErrEmptyEmbedding, i)
		}
	}
	return nil
}

// CachedEmbedder memoizes vectors by text. BERT scoring embeds the same
// tokens over and over across a dataset.
type CachedEmbedder struct {
	next ports.Embedder

	mu    sync.RWMutex
	cache map[string][]float32
}

var _ ports.Embedder = (*CachedEmbedder)(nil)

// NewCached wraps next with an in-memory cache.
func NewCached(next ports.Embedder) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: make(map[string][]float32)}
}

// EmbedBatch embeds only the texts missing from the cache.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	seen := make(map[string]bool)

	c.mu.RLock()
	for i, t := range texts {
		if v, ok := c.cache[t]; ok {
			out[i] = v
			continue
		}
		if !seen[t] {
			seen[t] = true
			missing = append(missing, t)
		}
	}
	c.mu.RUnlock()

	if len(missing) > 0 {
		vectors, err := c.next.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		if err := checkVectors(c.next.Name(), missing, vectors); err != nil {
			return nil, err
		}

		c.mu.Lock()
		for i, t := range missing {
			c.cache[t] = vectors[i]
		}
		c.mu.Unlock()

		c.mu.RLock()
		for i, t := range texts {
			if out[i] == nil {
				out[i] = c.cache[t]
			}
		}
		c.mu.RUnlock()
	}
	return out, nil
}

// Len reports the number of cached texts.
func (c *CachedEmbedder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Name returns the wrapped provider's name.
func (c *CachedEmbedder) Name() string { return c.next.Name() }

// Model returns the wrapped provider's model.
func (c *CachedEmbedder) Model() string { return c.next.Model() }
