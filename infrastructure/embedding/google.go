package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/ahrav/go-chateval/infrastructure/llm"
	"github.com/ahrav/go-chateval/internal/ports"
)

// GoogleDefaultModel is used when no model is configured.
const GoogleDefaultModel = "text-embedding-004"

// GoogleEmbedder uses the Gemini API embedContent endpoint.
type GoogleEmbedder struct {
	client *genai.Client
	model  string
}

var _ ports.Embedder = (*GoogleEmbedder)(nil)

// NewGoogle creates a Gemini embedder sharing the judge's client setup.
func NewGoogle(ctx context.Context, cfg Config) (*GoogleEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("google API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = GoogleDefaultModel
	}

	client, err := llm.NewGenAIClient(ctx, llm.ClientConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return &GoogleEmbedder{client: client, model: cfg.Model}, nil
}

// EmbedBatch sends all texts in one request.
func (g *GoogleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}

	resp, err := g.client.Models.EmbedContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	vectors := make([][]float32, 0, len(resp.Embeddings))
	for _, e := range resp.Embeddings {
		if e == nil {
			vectors = append(vectors, nil)
			continue
		}
		vectors = append(vectors, e.Values)
	}
	if err := checkVectors(g.Name(), texts, vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Name returns "google".
func (g *GoogleEmbedder) Name() string { return "google" }

// Model returns the configured model.
func (g *GoogleEmbedder) Model() string { return g.model }
