// Package ports declares the interfaces between the evaluation core and its
// pluggable collaborators: chatbots, scorers, embedding models, LLM clients
// and metrics sinks.
package ports

import (
	"context"

	"github.com/ahrav/go-chateval/internal/domain"
)

// ChatBot produces an answer for a question or a conversation.
// Implementations decide how to degrade on transport failures; the remote
// HTTP variant never returns network errors and answers with a fixed
// fallback string instead.
type ChatBot interface {
	// GetResponse returns the chatbot's answer for the prompt.
	GetResponse(ctx context.Context, prompt domain.Prompt) (string, error)

	// GetParameters returns the chatbot's configuration for provenance.
	GetParameters() map[string]any
}
