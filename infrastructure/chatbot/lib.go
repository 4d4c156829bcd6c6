package chatbot

import (
	"context"
	"fmt"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

var _ ports.ChatBot = (*Lib)(nil)

// Lib stands in for a chatbot backed by a locally loaded model. Loading and
// inference are not implemented.
type Lib struct {
	modelPath string
}

// NewLib records the model path.
func NewLib(modelPath string) *Lib {
	return &Lib{modelPath: modelPath}
}

// GetResponse always fails with domain.ErrNotImplemented.
func (l *Lib) GetResponse(context.Context, domain.Prompt) (string, error) {
	return "", fmt.Errorf("lib chatbot (model %q): %w", l.modelPath, domain.ErrNotImplemented)
}

// GetParameters returns the chatbot type and model path.
func (l *Lib) GetParameters() map[string]any {
	return map[string]any{"chatbot_type": "lib", "model_path": l.modelPath}
}
