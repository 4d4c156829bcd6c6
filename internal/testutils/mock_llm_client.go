// Package testutils provides deterministic stand-ins for the evaluation
// collaborators: LLM clients, chatbots, scorers, embedders and metrics
// sinks.
package testutils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ahrav/go-chateval/internal/ports"
)

// Verify interface compliance at compile time.
var _ ports.LLMClient = (*MockLLMClient)(nil)

// DefaultVerdict is returned by MockLLMClient when no pattern matches.
const DefaultVerdict = `{"score": 0.5, "reasoning": "The answer is partially correct."}`

// MockResponse maps a prompt substring to a canned completion.
type MockResponse struct {
	// Pattern is matched case-insensitively against the prompt. Patterns
	// are tried in the order they were added.
	Pattern  string
	Response string
	// Err, when set, is returned instead of Response.
	Err error
}

// MockLLMClient answers prompts from a list of patterns. It records every
// prompt it receives.
type MockLLMClient struct {
	mu        sync.Mutex
	model     string
	responses []MockResponse
	prompts   []string
}

// NewMockLLMClient returns a client for model that answers every prompt
// with DefaultVerdict until responses are added.
func NewMockLLMClient(model string) *MockLLMClient {
	return &MockLLMClient{model: model}
}

// AddResponse registers a pattern. Later patterns do not override earlier
// ones that also match.
func (m *MockLLMClient) AddResponse(r MockResponse) *MockLLMClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, r)
	return m
}

// Complete returns the response of the first matching pattern.
func (m *MockLLMClient) Complete(ctx context.Context, prompt string, _ map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if prompt == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)

	lower := strings.ToLower(prompt)
	for _, r := range m.responses {
		if strings.Contains(lower, strings.ToLower(r.Pattern)) {
			return r.Response, r.Err
		}
	}
	return DefaultVerdict, nil
}

// GetModel returns the model passed to NewMockLLMClient.
func (m *MockLLMClient) GetModel() string { return m.model }

// Prompts returns the prompts received so far.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
