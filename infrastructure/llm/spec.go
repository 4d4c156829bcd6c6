package llm

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// providerEnv names the environment variable holding each provider's key.
var providerEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

// APIKeyEnv returns the environment variable that carries the API key for
// provider, or "" for unknown providers.
func APIKeyEnv(provider string) string { return providerEnv[provider] }

// ParseModelSpec splits "provider/model" into its parts. A bare provider
// name yields an empty model so the provider default applies.
func ParseModelSpec(spec string) (provider, model string, err error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return "", "", fmt.Errorf("%w: empty", ErrInvalidModelSpec)
	}

	provider, model, _ = strings.Cut(spec, "/")
	provider = strings.ToLower(strings.TrimSpace(provider))
	if _, ok := providerEnv[provider]; !ok {
		return "", "", fmt.Errorf("%w: %q: %w", ErrInvalidModelSpec, spec, ErrUnknownProvider)
	}
	return provider, strings.TrimSpace(model), nil
}

var defaultModels = map[string]string{
	"openai":    OpenAIDefaultModel,
	"anthropic": AnthropicDefaultModel,
	"google":    GoogleDefaultModel,
}

// NewClientFromSpec builds a client for a "provider/model" spec, reading the
// API key from the provider's environment variable.
func NewClientFromSpec(spec string, timeout time.Duration, middleware ...Middleware) (*Client, error) {
	provider, model, err := ParseModelSpec(spec)
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = defaultModels[provider]
	}

	env := providerEnv[provider]
	apiKey := os.Getenv(env)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: set %s", ErrEmptyAPIKey, env)
	}

	return NewClient(provider, ClientConfig{
		APIKey:     apiKey,
		Model:      model,
		Timeout:    timeout,
		Middleware: middleware,
	})
}
