package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ahrav/go-chateval/infrastructure/chatbot"
	"github.com/ahrav/go-chateval/internal/dataset"
	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

// Environment variables carrying the remote chatbot credentials.
const (
	EnvAPIToken = "CHATBOT_API_TOKEN"
	EnvAPIURL   = "CHATBOT_API_URL"
)

// Credentials are the secrets of the remote chatbot. They are read once at
// startup and never written to results.
type Credentials struct {
	APIToken string
	APIURL   string
}

// CredentialsFromEnv reads Credentials from the process environment.
func CredentialsFromEnv() Credentials {
	return Credentials{
		APIToken: os.Getenv(EnvAPIToken),
		APIURL:   os.Getenv(EnvAPIURL),
	}
}

// LoadChatbot builds the chatbot named by cfg.ChatbotType. A dummy chatbot
// draws from the reference answers of ds when ds is non-nil and has any,
// and from chatbot.DefaultAnswers otherwise.
func LoadChatbot(cfg *Config, ds *dataset.Dataset, creds Credentials, deps Dependencies) (ports.ChatBot, error) {
	opts := []chatbot.Option{
		chatbot.WithLogger(deps.logger()),
		chatbot.WithMetrics(deps.Metrics),
	}

	switch cfg.ChatbotType {
	case "", "dummy":
		answers := chatbot.DefaultAnswers
		defaultAnswer := answers[0]
		if ds != nil {
			if refs := dataset.ReferenceAnswers(ds, cfg.PromptLanguage()); len(refs) > 0 {
				answers = refs
			}
		}
		return chatbot.NewDummy(answers, defaultAnswer, opts...)

	case "api":
		url := cfg.API.URL
		if url == "" {
			url = creds.APIURL
		}
		if url == "" {
			url = DefaultAPIURL
		}
		return chatbot.NewAPI(chatbot.APIConfig{
			URL:               url,
			Token:             creds.APIToken,
			TokenType:         cfg.API.TokenType,
			Approach:          cfg.API.Approach,
			RetrievalMode:     cfg.API.RetrievalMode,
			RequestsPerSecond: cfg.API.RequestsPerSecond,
		}, opts...), nil

	case "lib":
		return nil, fmt.Errorf("chatbot type lib: %w", domain.ErrNotImplemented)

	default:
		return nil, ports.NewConfigError("chatbot_type",
			fmt.Errorf("%w: chatbot %q", ports.ErrUnknownComponent, cfg.ChatbotType))
	}
}

// LoadScorers builds the configured scorers in order.
func LoadScorers(ctx context.Context, cfg *Config, registry *ScorerRegistry, deps Dependencies) ([]ports.Scorer, error) {
	if registry == nil {
		registry = NewScorerRegistry()
	}
	scorers := make([]ports.Scorer, 0, len(cfg.Scorers))
	for _, name := range cfg.Scorers {
		s, err := registry.Create(ctx, name, cfg, deps)
		if err != nil {
			return nil, err
		}
		scorers = append(scorers, s)
	}
	return scorers, nil
}

// LoadDataset reads the dataset at cfg.DatasetPath.
func LoadDataset(cfg *Config, logger *slog.Logger) (*dataset.Dataset, error) {
	ds, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("dataset loaded", "path", cfg.DatasetPath, "type", ds.Type(), "records", ds.Len())
	}
	return ds, nil
}
