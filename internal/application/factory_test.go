package application

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-chateval/infrastructure/chatbot"
	"github.com/ahrav/go-chateval/internal/dataset"
	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
	"github.com/ahrav/go-chateval/internal/testutils"
)

func TestLoadChatbotDummy(t *testing.T) {
	t.Run("default answers without dataset", func(t *testing.T) {
		bot, err := LoadChatbot(DefaultConfig(), nil, Credentials{}, Dependencies{})
		require.NoError(t, err)

		dummy, ok := bot.(*chatbot.Dummy)
		require.True(t, ok)
		assert.Equal(t, chatbot.DefaultAnswers, dummy.Answers())
		assert.Equal(t, "42.", dummy.DefaultAnswer())
	})

	t.Run("reference answers from dataset", func(t *testing.T) {
		ds, err := dataset.Load(filepath.Join("testdata", "qa_pairs.csv"))
		require.NoError(t, err)

		bot, err := LoadChatbot(DefaultConfig(), ds, Credentials{}, Dependencies{})
		require.NoError(t, err)

		dummy := bot.(*chatbot.Dummy)
		assert.Equal(t, []string{"Paris is the capital of France.", "William Shakespeare."}, dummy.Answers())
		assert.Equal(t, "42.", dummy.DefaultAnswer())
	})
}

func TestLoadChatbotAPI(t *testing.T) {
	tests := []struct {
		name     string
		cfgURL   string
		envURL   string
		endpoint string
	}{
		{name: "config url wins", cfgURL: "cfg.example.com", envURL: "env.example.com", endpoint: "https://cfg.example.com/chat"},
		{name: "credentials url", envURL: "env.example.com", endpoint: "https://env.example.com/chat"},
		{name: "default url", endpoint: "https://" + DefaultAPIURL + "/chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ChatbotType = "api"
			cfg.API.URL = tt.cfgURL

			bot, err := LoadChatbot(cfg, nil, Credentials{APIToken: "secret", APIURL: tt.envURL}, Dependencies{})
			require.NoError(t, err)

			api, ok := bot.(*chatbot.API)
			require.True(t, ok)
			assert.Equal(t, tt.endpoint, api.Endpoint())
			assert.NotContains(t, api.GetParameters(), "token")
		})
	}
}

func TestLoadChatbotErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChatbotType = "lib"
	_, err := LoadChatbot(cfg, nil, Credentials{}, Dependencies{})
	assert.ErrorIs(t, err, domain.ErrNotImplemented)

	cfg.ChatbotType = "oracle"
	_, err = LoadChatbot(cfg, nil, Credentials{}, Dependencies{})
	assert.ErrorIs(t, err, ports.ErrUnknownComponent)
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv(EnvAPIToken, "tok")
	t.Setenv(EnvAPIURL, "chat.example.com")

	assert.Equal(t, Credentials{APIToken: "tok", APIURL: "chat.example.com"}, CredentialsFromEnv())
}

func TestLoadScorers(t *testing.T) {
	ctx := context.Background()
	deps := Dependencies{Embedder: testutils.HashEmbedder{}}

	cfg := DefaultConfig()
	cfg.Scorers = []string{"sbert", "dummy", "fuzzy"}
	scorers, err := LoadScorers(ctx, cfg, nil, deps)
	require.NoError(t, err)

	keys := make([]string, 0, len(scorers))
	for _, s := range scorers {
		keys = append(keys, s.Type().Key())
	}
	assert.Equal(t, []string{"sbert_cosine_sim", "dummy_similarity", "fuzzy_levenshtein"}, keys)

	cfg.Scorers = []string{"dummy", "meteor"}
	_, err = LoadScorers(ctx, cfg, nil, deps)
	assert.ErrorIs(t, err, ports.ErrUnknownComponent)

	cfg.Scorers = nil
	scorers, err = LoadScorers(ctx, cfg, nil, deps)
	require.NoError(t, err)
	assert.Empty(t, scorers)
}

func TestLoadDataset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DatasetPath = filepath.Join("testdata", "chat_history.csv")

	ds, err := LoadDataset(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DatasetMultiple, ds.Type())
	assert.Equal(t, 5, ds.Len())

	cfg.DatasetPath = filepath.Join(t.TempDir(), "missing.csv")
	_, err = LoadDataset(cfg, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
