package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-chateval/infrastructure/scoring"
	"github.com/ahrav/go-chateval/internal/dataset"
	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
	"github.com/ahrav/go-chateval/internal/testutils"
)

func loadTestDataset(t *testing.T, name string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	return ds
}

func TestRunEvaluationChatSessions(t *testing.T) {
	ds := loadTestDataset(t, "chat_history.csv")
	cfg := DefaultConfig()

	bot, err := LoadChatbot(cfg, ds, Credentials{}, Dependencies{})
	require.NoError(t, err)
	refs := dataset.ReferenceAnswers(ds, domain.English)

	results, err := RunEvaluation(context.Background(),
		WithConfig(cfg),
		WithChatbot(bot),
		WithScorers(scoring.NewDummy(scoring.DefaultDummySeed)),
		WithDataset(ds),
	)
	require.NoError(t, err)
	require.Len(t, results, 5)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.GreaterOrEqual(t, r.Duration, 0.0)
		assert.NotEmpty(t, r.Question)
		assert.NotEmpty(t, r.ReferenceAnswer)
		assert.NotEmpty(t, r.PredictedAnswer)
		assert.Contains(t, refs, r.PredictedAnswer)

		require.Len(t, r.Scores, 1)
		v, ok := r.Scores["dummy_similarity"]
		require.True(t, ok)
		assert.GreaterOrEqual(t, v, 0.0)
	}

	assert.Equal(t, "Glad to help!", results[4].ReferenceAnswer)
	assert.Contains(t, results[3].Question, "This is our past conversation:")
}

func TestRunEvaluationQAPairs(t *testing.T) {
	ds := loadTestDataset(t, "qa_pairs.csv")
	bot := &testutils.MockChatBot{Answers: []string{"Paris.", "Shakespeare.", "100 degrees"}}
	fixed := &testutils.MockScorer{Tag: ports.ScorerType{Family: "fixed", Metric: "value"}, Value: 0.5}

	results, err := RunEvaluation(context.Background(),
		WithConfig(DefaultConfig()),
		WithChatbot(bot),
		WithScorers(fixed, scoring.NewFuzzy(false)),
		WithDataset(ds),
	)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "What is the capital of France?", results[0].Question)
	assert.Equal(t, "Paris is the capital of France.", results[0].ReferenceAnswer)
	assert.Equal(t, "Paris.", results[0].PredictedAnswer)
	assert.Equal(t, "", results[2].ReferenceAnswer)
	assert.Equal(t, []string{"fixed_value", "fuzzy_levenshtein"}, results[1].ScoreKeys())
	assert.Equal(t, 3, fixed.Calls())

	require.Len(t, bot.Prompts, 3)
	assert.False(t, bot.Prompts[0].IsHistory())
	assert.Equal(t, "Who wrote Hamlet?", bot.Prompts[1].Question(domain.English))
}

func TestRunEvaluationNoScorers(t *testing.T) {
	results, err := RunEvaluation(context.Background(),
		WithConfig(DefaultConfig()),
		WithChatbot(&testutils.MockChatBot{Answers: []string{"x"}}),
		WithScorers(),
		WithDataset(loadTestDataset(t, "qa_pairs.csv")),
	)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.NotNil(t, r.Scores)
		assert.Empty(t, r.Scores)
	}
}

func TestRunEvaluationFailsFast(t *testing.T) {
	errScore := ports.NewScoringError("sbert_cosine_sim", errors.New("model unavailable"))
	errBot := errors.New("chatbot exploded")

	tests := []struct {
		name      string
		bot       *testutils.MockChatBot
		scorer    *testutils.MockScorer
		wantErr   error
		wantCalls int
	}{
		{
			name:      "scorer error",
			bot:       &testutils.MockChatBot{Answers: []string{"a"}},
			scorer:    &testutils.MockScorer{Tag: scoring.SBERTType, Err: errScore},
			wantErr:   errScore,
			wantCalls: 1,
		},
		{
			name:      "chatbot error",
			bot:       &testutils.MockChatBot{Err: errBot},
			scorer:    &testutils.MockScorer{Tag: scoring.DummyType},
			wantErr:   errBot,
			wantCalls: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := RunEvaluation(context.Background(),
				WithConfig(DefaultConfig()),
				WithChatbot(tt.bot),
				WithScorers(tt.scorer),
				WithDataset(loadTestDataset(t, "qa_pairs.csv")),
			)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, results)
			assert.Equal(t, 1, tt.bot.Calls())
			assert.Equal(t, tt.wantCalls, tt.scorer.Calls())
			assert.False(t, ports.IsRecoverable(err))
		})
	}
}

func TestRunEvaluationCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	bot := &testutils.MockChatBot{Answers: []string{"a"}}
	_, err := RunEvaluation(ctx,
		WithConfig(DefaultConfig()),
		WithChatbot(bot),
		WithScorers(),
		WithDataset(loadTestDataset(t, "qa_pairs.csv")),
	)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, bot.Calls())
}

func TestRunEvaluationFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("testdata", "qa_pairs.csv"))
	require.NoError(t, err)
	dsPath := filepath.Join(dir, "qa.csv")
	require.NoError(t, os.WriteFile(dsPath, data, 0o600))

	cfgPath := filepath.Join(dir, "config_eval.yaml")
	cfgYAML := "chatbot_type: dummy\ndataset_path: " + dsPath + "\nscorers: [dummy, fuzzy, llm]\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgYAML), 0o600))

	metrics := &testutils.RecordingMetrics{}
	results, err := RunEvaluation(context.Background(), WithConfigPath(cfgPath), WithMetrics(metrics))
	require.NoError(t, err)
	require.Len(t, results, 3)

	for _, r := range results {
		assert.Equal(t, []string{"dummy_similarity", "fuzzy_levenshtein", "llm_float"}, r.ScoreKeys())
		assert.Equal(t, scoring.PlaceholderLLMScore, r.Scores["llm_float"])
		assert.Contains(t, []string{"42.", "Great question.", "I don't know.", "Hakuna matata."}, r.PredictedAnswer)
	}

	assert.Len(t, metrics.Calls("counter", "records_evaluated_total"), 3)
	assert.Len(t, metrics.Calls("histogram", "score"), 9)
	runs := metrics.Calls("latency", "evaluation_run")
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Labels["status"])
}

func TestNewEvaluatorLoadOrder(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing config", func(t *testing.T) {
		_, err := NewEvaluator(context.Background(), WithConfigPath(filepath.Join(dir, "none.yaml")))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("chatbot before scorers", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ChatbotType = "lib"
		cfg.Scorers = []string{"unknown"}
		_, err := NewEvaluator(context.Background(), WithConfig(cfg))
		assert.ErrorIs(t, err, domain.ErrNotImplemented)
	})

	t.Run("scorers before dataset", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Scorers = []string{"unknown"}
		cfg.DatasetPath = filepath.Join(dir, "missing.csv")
		_, err := NewEvaluator(context.Background(), WithConfig(cfg))
		assert.ErrorIs(t, err, ports.ErrUnknownComponent)
	})

	t.Run("missing dataset", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DatasetPath = filepath.Join(dir, "missing.csv")
		_, err := NewEvaluator(context.Background(), WithConfig(cfg))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestRunEvaluationSlowResponseIsNotCutOff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ResponseTimeLimit = 0.01

	bot := &testutils.MockChatBot{Answers: []string{"slow"}, Delay: 30 * time.Millisecond}
	ds, err := dataset.New(domain.DatasetSingle, []domain.Record{
		domain.QAPair{PairID: 1, QuestionID: 1, AnswerID: 1, QuestionText: "q", AnswerText: "a"},
	})
	require.NoError(t, err)

	results, err := RunEvaluation(context.Background(),
		WithConfig(cfg), WithChatbot(bot), WithScorers(), WithDataset(ds))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "slow", results[0].PredictedAnswer)
}
