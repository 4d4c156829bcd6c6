package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-chateval/internal/ports"
)

type stubLLM struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubLLM) Complete(_ context.Context, prompt string, _ map[string]any) (string, error) {
	s.lastPrompt = prompt
	return s.response, s.err
}

func (s *stubLLM) GetModel() string { return "stub-model" }

func TestLLMJudge_Placeholder(t *testing.T) {
	judge := NewLLMJudge(nil)
	got, err := judge.Score(context.Background(), "anything", "else")
	require.NoError(t, err)
	assert.Equal(t, PlaceholderLLMScore, got)
	assert.Equal(t, LLMType, judge.Type())
}

func TestLLMJudge_Score(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     float64
	}{
		{name: "plain json", response: `{"score": 0.7, "reasoning": "close"}`, want: 0.7},
		{name: "fenced json", response: "Here you go:\n```json\n{\"score\": 0.3}\n```", want: 0.3},
		{name: "surrounding text", response: `My verdict is {"score": 0.55, "reasoning": "uses {braces}"} overall.`, want: 0.55},
		{name: "single quotes repaired", response: `{'score': 0.4, 'reasoning': 'partial'}`, want: 0.4},
		{name: "above range", response: `{"score": 1.5}`, want: 1},
		{name: "below range", response: `{"score": -0.2}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &stubLLM{response: tt.response}
			got, err := NewLLMJudge(client).Score(context.Background(), "predicted text", "reference text")
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Contains(t, client.lastPrompt, "predicted text")
			assert.Contains(t, client.lastPrompt, "reference text")
		})
	}
}

func TestLLMJudge_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *stubLLM
	}{
		{name: "request failure", client: &stubLLM{err: errors.New("quota exceeded")}},
		{name: "no json", client: &stubLLM{response: "I would say it is pretty good."}},
		{name: "missing score", client: &stubLLM{response: `{"reasoning": "forgot"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLLMJudge(tt.client).Score(context.Background(), "p", "r")
			var serr *ports.ScoringError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, "llm_float", serr.Scorer)
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: `{"a": 1}`, want: `{"a": 1}`},
		{in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{in: `prefix {"a": {"b": "}"}} suffix`, want: `{"a": {"b": "}"}}`},
		{in: `{"a": 1`, want: `{"a": 1`},
		{in: "none", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJSON(tt.in), tt.in)
	}
}
