package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/kaptinlin/jsonrepair"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

// PlaceholderLLMScore is returned when no judge model is configured.
const PlaceholderLLMScore = 0.85

const judgePrompt = `You grade a chatbot answer against a reference answer.
Score how well the chatbot answer conveys the same information as the reference,
from 0.0 (unrelated or contradictory) to 1.0 (equivalent).

Reference answer:
{{.Reference}}

Chatbot answer:
{{.Predicted}}

Respond with valid JSON in exactly this format:
{"score": <0.0-1.0>, "reasoning": "<one sentence>"}`

var judgeTemplate = template.Must(template.New("judge").Parse(judgePrompt))

type judgeVerdict struct {
	Score     *float64 `json:"score"`
	Reasoning string   `json:"reasoning"`
}

var _ ports.Scorer = (*LLMJudge)(nil)

// LLMJudge asks a language model to rate the predicted answer. Without a
// client it returns PlaceholderLLMScore.
type LLMJudge struct {
	client ports.LLMClient
	logger *slog.Logger
}

// NewLLMJudge returns a judge backed by client, which may be nil.
func NewLLMJudge(client ports.LLMClient, opts ...Option) *LLMJudge {
	s := applyOptions(opts)
	return &LLMJudge{client: client, logger: s.logger}
}

// Score returns the model's verdict clamped to [0, 1].
func (j *LLMJudge) Score(ctx context.Context, predicted, reference string) (float64, error) {
	ctx, span := startSpan(ctx, LLMType, predicted, reference)
	defer span.End()

	if j.client == nil {
		return PlaceholderLLMScore, nil
	}
	span.SetAttributes(attribute.String("llm.model", j.client.GetModel()))

	var prompt bytes.Buffer
	if err := judgeTemplate.Execute(&prompt, struct{ Reference, Predicted string }{reference, predicted}); err != nil {
		return 0, fail(j.logger, span, LLMType, fmt.Errorf("render judge prompt: %w", err))
	}

	response, err := j.client.Complete(ctx, prompt.String(), map[string]any{
		"temperature": 0.0,
		"max_tokens":  256,
	})
	if err != nil {
		return 0, fail(j.logger, span, LLMType, fmt.Errorf("judge request: %w", err))
	}

	verdict, err := parseVerdict(response)
	if err != nil {
		return 0, fail(j.logger, span, LLMType, err)
	}
	j.logger.Debug("judge verdict", "score", *verdict.Score, "reasoning", verdict.Reasoning)
	return min(domain.ClampScore(*verdict.Score), 1), nil
}

// parseVerdict extracts the JSON verdict from a model response, repairing
// near-JSON (single quotes, trailing commas) when strict decoding fails.
func parseVerdict(response string) (judgeVerdict, error) {
	raw := extractJSON(response)
	if raw == "" {
		return judgeVerdict{}, fmt.Errorf("no JSON object in judge response (%d chars)", len(response))
	}

	var v judgeVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(raw)
		if rerr != nil {
			return judgeVerdict{}, fmt.Errorf("decode judge verdict: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &v); err != nil {
			return judgeVerdict{}, fmt.Errorf("decode repaired judge verdict: %w", err)
		}
	}
	if v.Score == nil {
		return judgeVerdict{}, fmt.Errorf("judge verdict has no score")
	}
	return v, nil
}

// extractJSON returns the first JSON object in response, looking inside
// markdown code fences first.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if start := strings.Index(response, "```"); start != -1 {
		body := response[start+3:]
		if nl := strings.Index(body, "\n"); nl != -1 {
			body = body[nl+1:]
		}
		if end := strings.Index(body, "```"); end != -1 {
			if candidate := strings.TrimSpace(body[:end]); strings.HasPrefix(candidate, "{") {
				return candidate
			}
		}
	}

	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	// Unbalanced: hand the tail to the repairer.
	return response[start:]
}

// Type returns llm/float.
func (j *LLMJudge) Type() ports.ScorerType { return LLMType }
