package chatbot

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/ahrav/go-chateval/internal/domain"
	"github.com/ahrav/go-chateval/internal/ports"
)

// FallbackAnswer is returned when a dummy chatbot has neither answers nor a
// default answer.
const FallbackAnswer = "I'm not sure how to respond to that."

// DefaultAnswers seed a dummy chatbot built from configuration alone.
var DefaultAnswers = []string{"42.", "Great question.", "I don't know.", "Hakuna matata."}

var (
	errNoAnswers       = errors.New("must provide at least one answer or a default answer")
	errEmptyAnswers    = errors.New("answers list cannot be empty")
	errEmptyDefaultAns = errors.New("default answer cannot be empty")
)

var _ ports.ChatBot = (*Dummy)(nil)

// Dummy answers with a random entry of a fixed list. It ignores the
// question.
type Dummy struct {
	mu            sync.Mutex
	answers       []string
	defaultAnswer string
	rng           *rand.Rand
	logger        *slog.Logger
}

// NewDummy returns a dummy chatbot. At least one of answers and
// defaultAnswer must be non-empty.
func NewDummy(answers []string, defaultAnswer string, opts ...Option) (*Dummy, error) {
	if len(answers) == 0 && defaultAnswer == "" {
		return nil, ports.NewConfigError("answers", errNoAnswers)
	}

	s := applyOptions(opts)
	var src rand.Source
	if s.seed != nil {
		src = rand.NewPCG(*s.seed, *s.seed)
	} else {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}

	return &Dummy{
		answers:       append([]string(nil), answers...),
		defaultAnswer: defaultAnswer,
		rng:           rand.New(src),
		logger:        s.logger.With("chatbot_type", "dummy"),
	}, nil
}

// GetResponse picks a random answer, falling back to the default answer
// and then to FallbackAnswer.
func (d *Dummy) GetResponse(_ context.Context, _ domain.Prompt) (string, error) {
	d.logger.Info("received question")

	d.mu.Lock()
	defer d.mu.Unlock()

	switch {
	case len(d.answers) > 0:
		answer := d.answers[d.rng.IntN(len(d.answers))]
		d.logger.Info("returning random answer", "answer", preview(answer))
		return answer, nil
	case d.defaultAnswer != "":
		return d.defaultAnswer, nil
	default:
		d.logger.Warn("no answers available", "answer", FallbackAnswer)
		return FallbackAnswer, nil
	}
}

// Answers returns a copy of the candidate answers.
func (d *Dummy) Answers() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.answers...)
}

// SetAnswers replaces the candidate answers. An empty list is rejected.
func (d *Dummy) SetAnswers(answers []string) error {
	if len(answers) == 0 {
		d.logger.Error("answers list cannot be empty")
		return ports.NewConfigError("answers", errEmptyAnswers)
	}
	d.mu.Lock()
	d.answers = append([]string(nil), answers...)
	d.mu.Unlock()
	return nil
}

// DefaultAnswer returns the default answer.
func (d *Dummy) DefaultAnswer() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.defaultAnswer
}

// SetDefaultAnswer replaces the default answer. An empty answer is
// rejected.
func (d *Dummy) SetDefaultAnswer(answer string) error {
	if answer == "" {
		d.logger.Error("default answer cannot be empty")
		return ports.NewConfigError("default_answer", errEmptyDefaultAns)
	}
	d.mu.Lock()
	d.defaultAnswer = answer
	d.mu.Unlock()
	return nil
}

// GetParameters returns {"chatbot_type": "dummy"}.
func (d *Dummy) GetParameters() map[string]any {
	return map[string]any{"chatbot_type": "dummy"}
}
