// Package domain holds the core evaluation entities: dataset records, chat
// turns, evaluation results and the history formatter that converts between
// flat questions and structured conversations.
package domain

import (
	"time"
)

// DatasetType discriminates the two dataset shapes the loader understands.
// It is fixed when a dataset is loaded and never changes afterwards.
type DatasetType string

const (
	// DatasetSingle marks a dataset of independent question/answer pairs.
	DatasetSingle DatasetType = "single"
	// DatasetMultiple marks a dataset of multi-turn chat sessions.
	DatasetMultiple DatasetType = "multiple"
)

// Placeholder values filled in for missing or absent fields.
const (
	// NoReferenceAnswer is used as the reference when the last turn of a
	// chat session carries no bot reply.
	NoReferenceAnswer = "No reference answer provided."
	// DefaultSessionMessage replaces an empty chat session message.
	DefaultSessionMessage = "No message provided."
	// NoBotResponse renders an absent bot reply inside a collapsed history.
	NoBotResponse = "No response."
)

// Record is a single dataset row. It is a closed sum type: the only
// implementations are QAPair and ChatSession, so a type switch over the two
// is exhaustive.
type Record interface {
	// DatasetType reports which dataset shape the record belongs to.
	DatasetType() DatasetType

	isRecord()
}

// QAPair is one single-turn evaluation sample.
type QAPair struct {
	PairID        int     `json:"pair_id"`
	QuestionID    int     `json:"question_id"`
	AnswerID      int     `json:"answer_id"`
	QuestionText  string  `json:"question_text"`
	AnswerText    string  `json:"answer_text"`
	// AnswerQuality is NaN when the dataset leaves it empty.
	AnswerQuality float64 `json:"answer_quality"`
}

// DatasetType implements Record.
func (QAPair) DatasetType() DatasetType { return DatasetSingle }

func (QAPair) isRecord() {}

// Turn is one user utterance with an optional bot reply. A nil Bot means the
// turn is still waiting for an answer.
type Turn struct {
	User string  `json:"user"`
	Bot  *string `json:"bot,omitempty"`
}

// NewTurn builds a turn with a bot reply.
func NewTurn(user, bot string) Turn {
	return Turn{User: user, Bot: &bot}
}

// BotText returns the bot reply and whether one is present.
func (t Turn) BotText() (string, bool) {
	if t.Bot == nil {
		return "", false
	}
	return *t.Bot, true
}

// ChatSession is one multi-turn conversation with an overall rating.
type ChatSession struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	History   []Turn    `json:"history" validate:"required,min=1,dive"`
	// Rating is normalized to [-1, 1]; see ScaleRating.
	Rating  float64 `json:"rating" validate:"min=-1,max=1"`
	Message string  `json:"message"`
}

// DatasetType implements Record.
func (ChatSession) DatasetType() DatasetType { return DatasetMultiple }

func (ChatSession) isRecord() {}

// LastTurn returns the final turn of the conversation.
func (s ChatSession) LastTurn() (Turn, bool) {
	if len(s.History) == 0 {
		return Turn{}, false
	}
	return s.History[len(s.History)-1], true
}

// ScaleRating maps a rating on the external 1..5 scale onto [-1, 1].
func ScaleRating(raw float64) float64 {
	return ((raw-1)/4)*2 - 1
}
