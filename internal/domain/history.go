package domain

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Language selects the wording used when a history is collapsed into a
// single prompt.
type Language string

const (
	// English is the default prompt language.
	English Language = "en"
	// German renders the conversation framing in German.
	German Language = "de"
)

type promptFraming struct {
	presentation string
	query        string
}

var framings = map[Language]promptFraming{
	English: {
		presentation: "This is our past conversation:",
		query:        "Now, this is my last question, which you are asked to answer:",
	},
	German: {
		presentation: "Dies ist unser bisheriges Gespräch:",
		query:        "Nun, hier ist meine letzte Frage, die du beantworten sollst:",
	},
}

// ParseLanguage resolves a language code case-insensitively. An empty
// string selects English.
func ParseLanguage(s string) (Language, error) {
	if strings.TrimSpace(s) == "" {
		return English, nil
	}
	lang := Language(cases.Fold().String(strings.TrimSpace(s)))
	if _, ok := framings[lang]; !ok {
		return "", fmt.Errorf("%w: unsupported language %q", ErrInvalidConfiguration, s)
	}
	return lang, nil
}

// QuestionToHistory wraps a bare question as the only turn of a history.
func QuestionToHistory(question string) []Turn {
	return []Turn{{User: question}}
}

// HistoryToQuestion collapses a conversation into one self-contained prompt.
// A single turn yields its user text verbatim. Longer histories render every
// turn but the last as context and end with the last user message. Unknown
// languages fall back to English.
func HistoryToQuestion(history []Turn, lang Language) string {
	switch len(history) {
	case 0:
		return ""
	case 1:
		return history[0].User
	}

	framing, ok := framings[lang]
	if !ok {
		framing = framings[English]
	}

	lines := make([]string, 0, len(history)-1)
	for _, turn := range history[:len(history)-1] {
		bot, ok := turn.BotText()
		if !ok {
			bot = NoBotResponse
		}
		lines = append(lines, fmt.Sprintf("User: %s\nBot: %s", turn.User, bot))
	}

	last := history[len(history)-1]
	return fmt.Sprintf("%s\n\n%s\n\n%s\n\nUser: %s",
		framing.presentation, strings.Join(lines, "\n"), framing.query, last.User)
}

// Prompt is the input handed to a chatbot. It carries either a bare question
// or a structured history, never both.
type Prompt struct {
	question string
	history  []Turn
}

// PromptFromQuestion builds a prompt from a bare question.
func PromptFromQuestion(question string) Prompt {
	return Prompt{question: question}
}

// PromptFromHistory builds a prompt from a conversation history.
func PromptFromHistory(history []Turn) Prompt {
	return Prompt{history: history}
}

// IsHistory reports whether the prompt was built from a history.
func (p Prompt) IsHistory() bool { return p.history != nil }

// Question returns the prompt as flat text, collapsing a history if needed.
func (p Prompt) Question(lang Language) string {
	if p.history != nil {
		return HistoryToQuestion(p.history, lang)
	}
	return p.question
}

// History returns the prompt as turns, upgrading a bare question to a
// one-turn history.
func (p Prompt) History() []Turn {
	if p.history != nil {
		return p.history
	}
	return QuestionToHistory(p.question)
}
