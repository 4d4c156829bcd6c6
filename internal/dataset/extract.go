package dataset

import (
	"fmt"

	"github.com/ahrav/go-chateval/internal/domain"
)

// ExtractQuestionReference returns the prompt text and reference answer of
// a record. Chat sessions collapse their history into one prompt and use the
// last bot reply as the reference, or domain.NoReferenceAnswer when the
// last turn has none.
func ExtractQuestionReference(r domain.Record, lang domain.Language) (question, reference string, err error) {
	switch rec := r.(type) {
	case domain.QAPair:
		return rec.QuestionText, rec.AnswerText, nil
	case domain.ChatSession:
		reference = domain.NoReferenceAnswer
		if last, ok := rec.LastTurn(); ok {
			if bot, ok := last.BotText(); ok {
				reference = bot
			}
		}
		return domain.HistoryToQuestion(rec.History, lang), reference, nil
	default:
		return "", "", fmt.Errorf("%w: unsupported record type %T", domain.ErrUnknownFormat, r)
	}
}

// ReferenceAnswers collects the non-empty reference answers of a dataset in
// order. They seed the fixed-list chatbot so that its answers are drawn from
// the same distribution as the references.
func ReferenceAnswers(ds *Dataset, lang domain.Language) []string {
	refs := make([]string, 0, ds.Len())
	for _, rec := range ds.All() {
		_, ref, err := ExtractQuestionReference(rec, lang)
		if err != nil || ref == "" {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
