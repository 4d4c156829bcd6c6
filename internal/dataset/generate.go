package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ahrav/go-chateval/internal/domain"
)

type sampleSession struct {
	turns   []domain.Turn
	rating  int
	message string
}

var cookingSessions = []sampleSession{
	{
		turns: []domain.Turn{
			domain.NewTurn("How do I make a chocolate cake?",
				"Mix flour, sugar, cocoa powder, baking powder, and eggs. Bake at 350°F for 30 minutes."),
		},
		rating:  5,
		message: "The answer was very helpful.",
	},
	{
		turns: []domain.Turn{
			domain.NewTurn("What ingredients do I need for spaghetti carbonara?",
				"You need spaghetti, eggs, pancetta, parmesan cheese, and black pepper."),
		},
		rating:  4,
		message: "Good response, but a bit more detail would be great.",
	},
	{
		turns: []domain.Turn{
			domain.NewTurn("How long does it take to cook a medium-rare steak?",
				"Cook the steak for about 4-5 minutes on each side for medium-rare."),
		},
		rating:  4,
		message: "Satisfied with the answer.",
	},
	{
		turns: []domain.Turn{
			domain.NewTurn("Can I substitute almond milk for regular milk in recipes?",
				"Yes, almond milk can typically be used as a 1:1 substitute for regular milk."),
			domain.NewTurn("Even in baking?", "Yes, but the texture and taste might slightly differ."),
			domain.NewTurn("Thank you!", "You're welcome!"),
		},
		rating:  5,
		message: "Very informative and helpful response.",
	},
	{
		turns: []domain.Turn{
			domain.NewTurn("What is the best way to store fresh herbs?",
				"Wrap them in a damp paper towel and store them in the fridge."),
			domain.NewTurn("Does this work for all herbs?", "It works best for herbs like parsley, cilantro, and basil."),
			domain.NewTurn("Great, thanks!", "Glad to help!"),
		},
		rating:  3,
		message: "Answer was okay, could use more specifics.",
	},
}

// SessionRow is a chat session in its on-disk form, with the raw 1..5
// rating rather than the normalized one.
type SessionRow struct {
	ID        int
	Timestamp time.Time
	History   []domain.Turn
	Rating    int
	Message   string
}

// GenerateChatSessions returns n dummy cooking conversations, one per day
// going back from now. The built-in samples repeat when n exceeds them.
func GenerateChatSessions(n int, now time.Time) []SessionRow {
	rows := make([]SessionRow, 0, n)
	for i := range n {
		s := cookingSessions[i%len(cookingSessions)]
		rows = append(rows, SessionRow{
			ID:        i + 1,
			Timestamp: now.AddDate(0, 0, -i),
			History:   s.turns,
			Rating:    s.rating,
			Message:   s.message,
		})
	}
	return rows
}

// WriteChatSessions writes rows as a chat session CSV, creating parent
// directories as needed.
func WriteChatSessions(path string, rows []SessionRow) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(MultipleColumns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.ID),
			r.Timestamp.Format(timestampWriteLayout),
			FormatHistory(r.History),
			strconv.Itoa(r.Rating),
			r.Message,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}
