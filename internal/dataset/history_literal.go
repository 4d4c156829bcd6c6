package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/yosuke-furukawa/json5/encoding/json5"

	"github.com/ahrav/go-chateval/internal/domain"
)

var errEmptyHistory = errors.New("history is empty")

// ParseHistory decodes the serialized history column, a list literal of
// {'user': ..., 'bot': ...} maps. Single-quoted strings are read as JSON5;
// literals that JSON5 rejects (None, True, trailing junk) go through
// jsonrepair first.
func ParseHistory(s string) ([]domain.Turn, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyHistory
	}
	s = rewriteHexEscapes(s)

	var raw []map[string]any
	if err := json5.Unmarshal([]byte(s), &raw); err != nil {
		repaired, rerr := jsonrepair.JSONRepair(s)
		if rerr != nil {
			return nil, fmt.Errorf("history is not a list literal: %w", err)
		}
		raw = nil
		if jerr := json.Unmarshal([]byte(repaired), &raw); jerr != nil {
			return nil, fmt.Errorf("history is not a list literal: %w", err)
		}
	}
	if len(raw) == 0 {
		return nil, errEmptyHistory
	}

	turns := make([]domain.Turn, 0, len(raw))
	for i, m := range raw {
		user, ok := m["user"].(string)
		if !ok {
			return nil, fmt.Errorf("history turn %d: user must be a string", i)
		}
		turn := domain.Turn{User: user}

		switch bot := m["bot"].(type) {
		case nil:
		case string:
			turn.Bot = &bot
		default:
			return nil, fmt.Errorf("history turn %d: bot must be a string or None", i)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// rewriteHexEscapes turns \xNN escapes inside string literals into \u00NN,
// which both decoders understand. Other escapes are copied unchanged.
func rewriteHexEscapes(s string) string {
	if !strings.Contains(s, `\x`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == 0:
			if c == '\'' || c == '"' {
				quote = c
			}
		case c == '\\' && i+1 < len(s):
			if s[i+1] == 'x' && i+3 < len(s) && isHexDigit(s[i+2]) && isHexDigit(s[i+3]) {
				b.WriteString(`\u00`)
				b.WriteString(s[i+2 : i+4])
				i += 3
				continue
			}
			b.WriteByte(c)
			b.WriteByte(s[i+1])
			i++
			continue
		case c == quote:
			quote = 0
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isHexDigit(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// FormatHistory renders turns in the literal form ParseHistory reads.
func FormatHistory(turns []domain.Turn) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, t := range turns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("{'user': ")
		b.WriteString(quoteLiteral(t.User))
		b.WriteString(", 'bot': ")
		if bot, ok := t.BotText(); ok {
			b.WriteString(quoteLiteral(bot))
		} else {
			b.WriteString("None")
		}
		b.WriteByte('}')
	}
	b.WriteByte(']')
	return b.String()
}

// quoteLiteral single-quotes s, switching to double quotes when s holds an
// apostrophe but no double quote.
func quoteLiteral(s string) string {
	quote := byte('\'')
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
