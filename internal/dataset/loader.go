// Package dataset loads evaluation datasets from CSV files. A file holds
// either independent question/answer pairs or multi-turn chat sessions; the
// shape is detected from the header and fixed for the lifetime of the
// returned Dataset.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-chateval/internal/domain"
)

// TimestampLayout is the chat session timestamp format. Fractional seconds
// are accepted on parse even though the layout does not name them.
const TimestampLayout = "2.1.2006, 15:04:05"

// timestampWriteLayout matches the fixture files, microseconds included.
const timestampWriteLayout = "02.01.2006, 15:04:05.000000"

// Column sets for schema detection.
var (
	SingleColumns   = []string{"pair_id", "question_id", "answer_id", "question_text", "answer_text", "answer_quality"}
	MultipleColumns = []string{"id", "timestamp", "history", "rating", "message"}
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Dataset is a homogeneous, validated sequence of records.
type Dataset struct {
	path    string
	kind    domain.DatasetType
	records []domain.Record
}

// New builds a dataset from already typed records. All records must share
// the dataset type.
func New(kind domain.DatasetType, records []domain.Record) (*Dataset, error) {
	for i, r := range records {
		if r.DatasetType() != kind {
			return nil, fmt.Errorf("%w: record %d is %s in a %s dataset",
				domain.ErrInvalidConfiguration, i, r.DatasetType(), kind)
		}
	}
	return &Dataset{kind: kind, records: records}, nil
}

// Path returns the file the dataset was loaded from, if any.
func (d *Dataset) Path() string { return d.path }

// Type returns the dataset type fixed at load time.
func (d *Dataset) Type() domain.DatasetType { return d.kind }

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// All yields (row ordinal, record) pairs in file order.
func (d *Dataset) All() iter.Seq2[int, domain.Record] {
	return func(yield func(int, domain.Record) bool) {
		for i, r := range d.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Load reads and validates the dataset at path.
//
// It returns a *domain.NotFoundError when the file is missing, a
// *domain.FormatError when the header matches neither schema and a
// *domain.ValidationError for the first row that cannot be coerced.
func Load(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewNotFoundError(path, err)
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := Read(path, f)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// Read parses a dataset from r. name is used in errors only.
func Read(name string, r io.Reader) (*Dataset, error) {
	rows, err := readRows(r)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, domain.NewFormatError(name, nil)
	}

	header := normalizeHeader(rows[0])
	kind, ok := DetectType(header)
	if !ok {
		return nil, domain.NewFormatError(name, header)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for i, raw := range rows[1:] {
		row := csvRow{cols: cols, values: raw}

		var rec domain.Record
		switch kind {
		case domain.DatasetSingle:
			rec, err = parseQAPair(i, row)
		case domain.DatasetMultiple:
			rec, err = parseChatSession(i, row)
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return &Dataset{path: name, kind: kind, records: records}, nil
}

// DetectType picks the dataset type from a header. The single-pair schema is
// checked first.
func DetectType(columns []string) (domain.DatasetType, bool) {
	set := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		set[c] = struct{}{}
	}
	switch {
	case containsAll(set, SingleColumns):
		return domain.DatasetSingle, true
	case containsAll(set, MultipleColumns):
		return domain.DatasetMultiple, true
	default:
		return "", false
	}
}

func containsAll(set map[string]struct{}, want []string) bool {
	for _, c := range want {
		if _, ok := set[c]; !ok {
			return false
		}
	}
	return true
}

func readRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		out[i] = strings.TrimSpace(h)
	}
	return out
}

type csvRow struct {
	cols   map[string]int
	values []string
}

// get returns the cell verbatim. Text columns keep their whitespace.
func (r csvRow) get(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

// field returns the cell with surrounding whitespace removed, for numeric
// and timestamp columns.
func (r csvRow) field(col string) string {
	return strings.TrimSpace(r.get(col))
}

func parseQAPair(row int, r csvRow) (domain.Record, error) {
	verr := domain.NewRowValidationError("QAPair", row)

	pair := domain.QAPair{
		PairID:        parseIntField(verr, "pair_id", r.field("pair_id")),
		QuestionID:    parseIntField(verr, "question_id", r.field("question_id")),
		AnswerID:      parseIntField(verr, "answer_id", r.field("answer_id")),
		QuestionText:  r.get("question_text"),
		AnswerText:    r.get("answer_text"),
		AnswerQuality: parseOptionalFloatField(verr, "answer_quality", r.field("answer_quality")),
	}
	if pair.QuestionText == "" {
		verr.AddError("question_text is required")
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return pair, nil
}

func parseChatSession(row int, r csvRow) (domain.Record, error) {
	verr := domain.NewRowValidationError("ChatSession", row)

	session := domain.ChatSession{
		ID:      parseIntField(verr, "id", r.field("id")),
		Message: r.get("message"),
	}
	if session.Message == "" {
		session.Message = domain.DefaultSessionMessage
	}

	if ts := r.field("timestamp"); ts == "" {
		verr.AddError("timestamp is required")
	} else if parsed, err := time.Parse(TimestampLayout, ts); err != nil {
		verr.AddError(fmt.Sprintf("timestamp %q does not match %q", ts, TimestampLayout))
	} else {
		session.Timestamp = parsed
	}

	history, err := ParseHistory(r.get("history"))
	if err != nil {
		verr.AddError(err.Error())
	}
	session.History = history

	if raw := parseFloatField(verr, "rating", r.field("rating")); !math.IsNaN(raw) {
		session.Rating = domain.ScaleRating(raw)
	}

	if !verr.HasErrors() {
		addStructErrors(verr, session)
	}
	if verr.HasErrors() {
		return nil, verr
	}
	return session, nil
}

func addStructErrors(verr *domain.ValidationError, v any) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			verr.AddError(fmt.Sprintf("%s failed %q validation", fe.Namespace(), fe.Tag()))
		}
		return
	}
	verr.AddError(err.Error())
}

// parseIntField accepts integral floats such as "3.0", which spreadsheet
// exports commonly produce.
func parseIntField(verr *domain.ValidationError, name, s string) int {
	if s == "" {
		verr.AddError(name + " is required")
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		verr.AddError(fmt.Sprintf("%s %q is not an integer", name, s))
		return 0
	}
	return int(f)
}

// parseOptionalFloatField reads an empty cell as NaN.
func parseOptionalFloatField(verr *domain.ValidationError, name, s string) float64 {
	if s == "" {
		return math.NaN()
	}
	return parseFloatField(verr, name, s)
}

func parseFloatField(verr *domain.ValidationError, name, s string) float64 {
	if s == "" {
		verr.AddError(name + " is required")
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		verr.AddError(fmt.Sprintf("%s %q is not a number", name, s))
		return math.NaN()
	}
	return f
}
