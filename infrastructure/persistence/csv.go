// Package persistence writes evaluation results: a flat CSV per run and an
// optional SQLite store that accumulates runs.
package persistence

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"

	"github.com/ahrav/go-chateval/internal/domain"
)

// Output defaults.
const (
	DefaultOutputDirectory = "./results"
	DefaultOutputFilename  = "evaluation_results.csv"
)

// resultColumns lead every results file.
var resultColumns = []string{"index", "question", "reference_answer", "predicted_answer", "duration"}

// Options are the caller's fallbacks for the output location. Config keys
// results_directory and results_filename take precedence.
type Options struct {
	OutputDirectory string
	OutputFilename  string
	Logger          *slog.Logger
}

// WriteCSV writes one row per result. After the result columns come the
// score keys, then the config keys, then the parameter keys, each sorted.
// Config and parameter values repeat on every row. A key naming a
// configured scorer is written as "<key>_params"; a parameter overrides a
// config entry of the same name. It returns the written path.
func WriteCSV(results []domain.EvaluationResult, config, params map[string]any, opts Options) (string, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := OutputPath(config, opts)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create results directory: %w", err)
	}

	scoreKeys := collectScoreKeys(results)
	extraKeys, extraValues, err := constantColumns(config, params)
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := slices.Concat(resultColumns, scoreKeys, extraKeys)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for _, r := range results {
		row := make([]string, 0, len(header))
		row = append(row,
			strconv.Itoa(r.Index),
			r.Question,
			r.ReferenceAnswer,
			r.PredictedAnswer,
			formatFloat(r.Duration),
		)
		for _, k := range scoreKeys {
			if v, ok := r.Scores[k]; ok {
				row = append(row, formatFloat(v))
			} else {
				row = append(row, "")
			}
		}
		row = append(row, extraValues...)
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("write row %d: %w", r.Index, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush results: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close results file: %w", err)
	}

	logger.Info("saved evaluation results", "path", path, "rows", len(results))
	return path, nil
}

// OutputPath resolves the results file location.
func OutputPath(config map[string]any, opts Options) string {
	dir := stringValue(config, "results_directory")
	if dir == "" {
		dir = opts.OutputDirectory
	}
	if dir == "" {
		dir = DefaultOutputDirectory
	}

	name := stringValue(config, "results_filename")
	if name == "" {
		name = opts.OutputFilename
	}
	if name == "" {
		name = DefaultOutputFilename
	}
	return filepath.Join(dir, name)
}

func stringValue(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func collectScoreKeys(results []domain.EvaluationResult) []string {
	seen := make(map[string]struct{})
	for _, r := range results {
		for k := range r.Scores {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// constantColumns returns the config and parameter column names and their
// rendered values.
func constantColumns(config, params map[string]any) ([]string, []string, error) {
	scorers := scorerNames(config["scorers"])

	var keys []string
	values := make(map[string]any)
	add := func(src map[string]any) {
		sorted := make([]string, 0, len(src))
		for k := range src {
			sorted = append(sorted, k)
		}
		sort.Strings(sorted)
		for _, k := range sorted {
			column := k
			if _, ok := scorers[k]; ok {
				column = k + "_params"
			}
			if _, exists := values[column]; !exists {
				keys = append(keys, column)
			}
			values[column] = src[k]
		}
	}
	add(config)
	add(params)

	rendered := make([]string, len(keys))
	for i, k := range keys {
		s, err := formatValue(values[k])
		if err != nil {
			return nil, nil, fmt.Errorf("encode column %s: %w", k, err)
		}
		rendered[i] = s
	}
	return keys, rendered, nil
}

func scorerNames(v any) map[string]struct{} {
	names := make(map[string]struct{})
	switch list := v.(type) {
	case []string:
		for _, s := range list {
			names[s] = struct{}{}
		}
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok {
				names[s] = struct{}{}
			}
		}
	}
	return names
}

// formatValue renders scalars plainly and everything else as JSON.
func formatValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return formatFloat(x), nil
	case float32:
		return formatFloat(float64(x)), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
