package domain

import (
	"math"
	"sort"
)

// EvaluationResult is the outcome of evaluating one dataset record.
type EvaluationResult struct {
	Index           int     `json:"index"`
	Question        string  `json:"question"`
	ReferenceAnswer string  `json:"reference_answer"`
	PredictedAnswer string  `json:"predicted_answer"`
	Duration        float64 `json:"duration"`
	// Scores maps "<family>_<metric>" to the score value.
	Scores map[string]float64 `json:"scores"`
}

// ScoreKeys returns the score keys of the result in sorted order.
func (r EvaluationResult) ScoreKeys() []string {
	keys := make([]string, 0, len(r.Scores))
	for k := range r.Scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RoundDuration rounds seconds to two decimal places.
func RoundDuration(seconds float64) float64 {
	return math.Round(seconds*100) / 100
}

// ClampScore floors a score at zero. NaN is treated as zero.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	return v
}
