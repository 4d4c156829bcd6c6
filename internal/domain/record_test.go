package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScaleRating(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{raw: 1, want: -1.0},
		{raw: 2, want: -0.5},
		{raw: 3, want: 0.0},
		{raw: 4, want: 0.5},
		{raw: 5, want: 1.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, ScaleRating(tt.raw), 1e-9, "raw=%v", tt.raw)
	}

	// Monotonic across the scale.
	prev := ScaleRating(1)
	for raw := 1.25; raw <= 5; raw += 0.25 {
		cur := ScaleRating(raw)
		assert.Greater(t, cur, prev)
		prev = cur
	}
}

func TestRecordDatasetType(t *testing.T) {
	var records = []Record{QAPair{}, ChatSession{}}

	assert.Equal(t, DatasetSingle, records[0].DatasetType())
	assert.Equal(t, DatasetMultiple, records[1].DatasetType())
}

func TestChatSessionLastTurn(t *testing.T) {
	t.Run("empty history", func(t *testing.T) {
		_, ok := ChatSession{}.LastTurn()
		assert.False(t, ok)
	})

	t.Run("returns final turn", func(t *testing.T) {
		s := ChatSession{History: []Turn{NewTurn("hi", "hello"), {User: "bye"}}}

		last, ok := s.LastTurn()
		assert.True(t, ok)
		assert.Equal(t, "bye", last.User)

		_, hasBot := last.BotText()
		assert.False(t, hasBot)
	})
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 0.0, ClampScore(-0.3))
	assert.Equal(t, 0.0, ClampScore(nan()))
	assert.Equal(t, 0.7, ClampScore(0.7))
	assert.Equal(t, 1.2, ClampScore(1.2), "upper bound is a convention, not enforced")
}

func TestRoundDuration(t *testing.T) {
	assert.Equal(t, 1.23, RoundDuration(1.234))
	assert.Equal(t, 1.24, RoundDuration(1.235001))
	assert.Equal(t, 0.0, RoundDuration(0.0041))
}

func nan() float64 {
	zero := 0.0
	return zero / zero
}
