package reputation

import (
	"testing"

	"github.com/Alias1177/FixPredict/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	tests := []struct {
		name    string
		score   uint32
		correct bool
		want    uint32
	}{
		{name: "default up", score: 50, correct: true, want: 60},
		{name: "default down", score: 50, correct: false, want: 40},
		{name: "clamped at max", score: 95, correct: true, want: 100},
		{name: "stays at max", score: 100, correct: true, want: 100},
		{name: "clamped at min", score: 5, correct: false, want: 0},
		{name: "stays at min", score: 0, correct: false, want: 0},
		{name: "from min up", score: 0, correct: true, want: 10},
		{name: "from max down", score: 100, correct: false, want: 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Next(tt.score, tt.correct))
		})
	}
}

func TestApplyOutcomeStaysInBounds(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open("provider"))

	prev := Default
	for i := 0; i < 200; i++ {
		correct := (i/7)%2 == 0
		score, err := b.ApplyOutcome("provider", correct)
		require.NoError(t, err)
		assert.LessOrEqual(t, score, Max)

		var diff uint32
		if score > prev {
			diff = score - prev
		} else {
			diff = prev - score
		}
		assert.LessOrEqual(t, diff, Step)
		if score != Min && score != Max {
			assert.Equal(t, Step, diff)
		}
		prev = score
	}
}

func TestUnknownProvider(t *testing.T) {
	b := NewBook()

	_, err := b.Score("wallet5")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = b.ApplyOutcome("wallet5", true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOpenTwice(t *testing.T) {
	b := NewBook()
	require.NoError(t, b.Open("p"))
	assert.ErrorIs(t, b.Open("p"), apperr.ErrAlreadyExists)

	score, err := b.Score("p")
	require.NoError(t, err)
	assert.Equal(t, uint32(50), score)
}
