package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEstimator(t *testing.T) {
	est := NewEstimator(4)

	assert.Equal(t, 0, est(0))
	assert.Equal(t, 1, est(1))
	assert.Equal(t, 1, est(4))
	assert.Equal(t, 2, est(5))
	assert.Equal(t, 3, est(11))
}

func TestNewEstimator_InvalidRatio(t *testing.T) {
	est := NewEstimator(0)
	// Falls back to the default 4 chars per token.
	assert.Equal(t, 1, est(4))
	assert.Equal(t, 2, est(8))
}

func TestBudget_Available(t *testing.T) {
	b := Budget{Max: 1000, PromptOverhead: 100, AnswerReserve: 200}
	assert.Equal(t, 700, b.Available())

	over := Budget{Max: 100, PromptOverhead: 80, AnswerReserve: 80}
	assert.Equal(t, 0, over.Available())
}

func TestBudget_Fit(t *testing.T) {
	est := NewEstimator(4)
	b := Budget{Max: 100, PromptOverhead: 10, AnswerReserve: 40}
	// Available = 50 tokens = 200 chars.

	t.Run("all fit", func(t *testing.T) {
		taken, dropped := b.Fit(est, []int{80, 80})
		assert.Equal(t, 2, taken)
		assert.False(t, dropped)
	})

	t.Run("partial fit preserves order", func(t *testing.T) {
		taken, dropped := b.Fit(est, []int{120, 120, 40})
		assert.Equal(t, 1, taken)
		assert.True(t, dropped)
	})

	t.Run("nothing fits", func(t *testing.T) {
		taken, dropped := b.Fit(est, []int{400})
		assert.Equal(t, 0, taken)
		assert.True(t, dropped)
	})

	t.Run("empty input", func(t *testing.T) {
		taken, dropped := b.Fit(est, nil)
		assert.Equal(t, 0, taken)
		assert.False(t, dropped)
	})
}
