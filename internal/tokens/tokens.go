// Package tokens provides character-to-token estimation and bounded
// pruning for prompt composition. The estimator is pluggable so an
// accurate tokenizer can be swapped in without touching the composer.
package tokens

// DefaultCharsPerToken is the rough character-per-token ratio used by
// the default estimator.
const DefaultCharsPerToken = 4

// Estimator converts a character count to an estimated token count.
type Estimator func(chars int) int

// NewEstimator returns an estimator that divides by charsPerToken,
// rounding up. Non-positive ratios fall back to the default.
func NewEstimator(charsPerToken int) Estimator {
	if charsPerToken <= 0 {
		charsPerToken = DefaultCharsPerToken
	}
	return func(chars int) int {
		if chars <= 0 {
			return 0
		}
		return (chars + charsPerToken - 1) / charsPerToken
	}
}

// Budget describes the token budget for one composed prompt.
type Budget struct {
	// Max is the total token budget B.
	Max int

	// PromptOverhead reserves tokens for the prompt envelope
	// (instructions, markers, the question).
	PromptOverhead int

	// AnswerReserve reserves tokens for the generated answer.
	AnswerReserve int
}

// Available returns the tokens left for passage content.
func (b Budget) Available() int {
	avail := b.Max - b.PromptOverhead - b.AnswerReserve
	if avail < 0 {
		return 0
	}
	return avail
}

// Fit greedily selects a prefix of sizes (in order) whose estimated
// token total stays within the available budget. It returns the number
// of items taken and whether any item was dropped.
func (b Budget) Fit(est Estimator, sizes []int) (taken int, dropped bool) {
	avail := b.Available()
	used := 0
	for _, size := range sizes {
		cost := est(size)
		if used+cost > avail {
			return taken, true
		}
		used += cost
		taken++
	}
	return taken, false
}
