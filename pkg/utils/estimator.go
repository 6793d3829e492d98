package utils

// TiktokenEstimator adapts TokenCounter to the Estimate(text string) int
// shape that automerge.TokenEstimator and contextopt.Estimator both expect,
// letting both components share one tiktoken-backed counter instead of each
// falling back to a character-ratio estimate.
type TiktokenEstimator struct {
	counter *TokenCounter
}

// NewTiktokenEstimator builds a TiktokenEstimator for model, falling back to
// cl100k_base internally (via NewTokenCounter) if model isn't recognized.
func NewTiktokenEstimator(model string) (TiktokenEstimator, error) {
	counter, err := NewTokenCounter(model)
	if err != nil {
		return TiktokenEstimator{}, err
	}
	return TiktokenEstimator{counter: counter}, nil
}

// Estimate returns the exact tiktoken count for text.
func (e TiktokenEstimator) Estimate(text string) int {
	return e.counter.Count(text)
}
