package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTiktokenEstimator_Estimate(t *testing.T) {
	est, err := NewTiktokenEstimator("gemini-2.0-flash")
	require.NoError(t, err)

	count := est.Estimate("hello world, this is a short sentence")
	assert.Greater(t, count, 0)

	assert.Equal(t, 0, est.Estimate(""))
}

func TestTiktokenEstimator_UnrecognizedModelFallsBackToCl100kBase(t *testing.T) {
	est, err := NewTiktokenEstimator("some-unrecognized-model-name")
	require.NoError(t, err)
	assert.Greater(t, est.Estimate("tokenize this please"), 0)
}
