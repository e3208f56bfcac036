package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclguard/backend/pkg/models"
)

func TestMSE(t *testing.T) {
	mse, err := MSE([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, mse, 0.0001)

	mse, err = MSE([]float64{0, 0}, []float64{1, 3})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, mse, 0.0001) // (1+9)/2

	_, err = MSE([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestR2(t *testing.T) {
	actual := []float64{1, 2, 3, 4}

	r2, err := R2(actual, actual)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r2, 0.0001, "perfect prediction scores 1")

	// Predicting the mean everywhere scores 0.
	r2, err = R2([]float64{2.5, 2.5, 2.5, 2.5}, actual)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, r2, 0.0001)

	// Constant target avoids division by zero.
	r2, err = R2([]float64{1, 2}, []float64{3, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, r2)
}

func TestSplitIndices(t *testing.T) {
	train, test := SplitIndices(100, 0.2, 42)
	assert.Len(t, train, 80)
	assert.Len(t, test, 20)

	// No overlap, full coverage.
	seen := make(map[int]bool, 100)
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 100)

	// Deterministic for a fixed seed.
	train2, test2 := SplitIndices(100, 0.2, 42)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)
}

func TestSplitIndices_TinyCorpus(t *testing.T) {
	// Both sides keep at least one sample.
	train, test := SplitIndices(2, 0.2, 1)
	assert.Len(t, train, 1)
	assert.Len(t, test, 1)
}

func TestSyntheticCorpus_DeterministicAndBounded(t *testing.T) {
	weights := models.DefaultRiskConfig().Weights

	x1, y1 := SyntheticCorpus(500, weights, 42)
	x2, y2 := SyntheticCorpus(500, weights, 42)
	assert.Equal(t, x1, x2)
	assert.Equal(t, y1, y2)

	require.Len(t, x1, 500)
	for i, row := range x1 {
		require.Len(t, row, 6)
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
		assert.GreaterOrEqual(t, y1[i], 0.0)
		assert.LessOrEqual(t, y1[i], 1.0)
	}
}
