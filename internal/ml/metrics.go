package ml

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// MSE returns the mean squared error between predictions and targets.
func MSE(pred, actual []float64) (float64, error) {
	if len(pred) != len(actual) || len(pred) == 0 {
		return 0, fmt.Errorf("ml: mse needs matching non-empty slices, got %d/%d", len(pred), len(actual))
	}
	sum := 0.0
	for i := range pred {
		d := pred[i] - actual[i]
		sum += d * d
	}
	return sum / float64(len(pred)), nil
}

// R2 returns the coefficient of determination. A constant target yields
// 0 rather than a division by zero.
func R2(pred, actual []float64) (float64, error) {
	if len(pred) != len(actual) || len(pred) == 0 {
		return 0, fmt.Errorf("ml: r2 needs matching non-empty slices, got %d/%d", len(pred), len(actual))
	}
	mean := stat.Mean(actual, nil)
	var ssRes, ssTot float64
	for i := range actual {
		dr := actual[i] - pred[i]
		dt := actual[i] - mean
		ssRes += dr * dr
		ssTot += dt * dt
	}
	if ssTot == 0 {
		return 0, nil
	}
	return 1 - ssRes/ssTot, nil
}

// SplitIndices shuffles 0..n-1 with the given seed and partitions it
// into train and test index sets. testFraction is the held-out share;
// at least one sample lands on each side.
func SplitIndices(n int, testFraction float64, seed int64) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

	nTest := int(float64(n) * testFraction)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= n {
		nTest = n - 1
	}
	return idx[nTest:], idx[:nTest]
}

// Take gathers the rows of x and y selected by idx.
func Take(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for k, i := range idx {
		xs[k] = x[i]
		ys[k] = y[i]
	}
	return xs, ys
}
