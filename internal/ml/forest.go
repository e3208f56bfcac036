package ml

import (
	"context"
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// ForestParams configure a bagged regression forest.
type ForestParams struct {
	NumTrees int
	Seed     int64
	Tree     TreeParams
}

// Forest is a bagged ensemble of regression trees. Prediction is the
// mean over trees, which keeps outputs inside the target range the
// trees were fitted on.
type Forest struct {
	Trees       []*Tree `json:"trees"`
	NumFeatures int     `json:"num_features"`
}

// FitForest fits the ensemble. Trees are grown concurrently; each tree
// gets its own bootstrap sample and RNG derived from the base seed, so
// a given (data, params) pair always produces the same forest. The
// context cancels an in-flight fit, typically via the training timeout.
func FitForest(ctx context.Context, x [][]float64, y []float64, p ForestParams) (*Forest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("ml: forest needs matching non-empty x and y, got %d/%d", len(x), len(y))
	}
	if p.NumTrees <= 0 {
		return nil, fmt.Errorf("ml: num_trees must be positive, got %d", p.NumTrees)
	}

	f := &Forest{
		Trees:       make([]*Tree, p.NumTrees),
		NumFeatures: len(x[0]),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < p.NumTrees; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(p.Seed + int64(i)))
			idx := bootstrapSample(len(x), rng)
			tree, err := FitTree(x, y, idx, p.Tree, rng)
			if err != nil {
				return fmt.Errorf("ml: fitting tree %d: %w", i, err)
			}
			f.Trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f, nil
}

// Predict returns the ensemble mean for one standardized feature row.
func (f *Forest) Predict(row []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, fmt.Errorf("ml: forest has no trees")
	}
	if len(row) != f.NumFeatures {
		return 0, fmt.Errorf("ml: got %d features, forest fitted on %d", len(row), f.NumFeatures)
	}
	sum := 0.0
	for _, t := range f.Trees {
		sum += t.Predict(row)
	}
	return sum / float64(len(f.Trees)), nil
}

// FeatureImportances averages the normalized per-tree impurity
// decreases.
func (f *Forest) FeatureImportances() []float64 {
	out := make([]float64, f.NumFeatures)
	for _, t := range f.Trees {
		for j, imp := range t.Importances {
			out[j] += imp
		}
	}
	normalize(out)
	return out
}

// bootstrapSample draws n indices with replacement.
func bootstrapSample(n int, rng *rand.Rand) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}
