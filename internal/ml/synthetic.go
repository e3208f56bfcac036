package ml

import (
	"math/rand"

	"github.com/aclguard/backend/pkg/models"
)

// SyntheticCorpus generates a deterministic training set for bootstrap
// models, used to seed a usable prior before real feedback accumulates.
//
// Samples mix a majority of healthy profiles with a minority of
// elevated-risk ones, mirroring the distribution seen in practice. The
// target is the weighted formula risk with a small noise term, so a
// forest fitted on this corpus reproduces the clinical formula while
// staying in the same artifact format as feedback-trained models.
func SyntheticCorpus(n int, weights models.RiskWeights, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)

	for i := 0; i < n; i++ {
		var row []float64
		if rng.Float64() < 0.7 {
			// Healthy: low indices across the board, usually no injury
			// history or pain.
			row = []float64{
				rng.Float64() * 0.4,       // load
				rng.Float64() * 0.3,       // fatigue
				rng.Float64() * 0.3,       // intensity
				rng.Float64() * 0.25,      // bmi
				historyIndex(rng, 0.1),    // history
				painIndex(rng, 0.15, 0.3), // pain
			}
		} else {
			// Elevated: heavy load and fatigue, frequent history and pain.
			row = []float64{
				0.5 + rng.Float64()*0.5,
				0.4 + rng.Float64()*0.6,
				0.4 + rng.Float64()*0.6,
				rng.Float64() * 0.8,
				historyIndex(rng, 0.5),
				painIndex(rng, 0.6, 0.8),
			}
		}

		target := weights.Load*row[0] + weights.Fatigue*row[1] +
			weights.Intensity*row[2] + weights.BMI*row[3] +
			weights.History*row[4] + weights.Pain*row[5]
		target += rng.NormFloat64() * 0.02
		if target < 0 {
			target = 0
		}
		if target > 1 {
			target = 1
		}

		x[i] = row
		y[i] = target
	}
	return x, y
}

// historyIndex is bimodal: most samples have no prior injury, the rest
// sit between the decay floor and 1.
func historyIndex(rng *rand.Rand, pInjured float64) float64 {
	if rng.Float64() >= pInjured {
		return 0
	}
	return 0.3 + rng.Float64()*0.7
}

// painIndex is discrete in tenths like the 0-10 self-report scale.
func painIndex(rng *rand.Rand, pPain, maxIdx float64) float64 {
	if rng.Float64() >= pPain {
		return 0
	}
	steps := int(maxIdx * 10)
	return float64(1+rng.Intn(steps)) / 10
}
