package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TreeParams bound the growth of a single regression tree.
type TreeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	// MaxFeatures is the number of candidate features examined per
	// split; 0 means all.
	MaxFeatures int
}

// Node is one node of a fitted regression tree. Leaf nodes carry the
// mean target of their samples; internal nodes route on
// feature <= threshold.
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Value     float64 `json:"v"`
	Left      *Node   `json:"l,omitempty"`
	Right     *Node   `json:"r,omitempty"`
}

// IsLeaf reports whether the node terminates prediction.
func (n *Node) IsLeaf() bool {
	return n.Left == nil && n.Right == nil
}

// Tree is a CART regression tree minimizing squared error.
type Tree struct {
	Root *Node `json:"root"`
	// Importances holds the impurity decrease accumulated per feature
	// during fitting, normalized to sum to 1.
	Importances []float64 `json:"importances"`
}

// FitTree grows a regression tree on the given samples. idx selects the
// rows of x/y used (bootstrap sample); rng drives the per-split feature
// subsampling.
func FitTree(x [][]float64, y []float64, idx []int, p TreeParams, rng *rand.Rand) (*Tree, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("ml: tree needs matching non-empty x and y, got %d/%d", len(x), len(y))
	}
	if len(idx) == 0 {
		idx = make([]int, len(x))
		for i := range idx {
			idx[i] = i
		}
	}
	nFeatures := len(x[0])
	t := &Tree{Importances: make([]float64, nFeatures)}
	t.Root = t.grow(x, y, idx, 0, p, rng)
	normalize(t.Importances)
	return t, nil
}

// Predict walks the tree for one standardized feature row.
func (t *Tree) Predict(row []float64) float64 {
	n := t.Root
	for !n.IsLeaf() {
		if row[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

func (t *Tree) grow(x [][]float64, y []float64, idx []int, depth int, p TreeParams, rng *rand.Rand) *Node {
	node := &Node{Value: meanAt(y, idx)}

	if depth >= p.MaxDepth || len(idx) < p.MinSamplesSplit {
		return node
	}

	feature, threshold, gain := t.bestSplit(x, y, idx, p, rng)
	if feature < 0 {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < p.MinSamplesLeaf || len(right) < p.MinSamplesLeaf {
		return node
	}

	t.Importances[feature] += gain
	node.Feature = feature
	node.Threshold = threshold
	node.Left = t.grow(x, y, left, depth+1, p, rng)
	node.Right = t.grow(x, y, right, depth+1, p, rng)
	return node
}

// bestSplit scans candidate features for the threshold with the largest
// weighted SSE reduction. Returns feature -1 when no split helps.
func (t *Tree) bestSplit(x [][]float64, y []float64, idx []int, p TreeParams, rng *rand.Rand) (int, float64, float64) {
	nFeatures := len(x[0])
	features := candidateFeatures(nFeatures, p.MaxFeatures, rng)

	parentSSE := sseAt(y, idx)
	bestFeature, bestThreshold, bestGain := -1, 0.0, 0.0

	vals := make([]float64, 0, len(idx))
	for _, f := range features {
		vals = vals[:0]
		for _, i := range idx {
			vals = append(vals, x[i][f])
		}
		sort.Float64s(vals)

		for k := 0; k+1 < len(vals); k++ {
			if vals[k] == vals[k+1] {
				continue
			}
			threshold := (vals[k] + vals[k+1]) / 2

			var lSum, lSq, rSum, rSq float64
			var lN, rN int
			for _, i := range idx {
				v := y[i]
				if x[i][f] <= threshold {
					lSum += v
					lSq += v * v
					lN++
				} else {
					rSum += v
					rSq += v * v
					rN++
				}
			}
			if lN < p.MinSamplesLeaf || rN < p.MinSamplesLeaf {
				continue
			}
			childSSE := (lSq - lSum*lSum/float64(lN)) + (rSq - rSum*rSum/float64(rN))
			gain := parentSSE - childSSE
			if gain > bestGain {
				bestFeature, bestThreshold, bestGain = f, threshold, gain
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func candidateFeatures(n, max int, rng *rand.Rand) []int {
	all := make([]int, n)
	for i := range all {
		all[i] = i
	}
	if max <= 0 || max >= n || rng == nil {
		return all
	}
	rng.Shuffle(n, func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:max]
}

func meanAt(y []float64, idx []int) float64 {
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func sseAt(y []float64, idx []int) float64 {
	m := meanAt(y, idx)
	sse := 0.0
	for _, i := range idx {
		d := y[i] - m
		sse += d * d
	}
	return sse
}

func normalize(v []float64) {
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total == 0 || math.IsNaN(total) {
		return
	}
	for i := range v {
		v[i] /= total
	}
}
