// Package ml implements the regression forest used for feedback-trained
// risk prediction: feature standardization, CART trees, a bagged forest
// with importances, and evaluation metrics.
package ml

import (
	"fmt"
	"math"
)

// Scaler standardizes features to zero mean and unit variance. The
// fitted parameters are persisted with the model so serving applies the
// exact transform seen at training time.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation.
func FitScaler(x [][]float64) (*Scaler, error) {
	if len(x) == 0 || len(x[0]) == 0 {
		return nil, fmt.Errorf("ml: cannot fit scaler on empty matrix")
	}
	cols := len(x[0])
	s := &Scaler{
		Mean: make([]float64, cols),
		Std:  make([]float64, cols),
	}
	n := float64(len(x))
	for _, row := range x {
		for j, v := range row {
			s.Mean[j] += v
		}
	}
	for j := range s.Mean {
		s.Mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - s.Mean[j]
			s.Std[j] += d * d
		}
	}
	for j := range s.Std {
		s.Std[j] = math.Sqrt(s.Std[j] / n)
		if s.Std[j] == 0 {
			// Constant column: pass through unscaled.
			s.Std[j] = 1
		}
	}
	return s, nil
}

// Transform standardizes a single row.
func (s *Scaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("ml: got %d features, scaler fitted on %d", len(row), len(s.Mean))
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformMatrix standardizes every row.
func (s *Scaler) TransformMatrix(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
