// Package model manages trained-model artifacts: the serialized bundle
// format, the filesystem store and the in-memory registry that serves
// predictions.
package model

import (
	"fmt"
	"math"
	"time"

	"github.com/aclguard/backend/internal/ml"
	"github.com/aclguard/backend/pkg/models"
)

// Provenance records what corpus a model was fitted on.
type Provenance string

const (
	// ProvenanceSynthetic marks a bootstrap model fitted on the
	// generated prior corpus.
	ProvenanceSynthetic Provenance = "synthetic-prior"
	// ProvenanceFeedback marks a model fitted on accumulated positive
	// user feedback.
	ProvenanceFeedback Provenance = "feedback-trained"
)

// TrainedModel is one published model bundle: the fitted scaler and
// forest plus the evaluation metadata reported to clients. Bundles are
// immutable once published; retraining publishes a new version.
type TrainedModel struct {
	ID         string     `json:"version"` // uuid per training run
	Key        string     `json:"key"`     // user id or models.GlobalTrainingKey
	Provenance Provenance `json:"provenance"`
	CreatedAt  time.Time  `json:"created_at"`

	SampleCount int `json:"sample_count"`
	TestCount   int `json:"test_count"`

	MSE float64 `json:"mse"`
	R2  float64 `json:"r2"`

	FeatureNames []string           `json:"feature_names"`
	Importances  map[string]float64 `json:"feature_importances"`

	Scaler *ml.Scaler `json:"scaler"`
	Forest *ml.Forest `json:"forest"`
}

// Version returns the bundle's unique version id.
func (m *TrainedModel) Version() string {
	return m.ID
}

// Validate rejects bundles that cannot serve predictions. Run on every
// load so a corrupt artifact is skipped rather than served.
func (m *TrainedModel) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("model: bundle has no version")
	}
	if m.Key == "" {
		return fmt.Errorf("model: bundle has no key")
	}
	switch m.Provenance {
	case ProvenanceSynthetic, ProvenanceFeedback:
	default:
		return fmt.Errorf("model: unknown provenance %q", m.Provenance)
	}
	if m.Scaler == nil || m.Forest == nil {
		return fmt.Errorf("model: bundle %s is missing scaler or forest", m.ID)
	}
	if len(m.Forest.Trees) == 0 {
		return fmt.Errorf("model: bundle %s has an empty forest", m.ID)
	}
	if len(m.FeatureNames) != m.Forest.NumFeatures || len(m.Scaler.Mean) != m.Forest.NumFeatures {
		return fmt.Errorf("model: bundle %s has inconsistent feature width", m.ID)
	}
	return nil
}

// PredictRisk standardizes the feature values and returns the forest
// estimate clamped to the 0-1 risk scale. Satisfies risk.Predictor.
func (m *TrainedModel) PredictRisk(values []float64) (float64, error) {
	scaled, err := m.Scaler.Transform(values)
	if err != nil {
		return 0, err
	}
	p, err := m.Forest.Predict(scaled)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(p) {
		return 0, fmt.Errorf("model: bundle %s produced NaN", m.ID)
	}
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, nil
}

// ImportanceMap pairs canonical feature names with forest importances.
func ImportanceMap(importances []float64) map[string]float64 {
	out := make(map[string]float64, len(models.FeatureNames))
	for i, name := range models.FeatureNames {
		if i < len(importances) {
			out[name] = importances[i]
		}
	}
	return out
}
