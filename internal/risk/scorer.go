// Package risk turns feature vectors into injury-risk scores with a
// per-component breakdown, preferring a trained model when one is
// published and falling back to the weighted formula otherwise.
package risk

import (
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/aclguard/backend/pkg/models"
)

// ErrNoUsableData is returned when every component of a feature vector
// is missing and no score can be computed.
var ErrNoUsableData = errors.New("risk: no scorable components")

// Predictor produces a risk estimate on the 0-1 scale from feature
// values in canonical order.
type Predictor interface {
	PredictRisk(values []float64) (float64, error)
	Version() string
}

// ModelSource resolves the predictor to use for a user, typically a
// user-specific model with a global fallback.
type ModelSource interface {
	PredictorFor(key string) (Predictor, bool)
}

// Scorer computes risk scores. Safe for concurrent use.
type Scorer struct {
	cfg    models.RiskConfig
	source ModelSource
	logger zerolog.Logger
}

// NewScorer creates a scorer. source may be nil, in which case every
// score uses the formula.
func NewScorer(cfg models.RiskConfig, source ModelSource, logger zerolog.Logger) *Scorer {
	return &Scorer{cfg: cfg, source: source, logger: logger}
}

// Formula computes the weighted-sum risk on the 0-1 scale with its
// per-component breakdown. Weights of missing components are
// redistributed proportionally among the present ones, so the result
// stays on the full scale no matter how much data is absent.
func (s *Scorer) Formula(fv *models.FeatureVector) (float64, []models.RiskComponent, error) {
	comps := fv.Components()

	presentWeight := 0.0
	for _, c := range comps {
		if !c.Missing {
			presentWeight += s.cfg.Weights.ForFeature(c.Name)
		}
	}
	if presentWeight <= 0 {
		return 0, nil, ErrNoUsableData
	}

	breakdown := make([]models.RiskComponent, 0, len(comps))
	risk := 0.0
	for _, c := range comps {
		w := s.cfg.Weights.ForFeature(c.Name)
		rc := models.RiskComponent{
			Name:    c.Name,
			Index:   c.Index,
			Weight:  w,
			Missing: c.Missing,
			Detail:  c.Detail,
		}
		if !c.Missing {
			rc.EffectiveWeight = w / presentWeight
			rc.Contribution = rc.EffectiveWeight * c.Index
			risk += rc.Contribution
		}
		breakdown = append(breakdown, rc)
	}
	return risk, breakdown, nil
}

// Score produces the full risk result for a user. When a trained model
// is available it supplies the score; any model failure falls back to
// the formula, never to an error. The component breakdown always comes
// from the formula weights so the score stays explainable.
func (s *Scorer) Score(userID string, fv *models.FeatureVector) (*models.RiskResult, error) {
	risk, breakdown, err := s.Formula(fv)
	if err != nil {
		return nil, err
	}

	result := &models.RiskResult{
		UserID:      userID,
		Score:       round1(risk * 100),
		Method:      models.MethodFormula,
		Components:  breakdown,
		MissingData: fv.MissingData,
	}
	if result.MissingData == nil {
		result.MissingData = []string{}
	}

	if s.source != nil {
		if pred, ok := s.source.PredictorFor(userID); ok {
			p, perr := pred.PredictRisk(fv.Values())
			switch {
			case perr != nil:
				s.logger.Warn().Err(perr).Str("user_id", userID).
					Str("model_version", pred.Version()).
					Msg("model prediction failed, using formula")
			case p < 0 || p > 1 || math.IsNaN(p):
				s.logger.Warn().Float64("prediction", p).Str("user_id", userID).
					Str("model_version", pred.Version()).
					Msg("model prediction out of range, using formula")
			default:
				result.Score = round1(p * 100)
				result.Method = models.MethodModel
				result.ModelVersion = pred.Version()
			}
		}
	}

	result.Level = s.Level(result.Score)
	result.Color = models.LevelColor(result.Level)
	result.Confidence = s.confidence(fv)
	return result, nil
}

// Level maps a 0-100 score to its categorical band. Boundary scores
// land in the higher band.
func (s *Scorer) Level(score float64) models.RiskLevel {
	switch {
	case score >= s.cfg.HighThreshold:
		return models.RiskHigh
	case score >= s.cfg.ModerateThreshold:
		return models.RiskModerate
	default:
		return models.RiskLow
	}
}

// confidence grades how much input data backed the score.
func (s *Scorer) confidence(fv *models.FeatureVector) models.Confidence {
	missing := len(fv.MissingData)
	switch {
	case missing >= s.cfg.LowConfidenceMissing:
		return models.ConfidenceLow
	case missing > 0 || fv.WindowDays < s.cfg.TargetWindowDays:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceHigh
	}
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
