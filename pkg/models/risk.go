package models

// RiskLevel is the categorical injury-risk band.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Confidence describes how much of the input data backed a score.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ScoreMethod identifies which predictor produced a risk score.
type ScoreMethod string

const (
	MethodFormula ScoreMethod = "formula"
	MethodModel   ScoreMethod = "model"
)

// RiskWeights holds the evidence-based component weights. They must sum
// to 1.0; the scorer redistributes weights of missing components
// proportionally among the present ones.
type RiskWeights struct {
	Load      float64 `json:"load" yaml:"load"`
	Fatigue   float64 `json:"fatigue" yaml:"fatigue"`
	Intensity float64 `json:"intensity" yaml:"intensity"`
	BMI       float64 `json:"bmi" yaml:"bmi"`
	History   float64 `json:"history" yaml:"history"`
	Pain      float64 `json:"pain" yaml:"pain"`
}

// ForFeature returns the weight for a canonical feature name.
func (w RiskWeights) ForFeature(name string) float64 {
	switch name {
	case FeatureLoad:
		return w.Load
	case FeatureFatigue:
		return w.Fatigue
	case FeatureIntensity:
		return w.Intensity
	case FeatureBMI:
		return w.BMI
	case FeatureHistory:
		return w.History
	case FeaturePain:
		return w.Pain
	}
	return 0
}

// Sum returns the total of all weights.
func (w RiskWeights) Sum() float64 {
	return w.Load + w.Fatigue + w.Intensity + w.BMI + w.History + w.Pain
}

// RiskConfig contains every weight, threshold and cutoff used by the
// risk scorer. One struct documents the full recognized option set.
type RiskConfig struct {
	Weights RiskWeights `json:"weights" yaml:"weights"`

	// ModerateThreshold and HighThreshold are the risk-level boundaries
	// on the 0-100 scale: low < moderate_threshold <= moderate <
	// high_threshold <= high.
	ModerateThreshold float64 `json:"moderate_threshold" yaml:"moderate_threshold"`
	HighThreshold     float64 `json:"high_threshold" yaml:"high_threshold"`

	// TargetWindowDays is the window length required for high confidence.
	TargetWindowDays int `json:"target_window_days" yaml:"target_window_days"`

	// LowConfidenceMissing is the missing-input count at which confidence
	// drops to low (1 to LowConfidenceMissing-1 missing inputs is medium).
	// The count is over missing_data entries, i.e. raw inputs such as
	// "resting_heart_rate" or "height_weight", not over wholly missing
	// components: one absent component can contribute several entries.
	LowConfidenceMissing int `json:"low_confidence_missing" yaml:"low_confidence_missing"`
}

// DefaultRiskConfig returns the documented evidence-based defaults.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		Weights: RiskWeights{
			Load:      0.30, // training volume is the dominant modifiable factor
			Fatigue:   0.25, // HR elevation + sleep deficit
			Intensity: 0.15, // peak-zone minutes
			BMI:       0.10,
			History:   0.10, // prior ACL injury
			Pain:      0.10, // self-reported knee pain
		},
		ModerateThreshold:    40.0,
		HighThreshold:        70.0,
		TargetWindowDays:     7,
		LowConfidenceMissing: 3,
	}
}

// LevelColor maps a risk level to its UI color.
func LevelColor(level RiskLevel) string {
	switch level {
	case RiskHigh:
		return "red"
	case RiskModerate:
		return "yellow"
	default:
		return "green"
	}
}

// RiskComponent is the per-component slice of a risk score breakdown.
type RiskComponent struct {
	Name string `json:"name"`
	// Index is the normalized component value in [0,1].
	Index float64 `json:"index"`
	// Weight is the configured weight; EffectiveWeight is the weight
	// after redistribution over present components.
	Weight          float64 `json:"weight"`
	EffectiveWeight float64 `json:"effective_weight"`
	// Contribution is EffectiveWeight x Index, on the 0-1 scale.
	Contribution float64 `json:"contribution"`
	Missing      bool    `json:"missing"`
	Detail       string  `json:"detail,omitempty"`
}

// RiskResult is the full output of a scoring request.
type RiskResult struct {
	UserID          string          `json:"user_id,omitempty"`
	Score           float64         `json:"risk_score"` // 0-100
	Level           RiskLevel       `json:"risk_level"`
	Color           string          `json:"risk_color"`
	Confidence      Confidence      `json:"confidence"`
	Method          ScoreMethod     `json:"method"`
	ModelVersion    string          `json:"model_version,omitempty"`
	Components      []RiskComponent `json:"components"`
	MissingData     []string        `json:"missing_data"`
	Recommendations []string        `json:"recommendations,omitempty"`
}
