package models

// Canonical feature component names, in the fixed order used by both the
// formula scorer and trained models. Order matters: design matrices and
// scaler parameters are positional.
const (
	FeatureLoad      = "load"
	FeatureFatigue   = "fatigue"
	FeatureIntensity = "intensity"
	FeatureBMI       = "bmi"
	FeatureHistory   = "history"
	FeaturePain      = "pain"
)

// FeatureNames lists all component names in canonical order.
var FeatureNames = []string{
	FeatureLoad,
	FeatureFatigue,
	FeatureIntensity,
	FeatureBMI,
	FeatureHistory,
	FeaturePain,
}

// FeatureComponent is a single normalized risk-factor index.
type FeatureComponent struct {
	Name    string  `json:"name"`
	Index   float64 `json:"index"` // clamped to [0,1]
	Missing bool    `json:"missing"`
	Detail  string  `json:"detail,omitempty"`
}

// FeatureVector is the fixed-size normalized feature set derived from a
// metric window plus a profile. Ephemeral; never persisted directly.
//
// MissingData names the raw inputs that could not be used (for example
// "resting_heart_rate" when the fatigue index was computed from sleep
// alone). It drives confidence reporting. A component's Missing flag is
// set only when the whole component could not be computed; that drives
// weight redistribution in the scorer.
type FeatureVector struct {
	Load      FeatureComponent `json:"load"`
	Fatigue   FeatureComponent `json:"fatigue"`
	Intensity FeatureComponent `json:"intensity"`
	BMI       FeatureComponent `json:"bmi"`
	History   FeatureComponent `json:"history"`
	Pain      FeatureComponent `json:"pain"`

	MissingData []string `json:"missing_data"`
	WindowDays  int      `json:"window_days"`
}

// Components returns the components in canonical order.
func (fv *FeatureVector) Components() []FeatureComponent {
	return []FeatureComponent{fv.Load, fv.Fatigue, fv.Intensity, fv.BMI, fv.History, fv.Pain}
}

// Values returns the component indices in canonical order, with missing
// components reported as 0. Used to build design matrices for training
// and prediction; the scorer itself never treats missing as zero.
func (fv *FeatureVector) Values() []float64 {
	comps := fv.Components()
	vals := make([]float64, len(comps))
	for i, c := range comps {
		if !c.Missing {
			vals[i] = c.Index
		}
	}
	return vals
}

// MissingCount returns the number of wholly missing components.
func (fv *FeatureVector) MissingCount() int {
	n := 0
	for _, c := range fv.Components() {
		if c.Missing {
			n++
		}
	}
	return n
}
