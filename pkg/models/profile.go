package models

import "time"

// Sex is the biological sex recorded on a profile.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
	SexOther  Sex = "other"
)

// LimbDominance is the user's dominant leg.
type LimbDominance string

const (
	DominanceLeft  LimbDominance = "left"
	DominanceRight LimbDominance = "right"
	DominanceBoth  LimbDominance = "both"
)

// RehabStatus describes where the user is in injury rehabilitation.
type RehabStatus string

const (
	RehabNone      RehabStatus = "none"
	RehabActive    RehabStatus = "active_rehab"
	RehabRecovered RehabStatus = "recovered"
)

// UserProfile is the static per-user context merged into every feature
// extraction. Mutated only by explicit user update.
type UserProfile struct {
	UserID            string        `json:"user_id"`
	HeightCM          float64       `json:"height_cm"`
	WeightKG          float64       `json:"weight_kg"`
	Age               int           `json:"age"`
	Sex               Sex           `json:"sex"`
	Sport             string        `json:"sport"`
	LimbDominance     LimbDominance `json:"limb_dominance"`
	PriorACLInjury    bool          `json:"prior_acl_injury"`
	InjuryDate        *time.Time    `json:"injury_date,omitempty"`
	KneePainScore     int           `json:"knee_pain_score"` // 0-10
	RehabStatus       RehabStatus   `json:"rehab_status"`
	BaselineRestingHR float64       `json:"baseline_resting_hr,omitempty"` // 0 = derive from history or population default
}

// HasBodyMetrics reports whether BMI can be computed from the profile.
func (p *UserProfile) HasBodyMetrics() bool {
	return p.HeightCM > 0 && p.WeightKG > 0
}

// BMI returns the body mass index, or 0 if height/weight are missing.
func (p *UserProfile) BMI() float64 {
	if !p.HasBodyMetrics() {
		return 0
	}
	heightM := p.HeightCM / 100.0
	return p.WeightKG / (heightM * heightM)
}

// PopulationBaselineHR returns an age and sex based resting heart rate
// default, used when the user has no personal trailing baseline.
func (p *UserProfile) PopulationBaselineHR() float64 {
	if p.Sex == SexFemale {
		if p.Age > 0 && p.Age < 30 {
			return 68
		}
		return 70
	}
	if p.Age > 0 && p.Age < 30 {
		return 63
	}
	return 65
}
