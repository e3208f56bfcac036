// Package features derives normalized risk-factor indices from raw
// daily metrics and a user profile.
package features

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/pkg/models"
)

// ErrEmptyWindow is returned when the metric window has zero days.
// Scoring must abort rather than fabricate a score.
var ErrEmptyWindow = errors.New("features: empty metric window")

// Input names reported in the missing_data list.
const (
	MissingRestingHeartRate = "resting_heart_rate"
	MissingSleep            = "sleep_hours"
	MissingBodyMetrics      = "height_weight"
	MissingActivityDays     = "insufficient_activity_days"
)

// Extractor computes FeatureVectors. Stateless and safe for concurrent use.
type Extractor struct {
	cfg config.Features
}

// NewExtractor creates an extractor with the given normalization bands.
func NewExtractor(cfg config.Features) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract converts a metric window plus profile into a FeatureVector.
//
// Missing optional inputs never cause an error: the affected component
// is either computed from the remaining inputs or flagged missing, and
// the input name is recorded in MissingData. The only hard failure is
// an entirely empty window.
func (e *Extractor) Extract(window []models.DailyMetric, profile models.UserProfile, now time.Time) (*models.FeatureVector, error) {
	if len(window) == 0 {
		return nil, ErrEmptyWindow
	}

	fv := &models.FeatureVector{WindowDays: len(window)}
	var missing []string

	// Load index: mean daily steps over the configured healthy band.
	var stepSum float64
	for _, m := range window {
		stepSum += float64(m.Steps)
	}
	avgSteps := stepSum / float64(len(window))
	fv.Load = models.FeatureComponent{
		Name:   models.FeatureLoad,
		Index:  clamp((avgSteps - e.cfg.StepsFloor) / (e.cfg.StepsCeiling - e.cfg.StepsFloor)),
		Detail: fmt.Sprintf("avg %d steps/day over %d days", int(avgSteps), len(window)),
	}
	if len(window) < e.cfg.MinWindowDays {
		// Partial average still counts, but the short window is flagged.
		missing = append(missing, MissingActivityDays)
	}

	// Intensity index: mean daily peak-zone minutes.
	var peakSum float64
	for _, m := range window {
		peakSum += float64(m.PeakIntensityMinutes)
	}
	avgPeak := peakSum / float64(len(window))
	fv.Intensity = models.FeatureComponent{
		Name:   models.FeatureIntensity,
		Index:  clamp(avgPeak / e.cfg.PeakMinutesCeiling),
		Detail: fmt.Sprintf("%d peak min/day", int(avgPeak)),
	}

	// Fatigue index: HR elevation plus sleep deficit, sub-weights
	// rescaled to sum to 1 over whichever halves are present.
	fv.Fatigue, missing = e.fatigueComponent(window, profile, missing)

	// BMI index: distance from the optimal band. Neutral and flagged
	// missing when the profile lacks height or weight.
	if profile.HasBodyMetrics() {
		bmi := profile.BMI()
		fv.BMI = models.FeatureComponent{
			Name:   models.FeatureBMI,
			Index:  e.bmiIndex(bmi),
			Detail: fmt.Sprintf("BMI %.1f", bmi),
		}
	} else {
		fv.BMI = models.FeatureComponent{Name: models.FeatureBMI, Missing: true, Detail: "height/weight not set"}
		missing = append(missing, MissingBodyMetrics)
	}

	// Injury-history index: step function scaled by recency.
	fv.History = e.historyComponent(profile, now)

	// Pain index: self-reported knee pain 0-10.
	fv.Pain = models.FeatureComponent{
		Name:   models.FeaturePain,
		Index:  clamp(float64(profile.KneePainScore) / 10.0),
		Detail: fmt.Sprintf("knee pain %d/10", profile.KneePainScore),
	}

	fv.MissingData = missing
	return fv, nil
}

// fatigueComponent combines resting-HR elevation and sleep deficit.
func (e *Extractor) fatigueComponent(window []models.DailyMetric, profile models.UserProfile, missing []string) (models.FeatureComponent, []string) {
	var hrSum, hrDays, sleepSum, sleepDays float64
	hrMin := math.MaxFloat64
	for _, m := range window {
		if m.HasHeartRate() {
			hrSum += float64(m.RestingHeartRate)
			hrDays++
			if float64(m.RestingHeartRate) < hrMin {
				hrMin = float64(m.RestingHeartRate)
			}
		}
		if m.HasSleep() {
			sleepSum += m.SleepHours
			sleepDays++
		}
	}

	var hrIdx, sleepIdx float64
	hrPresent := hrDays > 0
	sleepPresent := sleepDays > 0

	if hrPresent {
		avgHR := hrSum / hrDays
		baseline := e.baselineHR(profile, hrMin, int(hrDays))
		hrIdx = clamp((avgHR - baseline) / e.cfg.HRElevationRangeBPM)
	} else {
		missing = append(missing, MissingRestingHeartRate)
	}

	if sleepPresent {
		avgSleep := sleepSum / sleepDays
		sleepIdx = clamp((e.cfg.SleepTargetHours - avgSleep) / e.cfg.SleepDeficitRangeHours)
	} else {
		missing = append(missing, MissingSleep)
	}

	comp := models.FeatureComponent{Name: models.FeatureFatigue}
	switch {
	case hrPresent && sleepPresent:
		comp.Index = e.cfg.HRSubWeight*hrIdx + e.cfg.SleepSubWeight*sleepIdx
		comp.Detail = fmt.Sprintf("HR elevation %.2f, sleep deficit %.2f", hrIdx, sleepIdx)
	case hrPresent:
		comp.Index = hrIdx
		comp.Detail = fmt.Sprintf("HR elevation %.2f (no sleep data)", hrIdx)
	case sleepPresent:
		comp.Index = sleepIdx
		comp.Detail = fmt.Sprintf("sleep deficit %.2f (no heart-rate data)", sleepIdx)
	default:
		comp.Missing = true
		comp.Detail = "no heart-rate or sleep data"
	}
	return comp, missing
}

// baselineHR picks the user's trailing baseline when enough HR days
// exist, the profile's stored baseline otherwise, and finally an age
// and sex based population default.
func (e *Extractor) baselineHR(profile models.UserProfile, windowMinHR float64, hrDays int) float64 {
	if profile.BaselineRestingHR > 0 {
		return profile.BaselineRestingHR
	}
	if hrDays >= e.cfg.BaselineMinDays {
		// The window minimum approximates a true resting baseline.
		return windowMinHR
	}
	return profile.PopulationBaselineHR()
}

func (e *Extractor) bmiIndex(bmi float64) float64 {
	switch {
	case bmi > e.cfg.BMIOptimalHigh:
		return clamp((bmi - e.cfg.BMIOptimalHigh) / e.cfg.BMIPenaltyRange)
	case bmi < e.cfg.BMIOptimalLow:
		return clamp((e.cfg.BMIOptimalLow - bmi) / e.cfg.BMIPenaltyRange)
	default:
		return 0
	}
}

func (e *Extractor) historyComponent(profile models.UserProfile, now time.Time) models.FeatureComponent {
	comp := models.FeatureComponent{Name: models.FeatureHistory, Detail: "no prior ACL injury"}
	if !profile.PriorACLInjury {
		return comp
	}
	comp.Index = 1.0
	comp.Detail = "prior ACL injury"
	if profile.InjuryDate != nil {
		years := now.Sub(*profile.InjuryDate).Hours() / (24 * 365.25)
		if years < 0 {
			years = 0
		}
		// Linear decay from 1.0 to the floor over the decay window; a
		// re-injury risk never drops to zero.
		idx := 1.0 - (1.0-e.cfg.InjuryIndexFloor)*(years/e.cfg.InjuryDecayYears)
		if idx < e.cfg.InjuryIndexFloor {
			idx = e.cfg.InjuryIndexFloor
		}
		comp.Index = idx
		comp.Detail = fmt.Sprintf("ACL injury %.1f years ago", years)
	}
	return comp
}

// clamp bounds x to [0,1].
func clamp(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// FromFeedback re-derives the feature vector a stored feedback record
// would have produced at prediction time. The trainer uses this so the
// design matrix matches what the extractor computes at serving time.
func (e *Extractor) FromFeedback(rec *models.FeedbackRecord) (*models.FeatureVector, error) {
	metric := rec.Metric()
	profile := rec.Profile()
	day, err := time.Parse(models.DateLayout, rec.Date)
	if err != nil {
		day = rec.CreatedAt
	}
	return e.Extract([]models.DailyMetric{metric}, profile, day)
}
