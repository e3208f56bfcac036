package models

import (
	"fmt"
	"time"
)

// GlobalTrainingKey aggregates feedback across all users into one model.
const GlobalTrainingKey = "global"

// FeedbackRecord is one user judgement of a prediction, snapshotting the
// inputs that produced it. Keyed by (user_id, date); resubmission for the
// same day overwrites. Records with Accurate=true form the training
// corpus.
type FeedbackRecord struct {
	UserID string `json:"user_id"`
	Date   string `json:"date"` // YYYY-MM-DD

	// Metric snapshot at prediction time.
	Steps                int     `json:"steps"`
	DistanceKM           float64 `json:"distance_km"`
	ActiveMinutes        int     `json:"active_minutes"`
	PeakIntensityMinutes int     `json:"peak_intensity_minutes"`
	RestingHeartRate     int     `json:"resting_heart_rate"`
	SleepHours           float64 `json:"sleep_hours"`
	SleepEfficiency      float64 `json:"sleep_efficiency"`

	// Profile snapshot at prediction time.
	HeightCM       float64 `json:"height_cm"`
	WeightKG       float64 `json:"weight_kg"`
	Age            int     `json:"age"`
	Sex            Sex     `json:"sex"`
	Sport          string  `json:"sport"`
	PriorACLInjury bool    `json:"prior_acl_injury"`
	KneePainScore  int     `json:"knee_pain_score"`

	// FormulaRisk is the formula-computed risk on the 0-1 scale, the
	// training target.
	FormulaRisk float64 `json:"formula_risk"`

	// Accurate is the user's judgement of the prediction.
	Accurate bool `json:"feedback"`

	CreatedAt time.Time `json:"created_at"`
}

// Validate checks required keys and ranges before storage.
func (r *FeedbackRecord) Validate() error {
	if r.UserID == "" {
		return fmt.Errorf("feedback: user_id is required")
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("feedback: invalid date %q: %w", r.Date, err)
	}
	if r.FormulaRisk < 0 || r.FormulaRisk > 1 {
		return fmt.Errorf("feedback: formula_risk %.3f outside [0,1]", r.FormulaRisk)
	}
	if r.KneePainScore < 0 || r.KneePainScore > 10 {
		return fmt.Errorf("feedback: knee_pain_score %d outside 0-10", r.KneePainScore)
	}
	return nil
}

// Metric reconstructs the daily metric snapshot stored on the record.
func (r *FeedbackRecord) Metric() DailyMetric {
	return DailyMetric{
		UserID:               r.UserID,
		Date:                 r.Date,
		Steps:                r.Steps,
		DistanceKM:           r.DistanceKM,
		ActiveMinutes:        r.ActiveMinutes,
		PeakIntensityMinutes: r.PeakIntensityMinutes,
		RestingHeartRate:     r.RestingHeartRate,
		SleepHours:           r.SleepHours,
		SleepEfficiency:      r.SleepEfficiency,
	}
}

// Profile reconstructs the profile snapshot stored on the record.
func (r *FeedbackRecord) Profile() UserProfile {
	return UserProfile{
		UserID:         r.UserID,
		HeightCM:       r.HeightCM,
		WeightKG:       r.WeightKG,
		Age:            r.Age,
		Sex:            r.Sex,
		Sport:          r.Sport,
		PriorACLInjury: r.PriorACLInjury,
		KneePainScore:  r.KneePainScore,
	}
}

// FeedbackStats summarizes a user's feedback history.
type FeedbackStats struct {
	UserID         string  `json:"user_id"`
	Total          int     `json:"total_entries"`
	Positive       int     `json:"positive_feedback"`
	Negative       int     `json:"negative_feedback"`
	AccuracyRate   float64 `json:"accuracy_rate"` // percent
	AvgFormulaRisk float64 `json:"avg_formula_risk"`
	LatestDate     string  `json:"latest_entry,omitempty"`
}
