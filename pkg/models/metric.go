// Package models contains domain models for aclguard.
package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date key format used across stores.
const DateLayout = "2006-01-02"

// DailyMetric holds one day of wearable-derived activity and sleep data
// for a user. Records are immutable once written; a re-sync for the same
// (user, date) key supersedes the previous record via upsert.
type DailyMetric struct {
	UserID               string  `json:"user_id"`
	Date                 string  `json:"date"` // YYYY-MM-DD
	Steps                int     `json:"steps"`
	DistanceKM           float64 `json:"distance_km"`
	ActiveMinutes        int     `json:"active_minutes"`
	PeakIntensityMinutes int     `json:"peak_intensity_minutes"`
	RestingHeartRate     int     `json:"resting_heart_rate"` // 0 = not recorded
	SleepHours           float64 `json:"sleep_hours"`        // 0 = not recorded
	SleepEfficiency      float64 `json:"sleep_efficiency"`   // percent, 0-100
	Calories             int     `json:"calories"`
}

// Validate checks field ranges. Zero values are allowed everywhere since
// wearables routinely drop individual channels; only impossible values
// are rejected.
func (m *DailyMetric) Validate() error {
	if m.UserID == "" {
		return fmt.Errorf("daily metric: user_id is required")
	}
	if _, err := time.Parse(DateLayout, m.Date); err != nil {
		return fmt.Errorf("daily metric: invalid date %q: %w", m.Date, err)
	}
	if m.Steps < 0 || m.DistanceKM < 0 || m.ActiveMinutes < 0 || m.PeakIntensityMinutes < 0 || m.Calories < 0 {
		return fmt.Errorf("daily metric: negative activity value")
	}
	if m.RestingHeartRate != 0 && (m.RestingHeartRate < 30 || m.RestingHeartRate > 120) {
		return fmt.Errorf("daily metric: resting heart rate %d outside physiological range", m.RestingHeartRate)
	}
	if m.SleepHours < 0 || m.SleepHours > 16 {
		return fmt.Errorf("daily metric: sleep hours %.1f outside 0-16", m.SleepHours)
	}
	if m.SleepEfficiency < 0 || m.SleepEfficiency > 100 {
		return fmt.Errorf("daily metric: sleep efficiency %.1f outside 0-100", m.SleepEfficiency)
	}
	return nil
}

// HasHeartRate reports whether a resting heart rate was recorded for the day.
func (m *DailyMetric) HasHeartRate() bool { return m.RestingHeartRate > 0 }

// HasSleep reports whether sleep was recorded for the day.
func (m *DailyMetric) HasSleep() bool { return m.SleepHours > 0 }
