package gorm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclguard/backend/pkg/models"
)

func TestMetricRowRoundTrip(t *testing.T) {
	m := models.DailyMetric{
		UserID:               "u1",
		Date:                 "2026-03-01",
		Steps:                12345,
		DistanceKM:           8.2,
		ActiveMinutes:        61,
		PeakIntensityMinutes: 14,
		RestingHeartRate:     57,
		SleepHours:           7.4,
		SleepEfficiency:      91,
		Calories:             2680,
	}

	row := metricRow(&m)
	assert.Equal(t, m, row.toModel())
}

func TestProfileRowRoundTrip(t *testing.T) {
	injury := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	p := models.UserProfile{
		UserID:            "u1",
		HeightCM:          171,
		WeightKG:          64,
		Age:               22,
		Sex:               models.SexFemale,
		Sport:             "basketball",
		LimbDominance:     models.DominanceRight,
		PriorACLInjury:    true,
		InjuryDate:        &injury,
		KneePainScore:     3,
		RehabStatus:       models.RehabRecovered,
		BaselineRestingHR: 56,
	}

	row := profileRow(&p)
	assert.Equal(t, p, row.toModel())
}

func TestFeedbackRowRoundTrip(t *testing.T) {
	rec := models.FeedbackRecord{
		UserID:               "u1",
		Date:                 "2026-03-01",
		Steps:                9000,
		DistanceKM:           6.1,
		ActiveMinutes:        55,
		PeakIntensityMinutes: 12,
		RestingHeartRate:     58,
		SleepHours:           7.5,
		SleepEfficiency:      92,
		HeightCM:             178,
		WeightKG:             76,
		Age:                  24,
		Sex:                  models.SexMale,
		Sport:                "football",
		PriorACLInjury:       false,
		KneePainScore:        1,
		FormulaRisk:          0.35,
		Accurate:             true,
		CreatedAt:            time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	row := feedbackRow(&rec)
	assert.Equal(t, rec, row.toModel())
}

func TestFeedbackRowDefaultsCreatedAt(t *testing.T) {
	rec := models.FeedbackRecord{UserID: "u1", Date: "2026-03-01", FormulaRisk: 0.2}

	row := feedbackRow(&rec)
	require.False(t, row.CreatedAt.IsZero())
}
