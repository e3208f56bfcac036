package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/pkg/models"
)

// ExtractorSuite is a test suite for the feature extractor.
type ExtractorSuite struct {
	suite.Suite
	ext *Extractor
	now time.Time
}

func (s *ExtractorSuite) SetupTest() {
	s.ext = NewExtractor(config.Default().Features)
	s.now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
}

func TestExtractorSuite(t *testing.T) {
	suite.Run(t, new(ExtractorSuite))
}

func (s *ExtractorSuite) day(date string, steps, peak, hr int, sleep float64) models.DailyMetric {
	return models.DailyMetric{
		UserID:               "u1",
		Date:                 date,
		Steps:                steps,
		PeakIntensityMinutes: peak,
		RestingHeartRate:     hr,
		SleepHours:           sleep,
	}
}

func (s *ExtractorSuite) fullWeek(steps, peak, hr int, sleep float64) []models.DailyMetric {
	week := make([]models.DailyMetric, 7)
	for i := range week {
		d := s.now.AddDate(0, 0, -7+i).Format(models.DateLayout)
		week[i] = s.day(d, steps, peak, hr, sleep)
	}
	return week
}

func (s *ExtractorSuite) healthyProfile() models.UserProfile {
	return models.UserProfile{
		UserID:            "u1",
		HeightCM:          178,
		WeightKG:          76, // BMI ~24, inside the optimal band
		Age:               25,
		Sex:               models.SexMale,
		Sport:             "soccer",
		BaselineRestingHR: 58,
	}
}

// =============================================================================
// GOOD SCENARIOS - Expected normal operations
// =============================================================================

func (s *ExtractorSuite) TestExtract_GoodScenarios_HealthyWeek() {
	// 8000 steps, 10 peak min, HR at baseline, plenty of sleep
	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 58, 8), s.healthyProfile(), s.now)

	s.Require().NoError(err)
	// load: (8000-5000)/(20000-5000) = 0.2
	s.InDelta(0.2, fv.Load.Index, 0.001)
	// intensity: 10/60
	s.InDelta(0.1667, fv.Intensity.Index, 0.001)
	// fatigue: no HR elevation, no sleep deficit
	s.InDelta(0.0, fv.Fatigue.Index, 0.001)
	// BMI 24 is inside [22,27]
	s.InDelta(0.0, fv.BMI.Index, 0.001)
	s.InDelta(0.0, fv.History.Index, 0.001)
	s.InDelta(0.0, fv.Pain.Index, 0.001)
	s.Empty(fv.MissingData)
	s.Equal(7, fv.WindowDays)
	s.Equal(0, fv.MissingCount())
}

func (s *ExtractorSuite) TestExtract_GoodScenarios_HeavyLoadWeek() {
	// 17000 steps and 45 peak minutes per day
	fv, err := s.ext.Extract(s.fullWeek(17000, 45, 58, 8), s.healthyProfile(), s.now)

	s.Require().NoError(err)
	// load: (17000-5000)/15000 = 0.8
	s.InDelta(0.8, fv.Load.Index, 0.001)
	// intensity: 45/60 = 0.75
	s.InDelta(0.75, fv.Intensity.Index, 0.001)
}

func (s *ExtractorSuite) TestExtract_GoodScenarios_FatigueSubWeights() {
	// HR elevated 4 bpm over baseline, sleeping 5h vs a 7h target
	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 62, 5), s.healthyProfile(), s.now)

	s.Require().NoError(err)
	// hr: 4/8 = 0.5, sleep: 2/4 = 0.5 -> 0.6*0.5 + 0.4*0.5 = 0.5
	s.InDelta(0.5, fv.Fatigue.Index, 0.001)
	s.False(fv.Fatigue.Missing)
}

func (s *ExtractorSuite) TestExtract_GoodScenarios_RecentInjuryHistory() {
	profile := s.healthyProfile()
	injury := s.now.AddDate(0, -6, 0) // six months ago
	profile.PriorACLInjury = true
	profile.InjuryDate = &injury

	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 58, 8), profile, s.now)

	s.Require().NoError(err)
	// decay over 3 years toward the 0.3 floor: 1 - 0.7*(0.5/3) ~ 0.883
	s.InDelta(0.883, fv.History.Index, 0.01)
}

func (s *ExtractorSuite) TestExtract_GoodScenarios_OldInjuryHitsFloor() {
	profile := s.healthyProfile()
	injury := s.now.AddDate(-5, 0, 0)
	profile.PriorACLInjury = true
	profile.InjuryDate = &injury

	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 58, 8), profile, s.now)

	s.Require().NoError(err)
	// 5 years > 3-year decay window; the index never drops below the floor
	s.InDelta(0.3, fv.History.Index, 0.001)
}

func (s *ExtractorSuite) TestExtract_GoodScenarios_PainScore() {
	profile := s.healthyProfile()
	profile.KneePainScore = 7

	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 58, 8), profile, s.now)

	s.Require().NoError(err)
	s.InDelta(0.7, fv.Pain.Index, 0.001)
}

// =============================================================================
// EDGE CASES - Missing and degraded inputs
// =============================================================================

func (s *ExtractorSuite) TestExtract_EdgeCases_EmptyWindow() {
	_, err := s.ext.Extract(nil, s.healthyProfile(), s.now)

	s.Require().Error(err)
	s.ErrorIs(err, ErrEmptyWindow)
}

func (s *ExtractorSuite) TestExtract_EdgeCases_NoHeartRateFallsBackToSleep() {
	// HR never recorded; fatigue must come from sleep alone
	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 0, 5), s.healthyProfile(), s.now)

	s.Require().NoError(err)
	s.False(fv.Fatigue.Missing, "fatigue is computable from sleep alone")
	// sleep deficit only: (7-5)/4 = 0.5 at full weight
	s.InDelta(0.5, fv.Fatigue.Index, 0.001)
	s.Contains(fv.MissingData, MissingRestingHeartRate)
	s.NotContains(fv.MissingData, MissingSleep)
}

func (s *ExtractorSuite) TestExtract_EdgeCases_NoSleepFallsBackToHeartRate() {
	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 62, 0), s.healthyProfile(), s.now)

	s.Require().NoError(err)
	s.False(fv.Fatigue.Missing)
	// HR elevation only: 4/8 = 0.5 at full weight
	s.InDelta(0.5, fv.Fatigue.Index, 0.001)
	s.Contains(fv.MissingData, MissingSleep)
}

func (s *ExtractorSuite) TestExtract_EdgeCases_FatigueWhollyMissing() {
	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 0, 0), s.healthyProfile(), s.now)

	s.Require().NoError(err)
	s.True(fv.Fatigue.Missing)
	s.Equal(1, fv.MissingCount())
	s.Contains(fv.MissingData, MissingRestingHeartRate)
	s.Contains(fv.MissingData, MissingSleep)
}

func (s *ExtractorSuite) TestExtract_EdgeCases_NoBodyMetrics() {
	profile := s.healthyProfile()
	profile.HeightCM = 0
	profile.WeightKG = 0

	fv, err := s.ext.Extract(s.fullWeek(8000, 10, 58, 8), profile, s.now)

	s.Require().NoError(err)
	s.True(fv.BMI.Missing)
	s.InDelta(0.0, fv.BMI.Index, 0.001, "missing BMI substitutes a neutral index")
	s.Contains(fv.MissingData, MissingBodyMetrics)
}

func (s *ExtractorSuite) TestExtract_EdgeCases_ShortWindowFlagged() {
	window := []models.DailyMetric{
		s.day("2026-03-08", 9000, 10, 58, 8),
		s.day("2026-03-09", 7000, 10, 58, 8),
	}

	fv, err := s.ext.Extract(window, s.healthyProfile(), s.now)

	s.Require().NoError(err)
	s.Equal(2, fv.WindowDays)
	// partial average still drives the load index
	s.InDelta((8000.0-5000)/15000, fv.Load.Index, 0.001)
	s.Contains(fv.MissingData, MissingActivityDays)
}

func (s *ExtractorSuite) TestExtract_EdgeCases_TrailingBaselineFromWindow() {
	// No stored baseline; enough HR days to use the window minimum.
	profile := s.healthyProfile()
	profile.BaselineRestingHR = 0

	window := s.fullWeek(8000, 10, 64, 8)
	window[0].RestingHeartRate = 60 // window minimum becomes the baseline

	fv, err := s.ext.Extract(window, profile, s.now)

	s.Require().NoError(err)
	// avg HR = (60 + 6*64)/7 ~ 63.43, elevation (63.43-60)/8 ~ 0.429,
	// at the 0.6 sub-weight with zero sleep deficit: ~0.257
	s.InDelta(0.257, fv.Fatigue.Index, 0.005)
}

func (s *ExtractorSuite) TestExtract_EdgeCases_PopulationBaselineFallback() {
	// One HR day only: below BaselineMinDays, population default applies.
	profile := s.healthyProfile()
	profile.BaselineRestingHR = 0 // male under 30 -> population baseline 63

	window := s.fullWeek(8000, 10, 0, 8)
	window[6].RestingHeartRate = 71 // 8 bpm over the population baseline

	fv, err := s.ext.Extract(window, profile, s.now)

	s.Require().NoError(err)
	// hr idx = (71-63)/8 = 1.0 at the 0.6 sub-weight, sleep idx 0
	s.InDelta(0.6, fv.Fatigue.Index, 0.001)
}

func (s *ExtractorSuite) TestExtract_EdgeCases_IndicesClamped() {
	// Extreme inputs must saturate at 1.0, never exceed it.
	profile := s.healthyProfile()
	profile.WeightKG = 140 // BMI far above the band
	profile.KneePainScore = 10

	fv, err := s.ext.Extract(s.fullWeek(40000, 200, 110, 0.5), profile, s.now)

	s.Require().NoError(err)
	for _, c := range fv.Components() {
		s.LessOrEqual(c.Index, 1.0, "component %s must be clamped", c.Name)
		s.GreaterOrEqual(c.Index, 0.0)
	}
}

func (s *ExtractorSuite) TestFromFeedback_RebuildsSingleDayVector() {
	rec := &models.FeedbackRecord{
		UserID:           "u1",
		Date:             "2026-03-09",
		Steps:            17000,
		RestingHeartRate: 66,
		SleepHours:       5,
		HeightCM:         178,
		WeightKG:         76,
		Age:              25,
		Sex:              models.SexMale,
		FormulaRisk:      0.55,
		Accurate:         true,
		CreatedAt:        s.now,
	}

	fv, err := s.ext.FromFeedback(rec)

	s.Require().NoError(err)
	s.Equal(1, fv.WindowDays)
	s.InDelta(0.8, fv.Load.Index, 0.001)
	s.False(fv.BMI.Missing)
}
