package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/pkg/models"
)

func TestHandleHealth(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	var body map[string]any
	rec := doJSON(t, svc, http.MethodGet, "/health", nil, &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test-version", body["version"])
	assert.Equal(t, "ok", body["database"])
}

func TestHandleVersion(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	var body map[string]string
	rec := doJSON(t, svc, http.MethodGet, "/api/version", nil, &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test-version", body["version"])
}

func TestProfileRoundTrip(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	profile := testProfile("u1")
	rec := doJSON(t, svc, http.MethodPost, "/api/users/u1/profile", profile, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.UserProfile
	rec = doJSON(t, svc, http.MethodGet, "/api/users/u1/profile", nil, &got)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, profile.HeightCM, got.HeightCM)
	assert.Equal(t, profile.Sport, got.Sport)
}

func TestProfileURLOverridesBodyUserID(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	profile := testProfile("someone-else")
	rec := doJSON(t, svc, http.MethodPost, "/api/users/u1/profile", profile, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.UserProfile
	rec = doJSON(t, svc, http.MethodGet, "/api/users/u1/profile", nil, &got)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", got.UserID)
}

func TestGetProfile_NotFound(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodGet, "/api/users/nobody/profile", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpsertProfile_RejectsBadRanges(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	profile := testProfile("u1")
	profile.KneePainScore = 11
	rec := doJSON(t, svc, http.MethodPost, "/api/users/u1/profile", profile, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	profile = testProfile("u1")
	profile.Sex = "X"
	rec = doJSON(t, svc, http.MethodPost, "/api/users/u1/profile", profile, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertProfile_RejectsUnknownFields(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodPost, "/api/users/u1/profile",
		map[string]any{"age": 24, "heihgt_cm": 178}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertMetrics(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	var body map[string]any
	rec := doJSON(t, svc, http.MethodPost, "/api/users/u1/metrics",
		map[string]any{"metrics": testWeek("u1", "2025-06-07")}, &body)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 7, body["stored"])
}

func TestUpsertMetrics_EmptyList(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodPost, "/api/users/u1/metrics",
		map[string]any{"metrics": []models.DailyMetric{}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpsertMetrics_RejectsInvalidDay(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	week := testWeek("u1", "2025-06-07")
	week[3].RestingHeartRate = 300
	rec := doJSON(t, svc, http.MethodPost, "/api/users/u1/metrics",
		map[string]any{"metrics": week}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRisk(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	seedUser(t, svc, "u1", "2025-06-07")

	var body struct {
		Score       float64                `json:"risk_score"`
		Level       models.RiskLevel       `json:"risk_level"`
		Color       string                 `json:"risk_color"`
		Confidence  models.Confidence      `json:"confidence"`
		Method      models.ScoreMethod     `json:"method"`
		Components  []models.RiskComponent `json:"components"`
		MissingData []string               `json:"missing_data"`
		Date        string                 `json:"date"`
		FormulaRisk float64                `json:"formula_risk"`
	}
	rec := doJSON(t, svc, http.MethodGet, "/api/users/u1/risk?date=2025-06-07", nil, &body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.RiskLow, body.Level)
	assert.Equal(t, "green", body.Color)
	assert.Equal(t, models.ConfidenceHigh, body.Confidence)
	assert.Equal(t, models.MethodFormula, body.Method)
	assert.Len(t, body.Components, 6)
	assert.Empty(t, body.MissingData)
	assert.Equal(t, "2025-06-07", body.Date)
	assert.InDelta(t, body.Score/100, body.FormulaRisk, 0.006)
}

func TestHandleRisk_ProfileMissing(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodGet, "/api/users/nobody/risk", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRisk_EmptyWindow(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	seedUser(t, svc, "u1", "2025-06-07")

	// A window far from the seeded week has no metrics at all.
	rec := doJSON(t, svc, http.MethodGet, "/api/users/u1/risk?date=2024-01-01", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleRisk_RejectsBadParams(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	seedUser(t, svc, "u1", "2025-06-07")

	rec := doJSON(t, svc, http.MethodGet, "/api/users/u1/risk?date=07-06-2025", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, svc, http.MethodGet, "/api/users/u1/risk?window_days=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, svc, http.MethodGet, "/api/users/u1/risk?window_days=365", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePredict_Stateless(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	var body struct {
		Score  float64            `json:"risk_score"`
		Method models.ScoreMethod `json:"method"`
		Date   string             `json:"date"`
	}
	rec := doJSON(t, svc, http.MethodPost, "/api/predict", map[string]any{
		"profile": testProfile("guest"),
		"metrics": testWeek("guest", "2025-06-07"),
	}, &body)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MethodFormula, body.Method)
	assert.Equal(t, "2025-06-07", body.Date)
	assert.GreaterOrEqual(t, body.Score, 0.0)
	assert.LessOrEqual(t, body.Score, 100.0)
}

func TestHandlePredict_NoMetrics(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodPost, "/api/predict", map[string]any{
		"profile": testProfile("guest"),
		"metrics": []models.DailyMetric{},
	}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func testFeedback(id, date string, accurate bool) models.FeedbackRecord {
	return models.FeedbackRecord{
		UserID:               id,
		Date:                 date,
		Steps:                9000,
		ActiveMinutes:        55,
		PeakIntensityMinutes: 12,
		RestingHeartRate:     58,
		SleepHours:           7.5,
		HeightCM:             178,
		WeightKG:             76,
		Age:                  24,
		Sex:                  models.SexMale,
		Sport:                "football",
		FormulaRisk:          0.22,
		Accurate:             accurate,
	}
}

func TestFeedbackLifecycle(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	var created map[string]any
	rec := doJSON(t, svc, http.MethodPost, "/api/feedback",
		testFeedback("u1", "2025-06-07", true), &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 1, created["positive_count"])
	assert.EqualValues(t, svc.config.Training.MinFeedbackCount, created["training_threshold"])

	rec = doJSON(t, svc, http.MethodPost, "/api/feedback",
		testFeedback("u1", "2025-06-08", false), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var stats models.FeedbackStats
	rec = doJSON(t, svc, http.MethodGet, "/api/feedback/u1/stats", nil, &stats)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Positive)
	assert.Equal(t, 1, stats.Negative)

	var deleted map[string]any
	rec = doJSON(t, svc, http.MethodDelete, "/api/feedback/u1", nil, &deleted)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, deleted["deleted"])

	rec = doJSON(t, svc, http.MethodGet, "/api/feedback/u1/stats", nil, &stats)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, stats.Total)
}

func TestListFeedback_PagedNewestFirst(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	for _, date := range []string{"2025-06-05", "2025-06-06", "2025-06-07"} {
		rec := doJSON(t, svc, http.MethodPost, "/api/feedback",
			testFeedback("u1", date, true), nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var page struct {
		Feedback []models.FeedbackRecord `json:"feedback"`
		Count    int                     `json:"count"`
	}
	rec := doJSON(t, svc, http.MethodGet, "/api/feedback/u1?limit=2", nil, &page)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, page.Feedback, 2)
	assert.Equal(t, "2025-06-07", page.Feedback[0].Date)
	assert.Equal(t, "2025-06-06", page.Feedback[1].Date)

	rec = doJSON(t, svc, http.MethodGet, "/api/feedback/u1?limit=2&offset=2", nil, &page)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, page.Feedback, 1)
	assert.Equal(t, "2025-06-05", page.Feedback[0].Date)

	rec = doJSON(t, svc, http.MethodGet, "/api/feedback/nobody", nil, &page)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, page.Feedback)

	rec = doJSON(t, svc, http.MethodGet, "/api/feedback/u1?limit=0", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLastTrainResult(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodGet, "/api/train/global", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, svc, http.MethodPost, "/api/train/global", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]any
	rec = doJSON(t, svc, http.MethodGet, "/api/train/global", nil, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "skipped", result["status"])
}

func TestCreateFeedback_SameDayOverwrites(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodPost, "/api/feedback",
		testFeedback("u1", "2025-06-07", true), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	rec = doJSON(t, svc, http.MethodPost, "/api/feedback",
		testFeedback("u1", "2025-06-07", false), &created)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 0, created["positive_count"])
}

func TestCreateFeedback_RejectsBadRecord(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	bad := testFeedback("u1", "2025-06-07", true)
	bad.FormulaRisk = 1.5
	rec := doJSON(t, svc, http.MethodPost, "/api/feedback", bad, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad = testFeedback("", "2025-06-07", true)
	rec = doJSON(t, svc, http.MethodPost, "/api/feedback", bad, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleTrain_Bootstrap(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	var result map[string]any
	rec := doJSON(t, svc, http.MethodPost, "/api/train/global?bootstrap=true", nil, &result)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trained", result["status"])
	assert.Equal(t, "synthetic-prior", result["provenance"])
	assert.NotEmpty(t, result["model_version"])

	// The bootstrap model must now serve subsequent scoring calls.
	seedUser(t, svc, "u1", "2025-06-07")
	var risky struct {
		Method models.ScoreMethod `json:"method"`
	}
	rec = doJSON(t, svc, http.MethodGet, "/api/users/u1/risk?date=2025-06-07", nil, &risky)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.MethodModel, risky.Method)
}

func TestHandleTrain_SkipsThinCorpus(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodPost, "/api/feedback",
		testFeedback("u1", "2025-06-07", true), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var result map[string]any
	rec = doJSON(t, svc, http.MethodPost, "/api/train/u1", nil, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "skipped", result["status"])
	assert.EqualValues(t, svc.config.Training.MinFeedbackCount, result["min_required"])
}

func TestHandleTrain_FromFeedback(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	start, _ := time.Parse(models.DateLayout, "2025-01-01")
	for i := 0; i < 10; i++ {
		fb := testFeedback("u1", start.AddDate(0, 0, i).Format(models.DateLayout), true)
		fb.Steps = 6000 + i*1500
		fb.FormulaRisk = 0.1 + float64(i)*0.05
		rec := doJSON(t, svc, http.MethodPost, "/api/feedback", fb, nil)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	var result map[string]any
	rec := doJSON(t, svc, http.MethodPost, "/api/train/u1", nil, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trained", result["status"])
	assert.Equal(t, "feedback-trained", result["provenance"])
	assert.EqualValues(t, 10, result["sample_count"])
}

func TestHandleTrain_SurvivesRequestCancellation(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Long runs outlive the request deadline, so a dead request context
	// must not abort the training run.
	req := httptest.NewRequest(http.MethodPost, "/api/train/global?bootstrap=true", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "trained", result["status"])
}

func TestHandleTrain_FailureRecorded(t *testing.T) {
	// An unrunnable timeout makes the run fail rather than skip.
	svc, cleanup := testServiceWith(t, func(cfg *config.Config) {
		cfg.Training.Timeout = time.Nanosecond
	})
	defer cleanup()

	var result map[string]any
	rec := doJSON(t, svc, http.MethodPost, "/api/train/global?bootstrap=true", nil, &result)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed", result["status"])
	assert.NotEmpty(t, result["error"])

	rec = doJSON(t, svc, http.MethodGet, "/api/train/global", nil, &result)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "failed", result["status"])
}

func TestModelEndpoints(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	rec := doJSON(t, svc, http.MethodGet, "/api/models/global", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var listing struct {
		Models []modelSummary `json:"models"`
	}
	rec = doJSON(t, svc, http.MethodGet, "/api/models", nil, &listing)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, listing.Models)

	rec = doJSON(t, svc, http.MethodPost, "/api/train/global?bootstrap=true", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, svc, http.MethodGet, "/api/models", nil, &listing)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, listing.Models, 1)
	assert.Equal(t, models.GlobalTrainingKey, listing.Models[0].Key)
	assert.Equal(t, 10, listing.Models[0].Trees)

	var summary modelSummary
	rec = doJSON(t, svc, http.MethodGet, "/api/models/global", nil, &summary)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, listing.Models[0].Version, summary.Version)
	assert.NotEmpty(t, summary.Importances)
}

func TestBodyLimit(t *testing.T) {
	svc, cleanup := testService(t)
	defer cleanup()

	svc.config.Server.MaxBodyBytes = 64

	week := testWeek("u1", "2025-06-07")
	rec := doJSON(t, svc, http.MethodPost, "/api/users/u1/metrics",
		map[string]any{"metrics": week}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
