package gorm

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/aclguard/backend/internal/db"
	"github.com/aclguard/backend/pkg/models"
)

// integrationStore connects to the database named by DATABASE_DSN, or
// skips the test when it is unset.
func integrationStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		t.Skip("DATABASE_DSN not set, skipping integration test")
	}
	store, err := NewStore(Config{DSN: dsn, LogLevel: logger.Silent})
	require.NoError(t, err)
	t.Cleanup(func() {
		store.DB.Exec("DELETE FROM feedback")
		store.DB.Exec("DELETE FROM daily_metrics")
		store.DB.Exec("DELETE FROM user_profiles")
		_ = store.Close()
	})
	return store
}

func TestIntegration_MetricWindowRoundTrip(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	for _, d := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		require.NoError(t, store.UpsertMetric(ctx, &models.DailyMetric{
			UserID: "it-u1", Date: d, Steps: 9000,
		}))
	}
	// Overwrite one day.
	require.NoError(t, store.UpsertMetric(ctx, &models.DailyMetric{
		UserID: "it-u1", Date: "2026-03-02", Steps: 15000,
	}))

	window, err := store.GetMetricWindow(ctx, "it-u1", "2026-03-03", 7)
	require.NoError(t, err)
	require.Len(t, window, 3)
	assert.Equal(t, 15000, window[1].Steps)

	count, err := store.CountMetrics(ctx, "it-u1")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestIntegration_ProfileRoundTrip(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	injury := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpsertProfile(ctx, &models.UserProfile{
		UserID:         "it-u1",
		HeightCM:       170,
		WeightKG:       62,
		Sex:            models.SexFemale,
		PriorACLInjury: true,
		InjuryDate:     &injury,
		RehabStatus:    models.RehabRecovered,
	}))

	got, err := store.GetProfile(ctx, "it-u1")
	require.NoError(t, err)
	assert.True(t, got.PriorACLInjury)
	require.NotNil(t, got.InjuryDate)
	assert.Equal(t, "2024-06-15", got.InjuryDate.Format(models.DateLayout))

	_, err = store.GetProfile(ctx, "it-nobody")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestIntegration_FeedbackCorpus(t *testing.T) {
	store := integrationStore(t)
	ctx := context.Background()

	rec := func(user, date string, accurate bool) *models.FeedbackRecord {
		return &models.FeedbackRecord{
			UserID: user, Date: date, FormulaRisk: 0.4, Accurate: accurate,
			CreatedAt: time.Now().UTC(),
		}
	}
	require.NoError(t, store.UpsertFeedback(ctx, rec("it-u1", "2026-03-01", true)))
	require.NoError(t, store.UpsertFeedback(ctx, rec("it-u1", "2026-03-02", false)))
	require.NoError(t, store.UpsertFeedback(ctx, rec("it-u2", "2026-03-01", true)))

	// Same-day resubmission overwrites.
	require.NoError(t, store.UpsertFeedback(ctx, rec("it-u1", "2026-03-02", true)))

	count, err := store.CountPositiveFeedback(ctx, "it-u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	global, err := store.GetPositiveFeedback(ctx, models.GlobalTrainingKey)
	require.NoError(t, err)
	assert.Len(t, global, 3)

	stats, err := store.GetFeedbackStats(ctx, "it-u1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.InDelta(t, 100.0, stats.AccuracyRate, 0.001)

	deleted, err := store.DeleteFeedback(ctx, "it-u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
