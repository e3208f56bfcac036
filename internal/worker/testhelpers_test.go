package worker

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/pkg/models"
)

// testService creates a Service over a temporary SQLite database and
// model directory. Training is tuned down so bootstrap runs finish fast.
func testService(t *testing.T) (*Service, func()) {
	return testServiceWith(t, nil)
}

// testServiceWith applies mutate to the config before wiring, for tests
// that need non-default settings baked into the components.
func testServiceWith(t *testing.T, mutate func(*config.Config)) (*Service, func()) {
	t.Helper()

	tmpDir := t.TempDir()

	cfg := config.Default()
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = filepath.Join(tmpDir, "test.db")
	cfg.Database.MaxConns = 1
	cfg.Models.Dir = filepath.Join(tmpDir, "models")
	cfg.Models.Watch = false
	cfg.Training.MinFeedbackCount = 5
	cfg.Training.BootstrapSamples = 200
	cfg.Training.NumTrees = 10
	cfg.Training.MaxDepth = 6
	if mutate != nil {
		mutate(cfg)
	}

	svc, err := NewService(cfg, "test-version", zerolog.Nop())
	require.NoError(t, err)

	cleanup := func() {
		_ = svc.store.Close()
	}
	return svc, cleanup
}

// doJSON performs a request with an optional JSON body and decodes the
// JSON response into out when non-nil.
func doJSON(t *testing.T, svc *Service, method, path string, body, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	svc.router.ServeHTTP(rec, req)

	if out != nil && rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

// testProfile returns a healthy adult profile for user id.
func testProfile(id string) models.UserProfile {
	return models.UserProfile{
		UserID:   id,
		HeightCM: 178,
		WeightKG: 76,
		Age:      24,
		Sex:      models.SexMale,
		Sport:    "football",
	}
}

// testWeek returns seven consecutive full-channel metric days ending at
// end (inclusive).
func testWeek(id, end string) []models.DailyMetric {
	endDate, _ := time.Parse(models.DateLayout, end)
	days := make([]models.DailyMetric, 0, 7)
	for i := 6; i >= 0; i-- {
		days = append(days, models.DailyMetric{
			UserID:               id,
			Date:                 endDate.AddDate(0, 0, -i).Format(models.DateLayout),
			Steps:                9000,
			DistanceKM:           6.5,
			ActiveMinutes:        55,
			PeakIntensityMinutes: 12,
			RestingHeartRate:     58,
			SleepHours:           7.5,
			SleepEfficiency:      92,
			Calories:             2400,
		})
	}
	return days
}

// seedUser stores a profile and a metric week through the HTTP API.
func seedUser(t *testing.T, svc *Service, id, end string) {
	t.Helper()

	profile := testProfile(id)
	rec := doJSON(t, svc, http.MethodPost, "/api/users/"+id+"/profile", profile, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, svc, http.MethodPost, "/api/users/"+id+"/metrics",
		map[string]any{"metrics": testWeek(id, end)}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
