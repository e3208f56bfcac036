package worker

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aclguard/backend/internal/db"
	"github.com/aclguard/backend/internal/features"
	"github.com/aclguard/backend/internal/risk"
	"github.com/aclguard/backend/pkg/models"
)

// riskResponse is the full scoring payload returned to clients.
// FormulaRisk is always the formula value on the 0-1 scale so clients
// can echo it back in feedback regardless of which method scored.
type riskResponse struct {
	models.RiskResult
	Date        string    `json:"date"`
	FormulaRisk float64   `json:"formula_risk"`
	GeneratedAt time.Time `json:"generated_at"`
}

// handleRisk scores a user from their stored metric window and profile.
func (s *Service) handleRisk(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(models.DateLayout)
	}
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		writeError(w, http.StatusBadRequest, "invalid date, want YYYY-MM-DD")
		return
	}

	days := s.config.Features.WindowDays
	if v := r.URL.Query().Get("window_days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 90 {
			writeError(w, http.StatusBadRequest, "window_days must be 1-90")
			return
		}
		days = n
	}

	profile, err := s.store.GetProfile(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("profile fetch failed")
		writeError(w, http.StatusInternalServerError, "loading profile failed")
		return
	}

	window, err := s.store.GetMetricWindow(r.Context(), userID, date, days)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("metric window fetch failed")
		writeError(w, http.StatusInternalServerError, "loading metrics failed")
		return
	}

	resp, err := s.score(userID, window, *profile, date)
	if err != nil {
		s.respondScoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// predictRequest is a stateless scoring payload: the caller supplies
// the window and profile inline instead of relying on stored data.
type predictRequest struct {
	Profile models.UserProfile   `json:"profile"`
	Metrics []models.DailyMetric `json:"metrics"`
}

// handlePredict scores a posted window without touching storage.
func (s *Service) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid predict body: "+err.Error())
		return
	}
	if err := validateProfile(&req.Profile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i := range req.Metrics {
		if err := req.Metrics[i].Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	date := time.Now().Format(models.DateLayout)
	if len(req.Metrics) > 0 {
		date = req.Metrics[len(req.Metrics)-1].Date
	}

	resp, err := s.score(req.Profile.UserID, req.Metrics, req.Profile, date)
	if err != nil {
		s.respondScoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// score runs the extract-score-recommend pipeline.
func (s *Service) score(userID string, window []models.DailyMetric, profile models.UserProfile, date string) (*riskResponse, error) {
	fv, err := s.extractor.Extract(window, profile, time.Now())
	if err != nil {
		return nil, err
	}

	result, err := s.scorer.Score(userID, fv)
	if err != nil {
		return nil, err
	}
	result.Recommendations = s.recommender.Generate(result, profile)

	formulaRisk, _, err := s.scorer.Formula(fv)
	if err != nil {
		return nil, err
	}

	return &riskResponse{
		RiskResult:  *result,
		Date:        date,
		FormulaRisk: formulaRisk,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// respondScoreError maps pipeline errors to HTTP statuses.
func (s *Service) respondScoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, features.ErrEmptyWindow):
		writeError(w, http.StatusUnprocessableEntity, "no metrics recorded in the requested window")
	case errors.Is(err, risk.ErrNoUsableData):
		writeError(w, http.StatusUnprocessableEntity, "no usable data to score")
	default:
		s.logger.Error().Err(err).Msg("scoring failed")
		writeError(w, http.StatusInternalServerError, "scoring failed")
	}
}
