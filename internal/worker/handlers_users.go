package worker

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aclguard/backend/internal/db"
	"github.com/aclguard/backend/pkg/models"
)

// handleUpsertProfile stores or replaces a user's profile.
func (s *Service) handleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var profile models.UserProfile
	if err := decodeJSON(r, &profile); err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile body: "+err.Error())
		return
	}
	profile.UserID = userID

	if err := validateProfile(&profile); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.store.UpsertProfile(r.Context(), &profile); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("profile upsert failed")
		writeError(w, http.StatusInternalServerError, "storing profile failed")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleGetProfile returns a user's profile.
func (s *Service) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

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
	writeJSON(w, http.StatusOK, profile)
}

// metricsRequest accepts one day or a batch.
type metricsRequest struct {
	Metrics []models.DailyMetric `json:"metrics"`
}

// handleUpsertMetrics ingests daily metrics; same-day resubmission
// overwrites.
func (s *Service) handleUpsertMetrics(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var req metricsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid metrics body: "+err.Error())
		return
	}
	if len(req.Metrics) == 0 {
		writeError(w, http.StatusBadRequest, "metrics list is empty")
		return
	}

	for i := range req.Metrics {
		m := &req.Metrics[i]
		m.UserID = userID
		if err := m.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	for i := range req.Metrics {
		if err := s.store.UpsertMetric(r.Context(), &req.Metrics[i]); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("metric upsert failed")
			writeError(w, http.StatusInternalServerError, "storing metrics failed")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"stored": len(req.Metrics)})
}

// validateProfile checks ranges the model depends on.
func validateProfile(p *models.UserProfile) error {
	switch {
	case p.Age < 0 || p.Age > 120:
		return errors.New("age outside 0-120")
	case p.HeightCM < 0 || p.HeightCM > 260:
		return errors.New("height_cm outside 0-260")
	case p.WeightKG < 0 || p.WeightKG > 400:
		return errors.New("weight_kg outside 0-400")
	case p.KneePainScore < 0 || p.KneePainScore > 10:
		return errors.New("knee_pain_score outside 0-10")
	}
	switch p.Sex {
	case "", models.SexMale, models.SexFemale, models.SexOther:
	default:
		return errors.New("sex must be M, F or other")
	}
	switch p.RehabStatus {
	case "", models.RehabNone, models.RehabActive, models.RehabRecovered:
	default:
		return errors.New("rehab_status must be none, active_rehab or recovered")
	}
	return nil
}
