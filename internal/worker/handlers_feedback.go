package worker

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aclguard/backend/pkg/models"
)

// handleCreateFeedback stores a user's judgement of a prediction along
// with the input snapshot. Keyed by (user_id, date): a resubmission for
// the same day overwrites the earlier judgement.
func (s *Service) handleCreateFeedback(w http.ResponseWriter, r *http.Request) {
	var rec models.FeedbackRecord
	if err := decodeJSON(r, &rec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid feedback body: "+err.Error())
		return
	}
	if err := rec.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rec.CreatedAt = time.Now().UTC()

	if err := s.store.UpsertFeedback(r.Context(), &rec); err != nil {
		s.logger.Error().Err(err).Str("user_id", rec.UserID).Msg("feedback upsert failed")
		writeError(w, http.StatusInternalServerError, "storing feedback failed")
		return
	}

	count, err := s.store.CountPositiveFeedback(r.Context(), rec.UserID)
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", rec.UserID).Msg("positive feedback count failed")
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user_id":            rec.UserID,
		"date":               rec.Date,
		"accurate":           rec.Accurate,
		"positive_count":     count,
		"training_threshold": s.config.Training.MinFeedbackCount,
	})
}

// handleListFeedback returns a page of a user's feedback history,
// newest first.
func (s *Service) handleListFeedback(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be 1-500")
			return
		}
		limit = n
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		offset = n
	}

	recs, err := s.store.ListFeedback(r.Context(), userID, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("feedback list failed")
		writeError(w, http.StatusInternalServerError, "loading feedback failed")
		return
	}
	if recs == nil {
		recs = []models.FeedbackRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":  userID,
		"feedback": recs,
		"count":    len(recs),
	})
}

// handleFeedbackStats summarizes a user's feedback history.
func (s *Service) handleFeedbackStats(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	stats, err := s.store.GetFeedbackStats(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("feedback stats failed")
		writeError(w, http.StatusInternalServerError, "loading feedback stats failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleDeleteFeedback removes all feedback for a user.
func (s *Service) handleDeleteFeedback(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	deleted, err := s.store.DeleteFeedback(r.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("feedback delete failed")
		writeError(w, http.StatusInternalServerError, "deleting feedback failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
