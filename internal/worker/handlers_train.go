package worker

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aclguard/backend/internal/model"
	"github.com/aclguard/backend/internal/trainer"
)

// handleTrain triggers a training run for a key (a user id or the
// global key). With ?bootstrap=true a synthetic-prior model is fitted
// instead of requiring feedback. Skipped runs return 200 with status
// "skipped".
func (s *Service) handleTrain(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	// Training outlives the request deadline; the run carries its own
	// timeout from the training config.
	ctx := context.WithoutCancel(r.Context())

	var err error
	var res any
	if r.URL.Query().Get("bootstrap") == "true" {
		res, err = s.trainer.Bootstrap(ctx, key)
	} else {
		res, err = s.trainer.Train(ctx, key)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("training run failed")
		if last := s.trainer.LastResult(key); last != nil && last.Status == trainer.StatusFailed {
			writeJSON(w, http.StatusInternalServerError, last)
			return
		}
		writeError(w, http.StatusInternalServerError, "training failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleLastTrainResult returns the most recent run result for a key
// since startup.
func (s *Service) handleLastTrainResult(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	res := s.trainer.LastResult(key)
	if res == nil {
		writeError(w, http.StatusNotFound, "no training run recorded for key")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// modelSummary is the metadata view of a bundle, without the fitted
// forest itself.
type modelSummary struct {
	Key         string             `json:"key"`
	Version     string             `json:"version"`
	Provenance  model.Provenance   `json:"provenance"`
	CreatedAt   string             `json:"created_at"`
	SampleCount int                `json:"sample_count"`
	TestCount   int                `json:"test_count"`
	MSE         float64            `json:"mse"`
	R2          float64            `json:"r2"`
	Importances map[string]float64 `json:"feature_importances"`
	Trees       int                `json:"trees"`
}

func summarize(m *model.TrainedModel) modelSummary {
	return modelSummary{
		Key:         m.Key,
		Version:     m.ID,
		Provenance:  m.Provenance,
		CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		SampleCount: m.SampleCount,
		TestCount:   m.TestCount,
		MSE:         m.MSE,
		R2:          m.R2,
		Importances: m.Importances,
		Trees:       len(m.Forest.Trees),
	}
}

// handleListModels lists the published models.
func (s *Service) handleListModels(w http.ResponseWriter, _ *http.Request) {
	summaries := make([]modelSummary, 0)
	for _, key := range s.registry.Keys() {
		if m, ok := s.registry.Get(key); ok {
			summaries = append(summaries, summarize(m))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": summaries})
}

// handleGetModel returns the metadata of one published model.
func (s *Service) handleGetModel(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	m, ok := s.registry.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "no model published for key")
		return
	}
	writeJSON(w, http.StatusOK, summarize(m))
}
