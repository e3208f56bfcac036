// Package trainer runs the model training pipeline: corpus assembly
// from positive feedback, forest fitting, evaluation and atomic
// publication, plus the daily retraining scheduler.
package trainer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/internal/db"
	"github.com/aclguard/backend/internal/features"
	"github.com/aclguard/backend/internal/ml"
	"github.com/aclguard/backend/internal/model"
	"github.com/aclguard/backend/pkg/models"
)

// Status is the outcome of a training request.
type Status string

const (
	// StatusTrained means a new model was fitted and published.
	StatusTrained Status = "trained"
	// StatusSkipped means the feedback corpus was below the minimum and
	// no model was written.
	StatusSkipped Status = "skipped"
	// StatusFailed means the run errored; any published model is left
	// untouched.
	StatusFailed Status = "failed"
)

// Result reports one training run.
type Result struct {
	Key          string             `json:"key"`
	Status       Status             `json:"status"`
	Provenance   model.Provenance   `json:"provenance,omitempty"`
	ModelVersion string             `json:"model_version,omitempty"`
	SampleCount  int                `json:"sample_count"`
	TestCount    int                `json:"test_count,omitempty"`
	MinRequired  int                `json:"min_required,omitempty"`
	MSE          float64            `json:"mse,omitempty"`
	R2           float64            `json:"r2,omitempty"`
	Importances  map[string]float64 `json:"feature_importances,omitempty"`
	Error        string             `json:"error,omitempty"`
	FinishedAt   time.Time          `json:"finished_at"`
	Duration     time.Duration      `json:"-"`
}

// Trainer fits and publishes models. Concurrent requests for the same
// key collapse into one run via singleflight, so at most one training
// run per key is in flight at a time.
type Trainer struct {
	feedback  db.FeedbackStore
	extractor *features.Extractor
	registry  *model.Registry
	cfg       config.Training
	weights   models.RiskWeights
	logger    zerolog.Logger
	group     singleflight.Group

	mu   sync.Mutex
	last map[string]*Result
}

// New creates a trainer.
func New(
	feedback db.FeedbackStore,
	extractor *features.Extractor,
	registry *model.Registry,
	cfg config.Training,
	weights models.RiskWeights,
	logger zerolog.Logger,
) *Trainer {
	return &Trainer{
		feedback:  feedback,
		extractor: extractor,
		registry:  registry,
		cfg:       cfg,
		weights:   weights,
		logger:    logger.With().Str("component", "trainer").Logger(),
		last:      make(map[string]*Result),
	}
}

// LastResult returns the most recent run result for a key, or nil when
// no run has happened since startup.
func (t *Trainer) LastResult(key string) *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last[key]
}

func (t *Trainer) record(res *Result) *Result {
	t.mu.Lock()
	t.last[res.Key] = res
	t.mu.Unlock()
	return res
}

// Train fits a model for a key from its positive-feedback corpus. A
// corpus below the configured minimum yields a skipped result and
// leaves any published model untouched.
func (t *Trainer) Train(ctx context.Context, key string) (*Result, error) {
	v, err, _ := t.group.Do("train:"+key, func() (any, error) {
		return t.train(ctx, key)
	})
	if err != nil {
		t.record(failedResult(key, err))
		return nil, err
	}
	return t.record(v.(*Result)), nil
}

// Bootstrap fits a synthetic-prior model for a key, giving users a
// usable model before any feedback exists.
func (t *Trainer) Bootstrap(ctx context.Context, key string) (*Result, error) {
	v, err, _ := t.group.Do("bootstrap:"+key, func() (any, error) {
		x, y := ml.SyntheticCorpus(t.cfg.BootstrapSamples, t.weights, t.cfg.Seed)
		return t.fit(ctx, key, model.ProvenanceSynthetic, x, y)
	})
	if err != nil {
		t.record(failedResult(key, err))
		return nil, err
	}
	return t.record(v.(*Result)), nil
}

func failedResult(key string, err error) *Result {
	return &Result{
		Key:        key,
		Status:     StatusFailed,
		Error:      err.Error(),
		FinishedAt: time.Now().UTC(),
	}
}

func (t *Trainer) train(ctx context.Context, key string) (*Result, error) {
	corpus, err := t.feedback.GetPositiveFeedback(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("trainer: loading corpus for %q: %w", key, err)
	}

	if len(corpus) < t.cfg.MinFeedbackCount {
		t.logger.Info().
			Str("key", key).
			Int("samples", len(corpus)).
			Int("min_required", t.cfg.MinFeedbackCount).
			Msg("training skipped, corpus too small")
		return &Result{
			Key:         key,
			Status:      StatusSkipped,
			SampleCount: len(corpus),
			MinRequired: t.cfg.MinFeedbackCount,
			FinishedAt:  time.Now().UTC(),
		}, nil
	}

	// Re-derive feature vectors from the stored snapshots so the design
	// matrix matches what the extractor computes at serving time.
	x := make([][]float64, 0, len(corpus))
	y := make([]float64, 0, len(corpus))
	for i := range corpus {
		fv, ferr := t.extractor.FromFeedback(&corpus[i])
		if ferr != nil {
			t.logger.Warn().Err(ferr).
				Str("user_id", corpus[i].UserID).
				Str("date", corpus[i].Date).
				Msg("skipping unextractable feedback record")
			continue
		}
		x = append(x, fv.Values())
		y = append(y, corpus[i].FormulaRisk)
	}
	if len(x) < t.cfg.MinFeedbackCount {
		return &Result{
			Key:         key,
			Status:      StatusSkipped,
			SampleCount: len(x),
			MinRequired: t.cfg.MinFeedbackCount,
			FinishedAt:  time.Now().UTC(),
		}, nil
	}

	return t.fit(ctx, key, model.ProvenanceFeedback, x, y)
}

// fit runs split, scale, forest fit, hold-out evaluation and atomic
// publication for an assembled corpus.
func (t *Trainer) fit(ctx context.Context, key string, prov model.Provenance, x [][]float64, y []float64) (*Result, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	trainIdx, testIdx := ml.SplitIndices(len(x), t.cfg.TestFraction, t.cfg.Seed)
	xTrain, yTrain := ml.Take(x, y, trainIdx)
	xTest, yTest := ml.Take(x, y, testIdx)

	scaler, err := ml.FitScaler(xTrain)
	if err != nil {
		return nil, fmt.Errorf("trainer: fitting scaler for %q: %w", key, err)
	}
	xTrainScaled, err := scaler.TransformMatrix(xTrain)
	if err != nil {
		return nil, err
	}

	forest, err := ml.FitForest(ctx, xTrainScaled, yTrain, ml.ForestParams{
		NumTrees: t.cfg.NumTrees,
		Seed:     t.cfg.Seed,
		Tree: ml.TreeParams{
			MaxDepth:        t.cfg.MaxDepth,
			MinSamplesSplit: t.cfg.MinSamplesSplit,
			MinSamplesLeaf:  t.cfg.MinSamplesLeaf,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("trainer: fitting forest for %q: %w", key, err)
	}

	xTestScaled, err := scaler.TransformMatrix(xTest)
	if err != nil {
		return nil, err
	}
	preds := make([]float64, len(xTestScaled))
	for i, row := range xTestScaled {
		p, perr := forest.Predict(row)
		if perr != nil {
			return nil, fmt.Errorf("trainer: evaluating %q: %w", key, perr)
		}
		preds[i] = p
	}
	mse, err := ml.MSE(preds, yTest)
	if err != nil {
		return nil, err
	}
	r2, err := ml.R2(preds, yTest)
	if err != nil {
		return nil, err
	}

	importances := model.ImportanceMap(forest.FeatureImportances())
	bundle := &model.TrainedModel{
		ID:           uuid.NewString(),
		Key:          key,
		Provenance:   prov,
		CreatedAt:    time.Now().UTC(),
		SampleCount:  len(x),
		TestCount:    len(xTest),
		MSE:          mse,
		R2:           r2,
		FeatureNames: models.FeatureNames,
		Importances:  importances,
		Scaler:       scaler,
		Forest:       forest,
	}
	if err := t.registry.Publish(bundle); err != nil {
		return nil, fmt.Errorf("trainer: publishing model for %q: %w", key, err)
	}

	duration := time.Since(start)
	t.logger.Info().
		Str("key", key).
		Str("model_version", bundle.ID).
		Str("provenance", string(prov)).
		Int("samples", len(x)).
		Float64("mse", mse).
		Float64("r2", r2).
		Dur("duration", duration).
		Msg("training run complete")

	return &Result{
		Key:          key,
		Status:       StatusTrained,
		Provenance:   prov,
		ModelVersion: bundle.ID,
		SampleCount:  len(x),
		TestCount:    len(xTest),
		MSE:          mse,
		R2:           r2,
		Importances:  importances,
		FinishedAt:   time.Now().UTC(),
		Duration:     duration,
	}, nil
}
