// Package worker provides the aclguard HTTP service: metric and profile
// ingestion, risk scoring, feedback collection and training control.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm/logger"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/internal/db"
	gormstore "github.com/aclguard/backend/internal/db/gorm"
	"github.com/aclguard/backend/internal/db/sqlite"
	"github.com/aclguard/backend/internal/features"
	"github.com/aclguard/backend/internal/model"
	"github.com/aclguard/backend/internal/risk"
	"github.com/aclguard/backend/internal/trainer"
)

// DefaultHTTPTimeout is the default timeout for HTTP requests.
const DefaultHTTPTimeout = 30 * time.Second

// Service is the main HTTP service orchestrator.
type Service struct {
	version string
	config  *config.Config
	logger  zerolog.Logger

	store       db.Store
	registry    *model.Registry
	extractor   *features.Extractor
	scorer      *risk.Scorer
	recommender *risk.Recommender
	trainer     *trainer.Trainer
	scheduler   *trainer.Scheduler

	router    *chi.Mux
	server    *http.Server
	startTime time.Time
}

// NewService wires the full service from configuration.
func NewService(cfg *config.Config, version string, log zerolog.Logger) (*Service, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	modelStore, err := model.NewStore(cfg.Models.Dir)
	if err != nil {
		store.Close()
		return nil, err
	}
	registry, err := model.NewRegistry(modelStore, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	extractor := features.NewExtractor(cfg.Features)
	tr := trainer.New(store, extractor, registry, cfg.Training, cfg.Risk.Weights, log)

	s := &Service{
		version:     version,
		config:      cfg,
		logger:      log.With().Str("component", "worker").Logger(),
		store:       store,
		registry:    registry,
		extractor:   extractor,
		scorer:      risk.NewScorer(cfg.Risk, registry, log),
		recommender: risk.NewRecommender(cfg.Recommendations),
		trainer:     tr,
		scheduler:   trainer.NewScheduler(tr, store, cfg.Training, log),
		router:      chi.NewRouter(),
		startTime:   time.Now(),
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// openStore selects the backing store from configuration.
func openStore(cfg *config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case "postgres":
		return gormstore.NewStore(gormstore.Config{
			DSN:      cfg.Database.DSN,
			MaxConns: cfg.Database.MaxConns,
			LogLevel: logger.Silent,
		})
	default:
		return sqlite.NewStore(sqlite.StoreConfig{
			Path:     cfg.Database.Path,
			MaxConns: cfg.Database.MaxConns,
		})
	}
}

// setupMiddleware configures HTTP middleware.
func (s *Service) setupMiddleware() {
	s.router.Use(middleware.RealIP)
	s.router.Use(RequestID)
	s.router.Use(SecurityHeaders)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(DefaultHTTPTimeout))
	s.router.Use(s.limitBody)
}

// setupRoutes configures all HTTP endpoints.
func (s *Service) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/version", s.handleVersion)

	s.router.Route("/api/users/{userID}", func(r chi.Router) {
		r.Post("/profile", s.handleUpsertProfile)
		r.Get("/profile", s.handleGetProfile)
		r.Post("/metrics", s.handleUpsertMetrics)
		r.Get("/risk", s.handleRisk)
	})

	s.router.Post("/api/predict", s.handlePredict)

	s.router.Post("/api/feedback", s.handleCreateFeedback)
	s.router.Get("/api/feedback/{userID}", s.handleListFeedback)
	s.router.Get("/api/feedback/{userID}/stats", s.handleFeedbackStats)
	s.router.Delete("/api/feedback/{userID}", s.handleDeleteFeedback)

	s.router.Post("/api/train/{key}", s.handleTrain)
	s.router.Get("/api/train/{key}", s.handleLastTrainResult)
	s.router.Get("/api/models", s.handleListModels)
	s.router.Get("/api/models/{key}", s.handleGetModel)
}

// Handler exposes the router, mainly for tests.
func (s *Service) Handler() http.Handler {
	return s.router
}

// TrainOnce runs a single training pass outside the HTTP surface, for
// the CLI train command.
func (s *Service) TrainOnce(ctx context.Context, key string, bootstrap bool) (*trainer.Result, error) {
	if bootstrap {
		return s.trainer.Bootstrap(ctx, key)
	}
	return s.trainer.Train(ctx, key)
}

// Start runs the HTTP server, the retraining scheduler and, when
// enabled, the model-directory watcher. Blocks until the context ends
// or the server fails.
func (s *Service) Start(ctx context.Context) error {
	go s.scheduler.Start(ctx)

	if s.config.Models.Watch {
		go func() {
			if err := s.registry.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("model watcher exited")
			}
		}()
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Int("port", s.config.Server.Port).Str("version", s.version).Msg("HTTP server listening")
		if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown()
	case err := <-errCh:
		return err
	}
}

// Shutdown drains the HTTP server and closes the store.
func (s *Service) Shutdown() error {
	s.logger.Info().Msg("shutting down")
	s.scheduler.Stop()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("HTTP shutdown incomplete")
		}
	}
	return s.store.Close()
}
