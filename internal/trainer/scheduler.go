package trainer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aclguard/backend/internal/config"
	"github.com/aclguard/backend/internal/db"
	"github.com/aclguard/backend/pkg/models"
)

// Scheduler triggers a retraining sweep once a day at the configured
// local time: the global model first, then every user with positive
// feedback. Runs that skip (corpus too small) are normal and quiet.
type Scheduler struct {
	trainer  *Trainer
	feedback db.FeedbackStore
	cfg      config.Training
	logger   zerolog.Logger
	stopCh   chan struct{}
}

// NewScheduler creates a retraining scheduler.
func NewScheduler(trainer *Trainer, feedback db.FeedbackStore, cfg config.Training, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		trainer:  trainer,
		feedback: feedback,
		cfg:      cfg,
		logger:   logger.With().Str("component", "training-scheduler").Logger(),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduler loop. Call from a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info().
		Int("hour", s.cfg.ScheduleHour).
		Int("minute", s.cfg.ScheduleMinute).
		Msg("Training scheduler started")

	for {
		next := s.nextRun(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info().Msg("Training scheduler stopping (context done)")
			return
		case <-s.stopCh:
			timer.Stop()
			s.logger.Info().Msg("Training scheduler stopping (stop signal)")
			return
		case <-timer.C:
			s.RunSweep(ctx)
		}
	}
}

// Stop signals the scheduler loop to exit.
func (s *Scheduler) Stop() {
	close(s.stopCh)
}

// RunSweep retrains the global model and every per-user model that has
// feedback. Individual failures are logged and do not stop the sweep.
func (s *Scheduler) RunSweep(ctx context.Context) {
	start := time.Now()

	keys := []string{models.GlobalTrainingKey}
	users, err := s.feedback.ListFeedbackUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("listing feedback users failed, sweeping global only")
	} else {
		keys = append(keys, users...)
	}

	trained, skipped, failed := 0, 0, 0
	for _, key := range keys {
		res, err := s.trainer.Train(ctx, key)
		switch {
		case err != nil:
			failed++
			s.logger.Error().Err(err).Str("key", key).Msg("scheduled training failed")
		case res.Status == StatusSkipped:
			skipped++
		default:
			trained++
		}
	}

	s.logger.Info().
		Int("trained", trained).
		Int("skipped", skipped).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Retraining sweep complete")
}

// nextRun returns the next occurrence of the configured local time
// strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(),
		s.cfg.ScheduleHour, s.cfg.ScheduleMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
