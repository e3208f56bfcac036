// Package db defines the storage interfaces for aclguard stores.
package db

import (
	"context"
	"errors"

	"github.com/aclguard/backend/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("db: not found")

// MetricStore persists daily wearable metrics, keyed by (user_id, date).
type MetricStore interface {
	// UpsertMetric inserts or replaces the metric for the record's day.
	UpsertMetric(ctx context.Context, m *models.DailyMetric) error
	// GetMetricWindow returns up to days of metrics ending at endDate
	// (inclusive), ordered by date ascending. Days with no record are
	// simply absent.
	GetMetricWindow(ctx context.Context, userID, endDate string, days int) ([]models.DailyMetric, error)
	// CountMetrics returns the number of recorded days for a user.
	CountMetrics(ctx context.Context, userID string) (int, error)
}

// ProfileStore persists the static per-user context.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, p *models.UserProfile) error
	// GetProfile returns ErrNotFound for unknown users.
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// FeedbackStore persists prediction feedback, keyed by (user_id, date).
type FeedbackStore interface {
	// UpsertFeedback inserts or replaces the feedback for the record's
	// day, so a changed judgement overwrites the earlier one.
	UpsertFeedback(ctx context.Context, rec *models.FeedbackRecord) error
	// GetPositiveFeedback returns the Accurate=true records forming the
	// training corpus for a key. The global key spans all users.
	GetPositiveFeedback(ctx context.Context, key string) ([]models.FeedbackRecord, error)
	// CountPositiveFeedback returns the training corpus size for a key.
	CountPositiveFeedback(ctx context.Context, key string) (int, error)
	// ListFeedback returns a page of a user's feedback history, newest
	// first.
	ListFeedback(ctx context.Context, userID string, limit, offset int) ([]models.FeedbackRecord, error)
	// GetFeedbackStats summarizes a user's feedback history.
	GetFeedbackStats(ctx context.Context, userID string) (*models.FeedbackStats, error)
	// DeleteFeedback removes all feedback for a user, returning the
	// number of rows removed.
	DeleteFeedback(ctx context.Context, userID string) (int64, error)
	// ListFeedbackUsers returns the distinct user ids with at least one
	// positive feedback record, for scheduled retraining.
	ListFeedbackUsers(ctx context.Context) ([]string, error)
}

// Store combines all aclguard storage concerns behind one handle.
type Store interface {
	MetricStore
	ProfileStore
	FeedbackStore

	Ping(ctx context.Context) error
	Close() error
}
