package gorm

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/aclguard/backend/pkg/models"
)

// UpsertFeedback inserts or replaces the feedback for the record's day.
func (s *Store) UpsertFeedback(ctx context.Context, rec *models.FeedbackRecord) error {
	row := feedbackRow(rec)
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert feedback %s/%s: %w", rec.UserID, rec.Date, err)
	}
	return nil
}

// GetPositiveFeedback returns the Accurate=true records for a key,
// oldest first. The global key spans all users.
func (s *Store) GetPositiveFeedback(ctx context.Context, key string) ([]models.FeedbackRecord, error) {
	q := s.DB.WithContext(ctx).Where("accurate = ?", true)
	if key != models.GlobalTrainingKey {
		q = q.Where("user_id = ?", key)
	}

	var rows []Feedback
	if err := q.Order("date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query positive feedback: %w", err)
	}

	recs := make([]models.FeedbackRecord, 0, len(rows))
	for i := range rows {
		recs = append(recs, rows[i].toModel())
	}
	return recs, nil
}

// ListFeedback returns a page of a user's feedback history, newest first.
func (s *Store) ListFeedback(ctx context.Context, userID string, limit, offset int) ([]models.FeedbackRecord, error) {
	var rows []Feedback
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list feedback %s: %w", userID, err)
	}

	recs := make([]models.FeedbackRecord, 0, len(rows))
	for i := range rows {
		recs = append(recs, rows[i].toModel())
	}
	return recs, nil
}

// CountPositiveFeedback returns the training corpus size for a key.
func (s *Store) CountPositiveFeedback(ctx context.Context, key string) (int, error) {
	q := s.DB.WithContext(ctx).Model(&Feedback{}).Where("accurate = ?", true)
	if key != models.GlobalTrainingKey {
		q = q.Where("user_id = ?", key)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count positive feedback: %w", err)
	}
	return int(count), nil
}

// GetFeedbackStats summarizes a user's feedback history.
func (s *Store) GetFeedbackStats(ctx context.Context, userID string) (*models.FeedbackStats, error) {
	var agg struct {
		Total      int
		Positive   int
		AvgRisk    float64
		LatestDate string
	}
	err := s.DB.WithContext(ctx).Model(&Feedback{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN accurate THEN 1 ELSE 0 END), 0) AS positive,
			COALESCE(AVG(formula_risk), 0) AS avg_risk,
			COALESCE(MAX(date), '') AS latest_date`).
		Where("user_id = ?", userID).
		Scan(&agg).Error
	if err != nil {
		return nil, fmt.Errorf("feedback stats %s: %w", userID, err)
	}

	stats := &models.FeedbackStats{
		UserID:         userID,
		Total:          agg.Total,
		Positive:       agg.Positive,
		Negative:       agg.Total - agg.Positive,
		AvgFormulaRisk: agg.AvgRisk,
		LatestDate:     agg.LatestDate,
	}
	if stats.Total > 0 {
		stats.AccuracyRate = float64(stats.Positive) / float64(stats.Total) * 100
	}
	return stats, nil
}

// ListFeedbackUsers returns the distinct user ids with positive feedback.
func (s *Store) ListFeedbackUsers(ctx context.Context) ([]string, error) {
	var users []string
	err := s.DB.WithContext(ctx).Model(&Feedback{}).
		Where("accurate = ?", true).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &users).Error
	if err != nil {
		return nil, fmt.Errorf("list feedback users: %w", err)
	}
	return users, nil
}

// DeleteFeedback removes all feedback for a user.
func (s *Store) DeleteFeedback(ctx context.Context, userID string) (int64, error) {
	res := s.DB.WithContext(ctx).Where("user_id = ?", userID).Delete(&Feedback{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete feedback %s: %w", userID, res.Error)
	}
	return res.RowsAffected, nil
}
