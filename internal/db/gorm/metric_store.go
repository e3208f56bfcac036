package gorm

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/aclguard/backend/pkg/models"
)

// UpsertMetric inserts or replaces the metric for the record's day.
func (s *Store) UpsertMetric(ctx context.Context, m *models.DailyMetric) error {
	row := metricRow(m)
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert metric %s/%s: %w", m.UserID, m.Date, err)
	}
	return nil
}

// GetMetricWindow returns up to days of metrics ending at endDate,
// ordered by date ascending.
func (s *Store) GetMetricWindow(ctx context.Context, userID, endDate string, days int) ([]models.DailyMetric, error) {
	end, err := time.Parse(models.DateLayout, endDate)
	if err != nil {
		return nil, fmt.Errorf("invalid window end date %q: %w", endDate, err)
	}
	start := end.AddDate(0, 0, -(days - 1)).Format(models.DateLayout)

	var rows []DailyMetric
	err = s.DB.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, endDate).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query metric window: %w", err)
	}

	window := make([]models.DailyMetric, 0, len(rows))
	for i := range rows {
		window = append(window, rows[i].toModel())
	}
	return window, nil
}

// CountMetrics returns the number of recorded days for a user.
func (s *Store) CountMetrics(ctx context.Context, userID string) (int, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&DailyMetric{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count metrics: %w", err)
	}
	return int(count), nil
}
