package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/aclguard/backend/pkg/models"
)

// UpsertMetric inserts or replaces the metric for the record's day.
func (s *Store) UpsertMetric(ctx context.Context, m *models.DailyMetric) error {
	stmt, err := s.getStmt(`
		INSERT INTO daily_metrics (
			user_id, date, steps, distance_km, active_minutes,
			peak_intensity_minutes, resting_heart_rate, sleep_hours,
			sleep_efficiency, calories
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			steps = excluded.steps,
			distance_km = excluded.distance_km,
			active_minutes = excluded.active_minutes,
			peak_intensity_minutes = excluded.peak_intensity_minutes,
			resting_heart_rate = excluded.resting_heart_rate,
			sleep_hours = excluded.sleep_hours,
			sleep_efficiency = excluded.sleep_efficiency,
			calories = excluded.calories
	`)
	if err != nil {
		return err
	}

	_, err = stmt.ExecContext(ctx,
		m.UserID, m.Date, m.Steps, m.DistanceKM, m.ActiveMinutes,
		m.PeakIntensityMinutes, m.RestingHeartRate, m.SleepHours,
		m.SleepEfficiency, m.Calories,
	)
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

	stmt, err := s.getStmt(`
		SELECT user_id, date, steps, distance_km, active_minutes,
			peak_intensity_minutes, resting_heart_rate, sleep_hours,
			sleep_efficiency, calories
		FROM daily_metrics
		WHERE user_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, userID, start, endDate)
	if err != nil {
		return nil, fmt.Errorf("query metric window: %w", err)
	}
	defer rows.Close()

	var window []models.DailyMetric
	for rows.Next() {
		var m models.DailyMetric
		if err := rows.Scan(
			&m.UserID, &m.Date, &m.Steps, &m.DistanceKM, &m.ActiveMinutes,
			&m.PeakIntensityMinutes, &m.RestingHeartRate, &m.SleepHours,
			&m.SleepEfficiency, &m.Calories,
		); err != nil {
			return nil, fmt.Errorf("scan metric row: %w", err)
		}
		window = append(window, m)
	}
	return window, rows.Err()
}

// CountMetrics returns the number of recorded days for a user.
func (s *Store) CountMetrics(ctx context.Context, userID string) (int, error) {
	stmt, err := s.getStmt("SELECT COUNT(*) FROM daily_metrics WHERE user_id = ?")
	if err != nil {
		return 0, err
	}
	var count int
	if err := stmt.QueryRowContext(ctx, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count metrics: %w", err)
	}
	return count, nil
}
