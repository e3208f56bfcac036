package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aclguard/backend/pkg/models"
)

const feedbackColumns = `user_id, date, steps, distance_km, active_minutes,
	peak_intensity_minutes, resting_heart_rate, sleep_hours, sleep_efficiency,
	height_cm, weight_kg, age, sex, sport, prior_acl_injury, knee_pain_score,
	formula_risk, accurate, created_at`

// UpsertFeedback inserts or replaces the feedback for the record's day.
func (s *Store) UpsertFeedback(ctx context.Context, rec *models.FeedbackRecord) error {
	stmt, err := s.getStmt(`
		INSERT INTO feedback (` + feedbackColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, date) DO UPDATE SET
			steps = excluded.steps,
			distance_km = excluded.distance_km,
			active_minutes = excluded.active_minutes,
			peak_intensity_minutes = excluded.peak_intensity_minutes,
			resting_heart_rate = excluded.resting_heart_rate,
			sleep_hours = excluded.sleep_hours,
			sleep_efficiency = excluded.sleep_efficiency,
			height_cm = excluded.height_cm,
			weight_kg = excluded.weight_kg,
			age = excluded.age,
			sex = excluded.sex,
			sport = excluded.sport,
			prior_acl_injury = excluded.prior_acl_injury,
			knee_pain_score = excluded.knee_pain_score,
			formula_risk = excluded.formula_risk,
			accurate = excluded.accurate,
			created_at = excluded.created_at
	`)
	if err != nil {
		return err
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = stmt.ExecContext(ctx,
		rec.UserID, rec.Date, rec.Steps, rec.DistanceKM, rec.ActiveMinutes,
		rec.PeakIntensityMinutes, rec.RestingHeartRate, rec.SleepHours,
		rec.SleepEfficiency, rec.HeightCM, rec.WeightKG, rec.Age,
		string(rec.Sex), rec.Sport, boolToInt(rec.PriorACLInjury),
		rec.KneePainScore, rec.FormulaRisk, boolToInt(rec.Accurate),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert feedback %s/%s: %w", rec.UserID, rec.Date, err)
	}
	return nil
}

// GetPositiveFeedback returns the Accurate=true records for a key,
// oldest first. The global key spans all users.
func (s *Store) GetPositiveFeedback(ctx context.Context, key string) ([]models.FeedbackRecord, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE accurate = 1`
	args := []any{}
	if key != models.GlobalTrainingKey {
		query += " AND user_id = ?"
		args = append(args, key)
	}
	query += " ORDER BY date ASC"

	stmt, err := s.getStmt(query)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("query positive feedback: %w", err)
	}
	defer rows.Close()

	var recs []models.FeedbackRecord
	for rows.Next() {
		rec, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ListFeedback returns a page of a user's feedback history, newest first.
func (s *Store) ListFeedback(ctx context.Context, userID string, limit, offset int) ([]models.FeedbackRecord, error) {
	stmt, err := s.getStmt(`SELECT ` + feedbackColumns + `
		FROM feedback WHERE user_id = ?
		ORDER BY date DESC LIMIT ? OFFSET ?`)
	if err != nil {
		return nil, err
	}

	rows, err := stmt.QueryContext(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list feedback %s: %w", userID, err)
	}
	defer rows.Close()

	var recs []models.FeedbackRecord
	for rows.Next() {
		rec, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountPositiveFeedback returns the training corpus size for a key.
func (s *Store) CountPositiveFeedback(ctx context.Context, key string) (int, error) {
	query := "SELECT COUNT(*) FROM feedback WHERE accurate = 1"
	args := []any{}
	if key != models.GlobalTrainingKey {
		query += " AND user_id = ?"
		args = append(args, key)
	}

	stmt, err := s.getStmt(query)
	if err != nil {
		return 0, err
	}
	var count int
	if err := stmt.QueryRowContext(ctx, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count positive feedback: %w", err)
	}
	return count, nil
}

// GetFeedbackStats summarizes a user's feedback history.
func (s *Store) GetFeedbackStats(ctx context.Context, userID string) (*models.FeedbackStats, error) {
	stmt, err := s.getStmt(`
		SELECT COUNT(*),
			COALESCE(SUM(accurate), 0),
			COALESCE(AVG(formula_risk), 0),
			COALESCE(MAX(date), '')
		FROM feedback WHERE user_id = ?
	`)
	if err != nil {
		return nil, err
	}

	stats := &models.FeedbackStats{UserID: userID}
	err = stmt.QueryRowContext(ctx, userID).Scan(
		&stats.Total, &stats.Positive, &stats.AvgFormulaRisk, &stats.LatestDate,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("feedback stats %s: %w", userID, err)
	}

	stats.Negative = stats.Total - stats.Positive
	if stats.Total > 0 {
		stats.AccuracyRate = float64(stats.Positive) / float64(stats.Total) * 100
	}
	return stats, nil
}

// DeleteFeedback removes all feedback for a user.
func (s *Store) DeleteFeedback(ctx context.Context, userID string) (int64, error) {
	stmt, err := s.getStmt("DELETE FROM feedback WHERE user_id = ?")
	if err != nil {
		return 0, err
	}
	res, err := stmt.ExecContext(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete feedback %s: %w", userID, err)
	}
	return res.RowsAffected()
}

// ListFeedbackUsers returns the distinct user ids with positive feedback.
func (s *Store) ListFeedbackUsers(ctx context.Context) ([]string, error) {
	stmt, err := s.getStmt("SELECT DISTINCT user_id FROM feedback WHERE accurate = 1 ORDER BY user_id")
	if err != nil {
		return nil, err
	}
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feedback users: %w", err)
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan feedback user: %w", err)
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func scanFeedback(rows *sql.Rows) (models.FeedbackRecord, error) {
	var rec models.FeedbackRecord
	var sex, createdAt string
	var prior, accurate int

	err := rows.Scan(
		&rec.UserID, &rec.Date, &rec.Steps, &rec.DistanceKM, &rec.ActiveMinutes,
		&rec.PeakIntensityMinutes, &rec.RestingHeartRate, &rec.SleepHours,
		&rec.SleepEfficiency, &rec.HeightCM, &rec.WeightKG, &rec.Age,
		&sex, &rec.Sport, &prior, &rec.KneePainScore,
		&rec.FormulaRisk, &accurate, &createdAt,
	)
	if err != nil {
		return rec, fmt.Errorf("scan feedback row: %w", err)
	}

	rec.Sex = models.Sex(sex)
	rec.PriorACLInjury = prior != 0
	rec.Accurate = accurate != 0
	if t, perr := time.Parse(time.RFC3339, createdAt); perr == nil {
		rec.CreatedAt = t
	}
	return rec, nil
}
