package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aclguard/backend/internal/db"
	"github.com/aclguard/backend/pkg/models"
)

// UpsertProfile inserts or replaces a user's profile.
func (s *Store) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	stmt, err := s.getStmt(`
		INSERT INTO user_profiles (
			user_id, height_cm, weight_kg, age, sex, sport, limb_dominance,
			prior_acl_injury, injury_date, knee_pain_score, rehab_status,
			baseline_resting_hr
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			height_cm = excluded.height_cm,
			weight_kg = excluded.weight_kg,
			age = excluded.age,
			sex = excluded.sex,
			sport = excluded.sport,
			limb_dominance = excluded.limb_dominance,
			prior_acl_injury = excluded.prior_acl_injury,
			injury_date = excluded.injury_date,
			knee_pain_score = excluded.knee_pain_score,
			rehab_status = excluded.rehab_status,
			baseline_resting_hr = excluded.baseline_resting_hr
	`)
	if err != nil {
		return err
	}

	var injuryDate sql.NullString
	if p.InjuryDate != nil {
		injuryDate = sql.NullString{String: p.InjuryDate.Format(models.DateLayout), Valid: true}
	}

	_, err = stmt.ExecContext(ctx,
		p.UserID, p.HeightCM, p.WeightKG, p.Age, string(p.Sex), p.Sport,
		string(p.LimbDominance), boolToInt(p.PriorACLInjury), injuryDate,
		p.KneePainScore, string(p.RehabStatus), p.BaselineRestingHR,
	)
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

// GetProfile returns db.ErrNotFound for unknown users.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	stmt, err := s.getStmt(`
		SELECT user_id, height_cm, weight_kg, age, sex, sport, limb_dominance,
			prior_acl_injury, injury_date, knee_pain_score, rehab_status,
			baseline_resting_hr
		FROM user_profiles WHERE user_id = ?
	`)
	if err != nil {
		return nil, err
	}

	var p models.UserProfile
	var sex, dominance, rehab string
	var prior int
	var injuryDate sql.NullString

	err = stmt.QueryRowContext(ctx, userID).Scan(
		&p.UserID, &p.HeightCM, &p.WeightKG, &p.Age, &sex, &p.Sport,
		&dominance, &prior, &injuryDate, &p.KneePainScore, &rehab,
		&p.BaselineRestingHR,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}

	p.Sex = models.Sex(sex)
	p.LimbDominance = models.LimbDominance(dominance)
	p.RehabStatus = models.RehabStatus(rehab)
	p.PriorACLInjury = prior != 0
	if injuryDate.Valid {
		if d, perr := time.Parse(models.DateLayout, injuryDate.String); perr == nil {
			p.InjuryDate = &d
		}
	}
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
