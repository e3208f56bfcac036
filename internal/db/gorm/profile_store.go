package gorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aclguard/backend/internal/db"
	"github.com/aclguard/backend/pkg/models"
)

// UpsertProfile inserts or replaces a user's profile.
func (s *Store) UpsertProfile(ctx context.Context, p *models.UserProfile) error {
	row := profileRow(p)
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.UserID, err)
	}
	return nil
}

// GetProfile returns db.ErrNotFound for unknown users.
func (s *Store) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var row UserProfile
	err := s.DB.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	p := row.toModel()
	return &p, nil
}
