package repository

import (
	"context"
	"fmt"

	"github.com/grcwatch/notify-engine/internal/datastore/entities"
	"github.com/grcwatch/notify-engine/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a PreferenceRepository.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) GetPreferences(ctx context.Context, userID string) (*entities.UserNotificationPreferences, error) {
	var prefs entities.UserNotificationPreferences
	if err := r.db.WithContext(ctx).First(&prefs, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPreferencesNotFound
		}
		return nil, fmt.Errorf("failed to get preferences for user %s: %w", userID, err)
	}
	return &prefs, nil
}

// SavePreferences upserts the user's preference row.
func (r *preferenceRepository) SavePreferences(ctx context.Context, prefs *entities.UserNotificationPreferences) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, UpdateAll: true}).
		Create(prefs).Error
	if err != nil {
		return fmt.Errorf("failed to save preferences for user %s: %w", prefs.UserID, err)
	}
	return nil
}
