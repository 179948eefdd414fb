package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-tracker/internal/model"
)

// UserRepository handles users and their notification preferences.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetOrCreate finds a user by username, creating it when absent.
func (r *UserRepository) GetOrCreate(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	db := r.db.WithContext(ctx)
	err := db.Where("username = ?", username).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = model.User{Username: username}
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &user, nil
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// Preferences returns the user's settings, or the defaults when none exist.
func (r *UserRepository) Preferences(ctx context.Context, userID uint) (model.UserPreferences, error) {
	var prefs model.UserPreferences
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&prefs).Error
	switch {
	case err == nil:
		return prefs.Normalized(), nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return model.DefaultPreferences(userID), nil
	default:
		return model.UserPreferences{}, fmt.Errorf("get preferences: %w", err)
	}
}

// PreferencesFor loads settings for several users in one query. Users
// without a row get the defaults.
func (r *UserRepository) PreferencesFor(ctx context.Context, userIDs []uint) (map[uint]model.UserPreferences, error) {
	out := make(map[uint]model.UserPreferences, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []model.UserPreferences
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list preferences: %w", err)
	}
	for _, p := range rows {
		out[p.UserID] = p.Normalized()
	}
	for _, id := range userIDs {
		if _, ok := out[id]; !ok {
			out[id] = model.DefaultPreferences(id)
		}
	}
	return out, nil
}

// SavePreferences inserts or replaces the user's settings row.
func (r *UserRepository) SavePreferences(ctx context.Context, prefs *model.UserPreferences) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"email", "phone_number", "telegram_chat_id",
			"enable_browser", "enable_email", "enable_sms", "enable_telegram",
			"reminder_before_minutes", "reminder_interval_minutes", "updated_at",
		}),
	}).Create(prefs).Error
	if err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}
