package model

import "time"

const (
	DefaultReminderBeforeMinutes   = 15
	DefaultReminderIntervalMinutes = 10
)

// User is the owner of tasks. Accounts are managed by the host application.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserPreferences holds per-user channel toggles and reminder cadence.
// Phone numbers are E.164 ("+15551234567").
type UserPreferences struct {
	ID                      uint `gorm:"primaryKey"`
	UserID                  uint `gorm:"uniqueIndex"`
	Email                   string
	PhoneNumber             string
	TelegramChatID          int64
	EnableBrowser           bool
	EnableEmail             bool
	EnableSMS               bool
	EnableTelegram          bool
	ReminderBeforeMinutes   int
	ReminderIntervalMinutes int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// DefaultPreferences applies when a user has never saved settings.
func DefaultPreferences(userID uint) UserPreferences {
	return UserPreferences{
		UserID:                  userID,
		EnableBrowser:           true,
		ReminderBeforeMinutes:   DefaultReminderBeforeMinutes,
		ReminderIntervalMinutes: DefaultReminderIntervalMinutes,
	}
}

// Normalized replaces out-of-range cadence values with defaults. A zero
// before-offset is kept: the pre-start reminder then fires at start time.
func (p UserPreferences) Normalized() UserPreferences {
	if p.ReminderBeforeMinutes < 0 {
		p.ReminderBeforeMinutes = DefaultReminderBeforeMinutes
	}
	if p.ReminderIntervalMinutes < 1 {
		p.ReminderIntervalMinutes = DefaultReminderIntervalMinutes
	}
	return p
}
