package model

import "time"

type ReminderType string

const (
	ReminderPreStart ReminderType = "pre_start"
	ReminderOnTime   ReminderType = "on_time"
	ReminderOverdue  ReminderType = "overdue"
)

func (r ReminderType) IsValid() bool {
	switch r {
	case ReminderPreStart, ReminderOnTime, ReminderOverdue:
		return true
	default:
		return false
	}
}

// ReminderRecord is one entry of the append-only reminder log. The composite
// unique index is the at-most-once contract for (task, minute, type).
type ReminderRecord struct {
	ID           uint         `gorm:"primaryKey"`
	TaskID       uint         `gorm:"not null;uniqueIndex:idx_reminder_claim"`
	ScheduledFor time.Time    `gorm:"not null;uniqueIndex:idx_reminder_claim"`
	ReminderType ReminderType `gorm:"not null;uniqueIndex:idx_reminder_claim"`
	SentAt       time.Time
}

func (ReminderRecord) TableName() string {
	return "reminders"
}

// Notification is the server-side record behind an in-app push.
type Notification struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint `gorm:"index"`
	Message   string
	Type      string
	IsRead    bool `gorm:"default:false"`
	CreatedAt time.Time
}
