package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar-date format of Task.TaskDate.
	DateLayout = "2006-01-02"
	// ClockLayout is the time-of-day format of Task.ScheduledTime.
	ClockLayout = "15:04"
)

var ErrInvalidStatus = errors.New("model: invalid task status")

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
	StatusMissed    TaskStatus = "missed"
)

func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusMissed:
		return true
	default:
		return false
	}
}

// Task is a dated to-do item. A template (IsRecurring, no parent) spawns
// dated instances that point back to it through ParentTaskID.
type Task struct {
	ID                uint   `gorm:"primaryKey"`
	UserID            uint   `gorm:"index"`
	Title             string `gorm:"not null"`
	Description       string
	ScheduledTime     *string
	DurationMinutes   int        `gorm:"default:30"`
	TaskDate          string     `gorm:"index;not null"`
	Status            TaskStatus `gorm:"index;default:pending"`
	CompletedAt       *time.Time
	IsRecurring       bool `gorm:"default:false"`
	RecurrencePattern RecurrencePattern
	ParentTaskID      *uint `gorm:"index"`
	// IsActive defaults to true on insert; false is only ever written by updates.
	IsActive  bool `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsTemplate reports whether the task is a recurrence definition.
func (t Task) IsTemplate() bool {
	return t.IsRecurring && t.ParentTaskID == nil
}

// ScheduledAt combines TaskDate and ScheduledTime in loc. ok is false when
// the task has no time of day.
func (t Task) ScheduledAt(loc *time.Location) (at time.Time, ok bool, err error) {
	if t.ScheduledTime == nil || strings.TrimSpace(*t.ScheduledTime) == "" {
		return time.Time{}, false, nil
	}
	day, err := ParseDate(t.TaskDate, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	clock, err := time.Parse(ClockLayout, strings.TrimSpace(*t.ScheduledTime))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("model: invalid scheduled_time %q: %w", *t.ScheduledTime, err)
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), true, nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if _, err := ParseDate(t.TaskDate, time.UTC); err != nil {
		return err
	}
	if t.ScheduledTime != nil {
		if _, err := time.Parse(ClockLayout, strings.TrimSpace(*t.ScheduledTime)); err != nil {
			return fmt.Errorf("model: invalid scheduled_time %q", *t.ScheduledTime)
		}
	}
	if t.Status != "" && !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	if t.IsRecurring {
		if t.ParentTaskID != nil {
			return errors.New("model: only templates may be recurring")
		}
		if !t.RecurrencePattern.IsValid() {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, t.RecurrencePattern)
		}
	}
	return nil
}

// DateOf formats t's calendar date in its own location.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("model: invalid task_date %q: %w", s, err)
	}
	return d, nil
}

// ClockOf formats t as a scheduled time of day.
func ClockOf(t time.Time) *string {
	s := t.Format(ClockLayout)
	return &s
}
