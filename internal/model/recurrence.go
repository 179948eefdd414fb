package model

import (
	"errors"
	"time"
)

var ErrInvalidPattern = errors.New("model: invalid recurrence pattern")

type RecurrencePattern string

const (
	PatternDaily    RecurrencePattern = "daily"
	PatternWeekdays RecurrencePattern = "weekdays"
	PatternWeekends RecurrencePattern = "weekends"
	// PatternWeekly repeats on the weekday of the template's own date.
	PatternWeekly RecurrencePattern = "weekly"
)

func (p RecurrencePattern) IsValid() bool {
	switch p {
	case PatternDaily, PatternWeekdays, PatternWeekends, PatternWeekly:
		return true
	default:
		return false
	}
}

// Includes reports whether a template with this pattern has an instance on
// a day falling on weekday. anchor is the template's own weekday.
func (p RecurrencePattern) Includes(weekday, anchor time.Weekday) bool {
	switch p {
	case PatternDaily:
		return true
	case PatternWeekdays:
		return weekday >= time.Monday && weekday <= time.Friday
	case PatternWeekends:
		return weekday == time.Saturday || weekday == time.Sunday
	case PatternWeekly:
		return weekday == anchor
	default:
		return false
	}
}
