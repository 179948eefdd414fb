package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"daily-tracker/internal/clock"
	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

// DueReminder is one (task, reminder type) pair that must be dispatched in
// the tick identified by Bucket.
type DueReminder struct {
	Task   model.Task
	Type   model.ReminderType
	Prefs  model.UserPreferences
	Bucket time.Time
}

// Classify maps a scheduled start and the current instant to at most one
// reminder type. Both instants are truncated to the minute first, so the
// distance is a whole number of minutes. This differs from flooring the raw
// distance: a late tick at 08:45:30 for a 09:00 start still yields pre_start
// with before == 15. pre_start is checked first: with before == 0 it wins
// over on_time.
func Classify(scheduled, now time.Time, before, interval int) (model.ReminderType, bool) {
	if interval < 1 {
		interval = model.DefaultReminderIntervalMinutes
	}
	minutesUntil := int(clock.Bucket(scheduled).Sub(clock.Bucket(now)) / time.Minute)

	switch {
	case minutesUntil == before:
		return model.ReminderPreStart, true
	case minutesUntil == 0:
		return model.ReminderOnTime, true
	case minutesUntil < 0 && (-minutesUntil)%interval == 0:
		return model.ReminderOverdue, true
	default:
		return "", false
	}
}

// ReminderService selects the reminders due at a given instant.
type ReminderService struct {
	tasks *repository.TaskRepository
	users *repository.UserRepository
	loc   *time.Location
	log   zerolog.Logger
}

func NewReminderService(tasks *repository.TaskRepository, users *repository.UserRepository, loc *time.Location, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		tasks: tasks,
		users: users,
		loc:   loc,
		log:   log.With().Str("comp", "evaluator").Logger(),
	}
}

// Due returns every reminder to send for now. Only pending, timed, active
// non-template tasks dated today (in the service location) are considered.
func (s *ReminderService) Due(ctx context.Context, now time.Time) ([]DueReminder, error) {
	now = now.In(s.loc)
	bucket := clock.Bucket(now)

	tasks, err := s.tasks.ListPendingScheduled(ctx, model.DateOf(now))
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}

	seen := make(map[uint]struct{})
	var userIDs []uint
	for _, t := range tasks {
		if _, ok := seen[t.UserID]; !ok {
			seen[t.UserID] = struct{}{}
			userIDs = append(userIDs, t.UserID)
		}
	}
	prefs, err := s.users.PreferencesFor(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	var due []DueReminder
	for _, t := range tasks {
		if t.IsTemplate() || !t.IsActive || t.Status != model.StatusPending {
			continue
		}
		at, ok, err := t.ScheduledAt(s.loc)
		if err != nil {
			s.log.Warn().Err(err).Uint("task_id", t.ID).Msg("skipping task with malformed schedule")
			continue
		}
		if !ok {
			continue
		}
		p := prefs[t.UserID]
		typ, ok := Classify(at, bucket, p.ReminderBeforeMinutes, p.ReminderIntervalMinutes)
		if !ok {
			continue
		}
		due = append(due, DueReminder{Task: t, Type: typ, Prefs: p, Bucket: bucket})
	}
	return due, nil
}
