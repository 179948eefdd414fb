package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"daily-tracker/internal/events"
	"daily-tracker/internal/metrics"
	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

const DefaultRecurrenceDays = 7

// RecurrenceService materializes dated instances from recurring templates.
type RecurrenceService struct {
	tasks   *repository.TaskRepository
	days    int
	loc     *time.Location
	bus     events.Bus
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func NewRecurrenceService(tasks *repository.TaskRepository, days int, loc *time.Location, bus events.Bus, m *metrics.Metrics, log zerolog.Logger) *RecurrenceService {
	if days <= 0 {
		days = DefaultRecurrenceDays
	}
	if bus == nil {
		bus = events.Nop{}
	}
	return &RecurrenceService{
		tasks:   tasks,
		days:    days,
		loc:     loc,
		bus:     bus,
		metrics: m,
		log:     log.With().Str("comp", "recurrence").Logger(),
	}
}

// Generate creates the missing instances for the window starting on asOf's
// date. Running it again for the same window creates nothing.
func (s *RecurrenceService) Generate(ctx context.Context, asOf time.Time) (int, error) {
	templates, err := s.tasks.ListActiveTemplates(ctx)
	if err != nil {
		return 0, err
	}

	asOf = asOf.In(s.loc)
	y, m, d := asOf.Date()
	created := 0
	for _, tmpl := range templates {
		if !tmpl.RecurrencePattern.IsValid() {
			s.log.Warn().Uint("template_id", tmpl.ID).Str("pattern", string(tmpl.RecurrencePattern)).Msg("skipping template with unknown pattern")
			continue
		}
		anchor := s.anchorWeekday(tmpl)
		for i := 0; i < s.days; i++ {
			day := time.Date(y, m, d+i, 0, 0, 0, 0, s.loc)
			if !tmpl.RecurrencePattern.Includes(day.Weekday(), anchor) {
				continue
			}
			ok, err := s.tasks.CreateInstanceIfAbsent(ctx, instanceOf(tmpl, model.DateOf(day)))
			if err != nil {
				s.metrics.InstancesGenerated(created)
				return created, fmt.Errorf("template %d: %w", tmpl.ID, err)
			}
			if ok {
				created++
				s.log.Debug().Uint("template_id", tmpl.ID).Str("date", model.DateOf(day)).Msg("instance created")
			}
		}
	}

	s.metrics.InstancesGenerated(created)
	s.bus.Publish(events.Event{
		Type: events.TypeRecurrenceGenerated,
		Data: events.RecurrenceGenerated{AsOf: model.DateOf(asOf), Created: created},
	})
	s.log.Info().Int("templates", len(templates)).Int("created", created).Msg("recurrence generated")
	return created, nil
}

// anchorWeekday is the weekday a weekly template repeats on: that of its own
// date, or of its creation when the date is unreadable.
func (s *RecurrenceService) anchorWeekday(tmpl model.Task) time.Weekday {
	if day, err := model.ParseDate(tmpl.TaskDate, s.loc); err == nil {
		return day.Weekday()
	}
	return tmpl.CreatedAt.In(s.loc).Weekday()
}

func instanceOf(tmpl model.Task, date string) *model.Task {
	parentID := tmpl.ID
	return &model.Task{
		UserID:          tmpl.UserID,
		Title:           tmpl.Title,
		Description:     tmpl.Description,
		ScheduledTime:   tmpl.ScheduledTime,
		DurationMinutes: tmpl.DurationMinutes,
		TaskDate:        date,
		Status:          model.StatusPending,
		IsRecurring:     false,
		ParentTaskID:    &parentID,
		IsActive:        true,
	}
}
