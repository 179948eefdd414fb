package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"daily-tracker/internal/events"
	"daily-tracker/internal/metrics"
	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

// RolloverResult reports one day-boundary run.
type RolloverResult struct {
	Missed      int64
	SummaryDate string
	// MissedDates lists the older dates whose tasks were marked missed.
	MissedDates []string
	Summaries   []model.DailySummary
}

// RolloverService finalizes past days: stale pending tasks become missed and
// per-user summaries are written.
type RolloverService struct {
	tasks     *repository.TaskRepository
	summaries *repository.SummaryRepository
	loc       *time.Location
	bus       events.Bus
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

func NewRolloverService(tasks *repository.TaskRepository, summaries *repository.SummaryRepository, loc *time.Location, bus events.Bus, m *metrics.Metrics, log zerolog.Logger) *RolloverService {
	if bus == nil {
		bus = events.Nop{}
	}
	return &RolloverService{
		tasks:     tasks,
		summaries: summaries,
		loc:       loc,
		bus:       bus,
		metrics:   m,
		log:       log.With().Str("comp", "rollover").Logger(),
	}
}

// Rollover marks every pending task dated before today's date as missed and
// then re-summarizes the previous day and every date that had tasks flipped.
func (s *RolloverService) Rollover(ctx context.Context, today time.Time) (RolloverResult, error) {
	today = today.In(s.loc)
	todayStr := model.DateOf(today)

	missed, dates, err := s.tasks.MarkMissedBefore(ctx, todayStr)
	if err != nil {
		return RolloverResult{}, err
	}
	s.metrics.Missed(missed)
	s.bus.Publish(events.Event{
		Type: events.TypeTasksMissed,
		Data: events.TasksMissed{Before: todayStr, Count: missed},
	})
	s.log.Info().Str("before", todayStr).Int64("missed", missed).Strs("dates", dates).Msg("stale tasks marked missed")

	y, m, d := today.Date()
	yesterday := model.DateOf(time.Date(y, m, d-1, 0, 0, 0, 0, s.loc))
	res := RolloverResult{Missed: missed, SummaryDate: yesterday}

	for _, date := range dates {
		if date == yesterday {
			continue
		}
		if _, err := s.Summarize(ctx, date); err != nil {
			return res, err
		}
		res.MissedDates = append(res.MissedDates, date)
	}

	sums, err := s.Summarize(ctx, yesterday)
	res.Summaries = sums
	if err != nil {
		return res, err
	}
	return res, nil
}

// Summarize computes and upserts one summary per user with tasks on date.
// Rerunning it overwrites the previous values.
func (s *RolloverService) Summarize(ctx context.Context, date string) ([]model.DailySummary, error) {
	counts, err := s.tasks.CountByUserStatus(ctx, date)
	if err != nil {
		return nil, err
	}

	userIDs := make([]uint, 0, len(counts))
	for id := range counts {
		userIDs = append(userIDs, id)
	}
	sort.Slice(userIDs, func(i, j int) bool { return userIDs[i] < userIDs[j] })

	out := make([]model.DailySummary, 0, len(userIDs))
	for _, id := range userIDs {
		sum := model.NewDailySummary(id, date, counts[id])
		if err := s.summaries.Upsert(ctx, &sum); err != nil {
			return out, err
		}
		out = append(out, sum)
		s.bus.Publish(events.Event{
			Type:   events.TypeSummaryComputed,
			UserID: id,
			Data: events.SummaryComputed{
				Date:           date,
				Total:          sum.TotalTasks,
				Completed:      sum.CompletedTasks,
				Missed:         sum.MissedTasks,
				CompletionRate: sum.CompletionRate,
			},
		})
	}
	s.log.Info().Str("date", date).Int("users", len(out)).Msg("daily summaries computed")
	return out, nil
}
