package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"daily-tracker/internal/clock"
	"daily-tracker/internal/events"
	"daily-tracker/internal/metrics"
	"daily-tracker/internal/model"
	"daily-tracker/internal/notify"
)

const (
	JobTick       = "tick"
	JobRollover   = "rollover"
	JobRecurrence = "recurrence"
)

// Dispatcher delivers one claimed reminder. *notify.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, task model.Task, typ model.ReminderType, prefs model.UserPreferences) notify.Result
}

type LoopConfig struct {
	TickInterval    time.Duration
	RolloverAt      string
	RecurrenceAt    string
	Workers         int
	TickTimeout     time.Duration
	DailyTimeout    time.Duration
	GenerateOnStart bool
}

func (c LoopConfig) withDefaults() LoopConfig {
	if c.TickInterval <= 0 {
		c.TickInterval = time.Minute
	}
	if c.RolloverAt == "" {
		c.RolloverAt = "00:00"
	}
	if c.RecurrenceAt == "" {
		c.RecurrenceAt = "01:00"
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.TickTimeout <= 0 {
		c.TickTimeout = 50 * time.Second
	}
	if c.DailyTimeout <= 0 {
		c.DailyTimeout = 5 * time.Minute
	}
	return c
}

// TickStats summarizes one reminder tick.
type TickStats struct {
	Due        int
	Claimed    int
	Duplicates int
	Errors     int
}

// Loop ties the reminder tick, the daily rollover and the daily recurrence
// run to a Trigger. Jobs run on a background context with their own
// timeout, so a shutdown lets the in-flight job finish.
type Loop struct {
	cfg        LoopConfig
	trigger    Trigger
	clock      clock.Clock
	reminders  *ReminderService
	ledger     *Ledger
	dispatcher Dispatcher
	recurrence *RecurrenceService
	rollover   *RolloverService
	bus        events.Bus
	metrics    *metrics.Metrics
	log        zerolog.Logger
}

type LoopDeps struct {
	Trigger    Trigger
	Clock      clock.Clock
	Reminders  *ReminderService
	Ledger     *Ledger
	Dispatcher Dispatcher
	Recurrence *RecurrenceService
	Rollover   *RolloverService
	Bus        events.Bus
	Metrics    *metrics.Metrics
}

func NewLoop(cfg LoopConfig, deps LoopDeps, log zerolog.Logger) *Loop {
	bus := deps.Bus
	if bus == nil {
		bus = events.Nop{}
	}
	return &Loop{
		cfg:        cfg.withDefaults(),
		trigger:    deps.Trigger,
		clock:      deps.Clock,
		reminders:  deps.Reminders,
		ledger:     deps.Ledger,
		dispatcher: deps.Dispatcher,
		recurrence: deps.Recurrence,
		rollover:   deps.Rollover,
		bus:        bus,
		metrics:    deps.Metrics,
		log:        log.With().Str("comp", "scheduler").Logger(),
	}
}

// Start registers the three jobs and starts the trigger. With
// GenerateOnStart the recurrence job also runs once before returning.
func (l *Loop) Start(ctx context.Context) error {
	if err := l.trigger.Every(JobTick, l.cfg.TickInterval, func() {
		l.runJob(JobTick, l.cfg.TickTimeout, func(ctx context.Context) error {
			_, err := l.RunTick(ctx, l.clock.Now())
			return err
		})
	}); err != nil {
		return err
	}
	if err := l.trigger.Daily(JobRollover, l.cfg.RolloverAt, func() {
		l.runJob(JobRollover, l.cfg.DailyTimeout, func(ctx context.Context) error {
			_, err := l.rollover.Rollover(ctx, l.clock.Now())
			return err
		})
	}); err != nil {
		return err
	}
	if err := l.trigger.Daily(JobRecurrence, l.cfg.RecurrenceAt, func() {
		l.runJob(JobRecurrence, l.cfg.DailyTimeout, func(ctx context.Context) error {
			_, err := l.recurrence.Generate(ctx, l.clock.Now())
			return err
		})
	}); err != nil {
		return err
	}

	if l.cfg.GenerateOnStart {
		jobCtx, cancel := context.WithTimeout(ctx, l.cfg.DailyTimeout)
		n, err := l.recurrence.Generate(jobCtx, l.clock.Now())
		cancel()
		if err != nil {
			l.log.Error().Err(err).Msg("initial recurrence run failed")
		} else {
			l.log.Info().Int("created", n).Msg("initial recurrence run done")
		}
	}

	l.trigger.Start()
	l.log.Info().
		Dur("tick", l.cfg.TickInterval).
		Str("rollover_at", l.cfg.RolloverAt).
		Str("recurrence_at", l.cfg.RecurrenceAt).
		Int("workers", l.cfg.Workers).
		Msg("scheduler started")
	return nil
}

// Stop stops accepting ticks and waits for the running job.
func (l *Loop) Stop() {
	l.trigger.Stop()
	l.log.Info().Msg("scheduler stopped")
}

func (l *Loop) runJob(name string, timeout time.Duration, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("job panicked: %v", p)
			}
		}()
		return fn(ctx)
	}()
	took := time.Since(start)
	l.metrics.ObserveJob(name, took, err)
	if err != nil {
		l.log.Error().Err(err).Str("job", name).Dur("took", took).Msg("job failed")
	}
}

// RunTick evaluates now, claims each due reminder and dispatches the claimed
// ones over the worker pool. A failed claim or a panicking dispatch skips
// that reminder only.
func (l *Loop) RunTick(ctx context.Context, now time.Time) (TickStats, error) {
	due, err := l.reminders.Due(ctx, now)
	if err != nil {
		return TickStats{}, fmt.Errorf("evaluate reminders: %w", err)
	}
	stats := TickStats{Due: len(due)}
	if len(due) == 0 {
		return stats, nil
	}

	jobs := make(chan DueReminder)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	workers := l.cfg.Workers
	if workers > len(due) {
		workers = len(due)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				outcome := l.safeHandle(ctx, r)
				mu.Lock()
				switch outcome {
				case claimWon:
					stats.Claimed++
				case claimLost:
					stats.Duplicates++
				case claimFailed:
					stats.Errors++
				}
				mu.Unlock()
			}
		}()
	}
	for _, r := range due {
		jobs <- r
	}
	close(jobs)
	wg.Wait()

	l.log.Debug().
		Time("bucket", clock.Bucket(now)).
		Int("due", stats.Due).
		Int("claimed", stats.Claimed).
		Int("duplicates", stats.Duplicates).
		Int("errors", stats.Errors).
		Msg("tick done")
	return stats, nil
}

type claimOutcome int

const (
	claimWon claimOutcome = iota
	claimLost
	claimFailed
)

// safeHandle keeps a panicking dispatch from taking down the worker pool.
// The claim stays recorded, so the reminder is not retried.
func (l *Loop) safeHandle(ctx context.Context, r DueReminder) (outcome claimOutcome) {
	defer func() {
		if p := recover(); p != nil {
			l.log.Error().Interface("panic", p).Uint("task_id", r.Task.ID).Str("type", string(r.Type)).Msg("reminder dispatch panicked")
			outcome = claimFailed
		}
	}()
	return l.handle(ctx, r)
}

func (l *Loop) handle(ctx context.Context, r DueReminder) claimOutcome {
	ok, err := l.ledger.TryClaim(ctx, r.Task.ID, r.Bucket, r.Type)
	if err != nil {
		l.log.Error().Err(err).Uint("task_id", r.Task.ID).Str("type", string(r.Type)).Msg("reminder claim failed")
		return claimFailed
	}
	if !ok {
		return claimLost
	}

	l.bus.Publish(events.Event{
		Type:   events.TypeReminderDue,
		UserID: r.Task.UserID,
		Data:   events.ReminderDue{TaskID: r.Task.ID, Type: string(r.Type), Bucket: r.Bucket},
	})
	res := l.dispatcher.Dispatch(ctx, r.Task, r.Type, r.Prefs)
	l.bus.Publish(events.Event{
		Type:   events.TypeReminderDispatched,
		UserID: r.Task.UserID,
		Data: events.ReminderDispatched{
			DispatchID: res.DispatchID,
			TaskID:     r.Task.ID,
			Type:       string(r.Type),
			Sent:       res.Sent(),
			Failed:     res.Failed(),
		},
	})
	return claimWon
}
