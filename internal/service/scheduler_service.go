package service

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"daily-tracker/internal/config"
)

// Trigger fires jobs on fixed cadences. The loop depends on this interface so
// tests can fire jobs by hand instead of waiting on wall time.
type Trigger interface {
	Every(name string, interval time.Duration, job func()) error
	Daily(name, at string, job func()) error
	Start()
	// Stop prevents new runs and waits for running jobs to return.
	Stop()
}

// SchedulerService wraps cron-based jobs.
type SchedulerService struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func NewSchedulerService(loc *time.Location, log zerolog.Logger) *SchedulerService {
	log = log.With().Str("comp", "cron").Logger()
	cl := cronLogger{log: log}
	return &SchedulerService{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log: log,
	}
}

// Daily registers a job at the given HH:MM time.
func (s *SchedulerService) Daily(name, at string, job func()) error {
	spec, err := buildDailySpec(at)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Debug().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

// Every registers a periodic job. Whole-minute intervals below an hour are
// aligned to the wall clock, so a one-minute job fires at second zero.
func (s *SchedulerService) Every(name string, interval time.Duration, job func()) error {
	spec, err := buildIntervalSpec(interval)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Debug().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func buildIntervalSpec(interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive")
	}
	if interval%time.Minute == 0 && interval < time.Hour {
		minutes := int(interval / time.Minute)
		if minutes == 1 {
			return "0 * * * * *", nil
		}
		if 60%minutes == 0 {
			return fmt.Sprintf("0 */%d * * * *", minutes), nil
		}
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return fmt.Sprintf("@every %ds", seconds), nil
}

func buildDailySpec(timeStr string) (string, error) {
	hour, minute, err := config.ParseHHMM(timeStr)
	if err != nil {
		return "", err
	}
	// cron format: second minute hour dom month dow
	return fmt.Sprintf("0 %d %d * * *", minute, hour), nil
}

// cronLogger routes cron's internal logging to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
