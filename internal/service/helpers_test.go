package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"daily-tracker/internal/clock"
	"daily-tracker/internal/events"
	"daily-tracker/internal/model"
	"daily-tracker/internal/notify"
	"daily-tracker/internal/repository"
)

type testEnv struct {
	db         *gorm.DB
	clock      *clock.Manual
	loc        *time.Location
	bus        events.Bus
	tasks      *repository.TaskRepository
	users      *repository.UserRepository
	reminders  *repository.ReminderRepository
	summaries  *repository.SummaryRepository
	evaluator  *ReminderService
	ledger     *Ledger
	recurrence *RecurrenceService
	rollover   *RolloverService
	taskSvc    *TaskService
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	db, err := repository.NewDB(filepath.Join(t.TempDir(), "service-test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	loc := time.UTC
	env := &testEnv{
		db:        db,
		clock:     clock.NewManual(now),
		loc:       loc,
		bus:       events.New(),
		tasks:     repository.NewTaskRepository(db),
		users:     repository.NewUserRepository(db),
		reminders: repository.NewReminderRepository(db),
		summaries: repository.NewSummaryRepository(db),
	}
	env.evaluator = NewReminderService(env.tasks, env.users, loc, zerolog.Nop())
	env.ledger = NewLedger(env.reminders, env.clock, nil)
	env.recurrence = NewRecurrenceService(env.tasks, DefaultRecurrenceDays, loc, env.bus, nil, zerolog.Nop())
	env.rollover = NewRolloverService(env.tasks, env.summaries, loc, env.bus, nil, zerolog.Nop())
	env.taskSvc = NewTaskService(env.tasks, loc)
	return env
}

func (e *testEnv) createTask(t *testing.T, task model.Task) model.Task {
	t.Helper()
	if err := e.tasks.Create(context.Background(), &task); err != nil {
		t.Fatalf("create task %q: %v", task.Title, err)
	}
	return task
}

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }

// manualTrigger records registered jobs and runs them on demand.
type manualTrigger struct {
	mu      sync.Mutex
	jobs    map[string]func()
	started bool
	stopped bool
}

func newManualTrigger() *manualTrigger {
	return &manualTrigger{jobs: make(map[string]func())}
}

func (m *manualTrigger) Every(name string, _ time.Duration, job func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[name] = job
	return nil
}

func (m *manualTrigger) Daily(name, _ string, job func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[name] = job
	return nil
}

func (m *manualTrigger) Start() {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
}

func (m *manualTrigger) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *manualTrigger) fire(t *testing.T, name string) {
	t.Helper()
	m.mu.Lock()
	job, ok := m.jobs[name]
	m.mu.Unlock()
	if !ok {
		t.Fatalf("job %q not registered", name)
	}
	job()
}

type dispatchCall struct {
	TaskID uint
	Type   model.ReminderType
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
}

func (d *recordingDispatcher) Dispatch(_ context.Context, task model.Task, typ model.ReminderType, _ model.UserPreferences) notify.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{TaskID: task.ID, Type: typ})
	return notify.Result{DispatchID: "test", Outcomes: []notify.Outcome{{Channel: notify.ChannelPush, Status: notify.StatusSent}}}
}

func (d *recordingDispatcher) take() []dispatchCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := d.calls
	d.calls = nil
	return out
}
