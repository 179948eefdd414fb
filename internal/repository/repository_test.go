package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "tracker-test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func clockPtr(s string) *string { return &s }

func TestClaimIsExclusivePerKey(t *testing.T) {
	repo := NewReminderRepository(setupDB(t))
	ctx := context.Background()
	bucket := time.Date(2026, 3, 6, 9, 0, 0, 0, time.UTC)

	first, err := repo.Claim(ctx, &model.ReminderRecord{TaskID: 1, ScheduledFor: bucket, ReminderType: model.ReminderOnTime, SentAt: bucket})
	if err != nil || !first {
		t.Fatalf("first claim: ok=%v err=%v", first, err)
	}
	second, err := repo.Claim(ctx, &model.ReminderRecord{TaskID: 1, ScheduledFor: bucket, ReminderType: model.ReminderOnTime, SentAt: bucket})
	if err != nil || second {
		t.Fatalf("second claim must be rejected: ok=%v err=%v", second, err)
	}

	other, err := repo.Claim(ctx, &model.ReminderRecord{TaskID: 1, ScheduledFor: bucket, ReminderType: model.ReminderOverdue, SentAt: bucket})
	if err != nil || !other {
		t.Fatalf("different type must be claimable: ok=%v err=%v", other, err)
	}

	recs, err := repo.ListByTask(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
}

func TestClaimConcurrentSingleWinner(t *testing.T) {
	repo := NewReminderRepository(setupDB(t))
	bucket := time.Date(2026, 3, 6, 9, 10, 0, 0, time.UTC)

	const workers = 16
	var wins int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			ok, err := repo.Claim(context.Background(), &model.ReminderRecord{
				TaskID: 42, ScheduledFor: bucket, ReminderType: model.ReminderOverdue, SentAt: bucket,
			})
			if err != nil {
				t.Errorf("claim: %v", err)
				return
			}
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestListPendingScheduledFilters(t *testing.T) {
	db := setupDB(t)
	repo := NewTaskRepository(db)
	ctx := context.Background()
	parent := uint(99)

	tasks := []*model.Task{
		{UserID: 1, Title: "due", TaskDate: "2026-03-06", ScheduledTime: clockPtr("09:00")},
		{UserID: 1, Title: "untimed", TaskDate: "2026-03-06"},
		{UserID: 1, Title: "tomorrow", TaskDate: "2026-03-07", ScheduledTime: clockPtr("09:00")},
		{UserID: 1, Title: "done", TaskDate: "2026-03-06", ScheduledTime: clockPtr("08:00"), Status: model.StatusCompleted},
		{UserID: 1, Title: "template", TaskDate: "2026-03-06", ScheduledTime: clockPtr("07:00"), IsRecurring: true, RecurrencePattern: model.PatternDaily},
		{UserID: 1, Title: "paused instance", TaskDate: "2026-03-06", ScheduledTime: clockPtr("10:00"), ParentTaskID: &parent},
	}
	for _, task := range tasks {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create %s: %v", task.Title, err)
		}
	}
	if err := repo.SetActive(ctx, tasks[5].ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	got, err := repo.ListPendingScheduled(ctx, "2026-03-06")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].Title != "due" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
	if got[0].Status != model.StatusPending || !got[0].IsActive {
		t.Fatalf("defaults not applied: %+v", got[0])
	}
}

func TestCreateInstanceIfAbsentIsIdempotent(t *testing.T) {
	repo := NewTaskRepository(setupDB(t))
	ctx := context.Background()

	tmpl := &model.Task{UserID: 1, Title: "Run", TaskDate: "2026-03-06", IsRecurring: true, RecurrencePattern: model.PatternDaily}
	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("create template: %v", err)
	}

	for i := 0; i < 2; i++ {
		created, err := repo.CreateInstanceIfAbsent(ctx, &model.Task{
			UserID: 1, Title: "Run", TaskDate: "2026-03-07", ParentTaskID: &tmpl.ID, Status: model.StatusPending,
		})
		if err != nil {
			t.Fatalf("create instance: %v", err)
		}
		if created != (i == 0) {
			t.Fatalf("run %d: created=%v", i, created)
		}
	}

	instances, err := repo.ListInstances(ctx, tmpl.ID)
	if err != nil || len(instances) != 1 {
		t.Fatalf("expected one instance, got %d err=%v", len(instances), err)
	}
}

func TestMarkMissedAndCounts(t *testing.T) {
	repo := NewTaskRepository(setupDB(t))
	ctx := context.Background()

	seed := []*model.Task{
		{UserID: 1, Title: "a", TaskDate: "2026-03-05"},
		{UserID: 1, Title: "b", TaskDate: "2026-03-05", Status: model.StatusCompleted},
		{UserID: 2, Title: "c", TaskDate: "2026-03-05"},
		{UserID: 2, Title: "d", TaskDate: "2026-03-06"},
	}
	for _, task := range seed {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, dates, err := repo.MarkMissedBefore(ctx, "2026-03-06")
	if err != nil || n != 2 {
		t.Fatalf("mark missed: n=%d err=%v", n, err)
	}
	if len(dates) != 1 || dates[0] != "2026-03-05" {
		t.Fatalf("touched dates = %v", dates)
	}
	if n, dates, err := repo.MarkMissedBefore(ctx, "2026-03-06"); err != nil || n != 0 || len(dates) != 0 {
		t.Fatalf("second run: n=%d dates=%v err=%v", n, dates, err)
	}

	counts, err := repo.CountByUserStatus(ctx, "2026-03-05")
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c := counts[1]; c.Completed != 1 || c.Missed != 1 || c.Pending != 0 {
		t.Fatalf("unexpected user 1 counts: %+v", c)
	}
	if c := counts[2]; c.Missed != 1 || c.Total() != 1 {
		t.Fatalf("unexpected user 2 counts: %+v", c)
	}

	today, err := repo.Get(ctx, seed[3].ID)
	if err != nil || today.Status != model.StatusPending {
		t.Fatalf("today's task must stay pending: %+v err=%v", today, err)
	}
}

func TestSummaryUpsertReplaces(t *testing.T) {
	repo := NewSummaryRepository(setupDB(t))
	ctx := context.Background()

	first := model.NewDailySummary(1, "2026-03-05", model.StatusCounts{Completed: 1, Missed: 1})
	if err := repo.Upsert(ctx, &first); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	second := model.NewDailySummary(1, "2026-03-05", model.StatusCounts{Completed: 2})
	if err := repo.Upsert(ctx, &second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := repo.Get(ctx, 1, "2026-03-05")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalTasks != 2 || got.CompletedTasks != 2 || got.CompletionRate != 100 {
		t.Fatalf("summary not replaced: %+v", got)
	}
	if n, _ := repo.CountForDate(ctx, "2026-03-05"); n != 1 {
		t.Fatalf("expected a single row, got %d", n)
	}
	if _, err := repo.Get(ctx, 9, "2026-03-05"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPreferencesDefaultsAndSave(t *testing.T) {
	repo := NewUserRepository(setupDB(t))
	ctx := context.Background()

	user, err := repo.GetOrCreate(ctx, "ana")
	if err != nil {
		t.Fatalf("user: %v", err)
	}
	prefs, err := repo.Preferences(ctx, user.ID)
	if err != nil || !prefs.EnableBrowser || prefs.ReminderBeforeMinutes != 15 {
		t.Fatalf("unexpected defaults: %+v err=%v", prefs, err)
	}

	saved := model.UserPreferences{UserID: user.ID, Email: "ana@example.com", EnableEmail: true, ReminderBeforeMinutes: 5, ReminderIntervalMinutes: 0}
	if err := repo.SavePreferences(ctx, &saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	saved = model.UserPreferences{UserID: user.ID, Email: "ana@example.org", EnableEmail: true, ReminderBeforeMinutes: 5, ReminderIntervalMinutes: 0}
	if err := repo.SavePreferences(ctx, &saved); err != nil {
		t.Fatalf("save again: %v", err)
	}

	all, err := repo.PreferencesFor(ctx, []uint{user.ID, 777})
	if err != nil {
		t.Fatalf("prefs for: %v", err)
	}
	got := all[user.ID]
	if got.Email != "ana@example.org" || got.EnableBrowser || got.ReminderIntervalMinutes != 10 {
		t.Fatalf("unexpected stored prefs: %+v", got)
	}
	if fallback := all[777]; !fallback.EnableBrowser || fallback.UserID != 777 {
		t.Fatalf("missing user must get defaults: %+v", fallback)
	}
}

func TestCascadeActiveOnlyTouchesFuturePending(t *testing.T) {
	repo := NewTaskRepository(setupDB(t))
	ctx := context.Background()

	tmpl := &model.Task{UserID: 1, Title: "Read", TaskDate: "2026-03-01", IsRecurring: true, RecurrencePattern: model.PatternDaily}
	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("template: %v", err)
	}
	past := &model.Task{UserID: 1, Title: "Read", TaskDate: "2026-03-05", ParentTaskID: &tmpl.ID}
	doneToday := &model.Task{UserID: 1, Title: "Read", TaskDate: "2026-03-06", ParentTaskID: &tmpl.ID, Status: model.StatusCompleted}
	future := &model.Task{UserID: 1, Title: "Read", TaskDate: "2026-03-07", ParentTaskID: &tmpl.ID}
	for _, task := range []*model.Task{past, doneToday, future} {
		if err := repo.Create(ctx, task); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	n, err := repo.CascadeActive(ctx, tmpl.ID, false, "2026-03-06")
	if err != nil || n != 1 {
		t.Fatalf("cascade: n=%d err=%v", n, err)
	}
	for _, tc := range []struct {
		id     uint
		active bool
	}{{past.ID, true}, {doneToday.ID, true}, {future.ID, false}} {
		got, err := repo.Get(ctx, tc.id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.IsActive != tc.active {
			t.Fatalf("task %d (%s): active=%v want %v", got.ID, got.TaskDate, got.IsActive, tc.active)
		}
	}
}
