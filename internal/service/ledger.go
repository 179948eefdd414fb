package service

import (
	"context"
	"time"

	"daily-tracker/internal/clock"
	"daily-tracker/internal/metrics"
	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
)

// Ledger is the dedupe record of sent reminders. A claim is keyed by task,
// minute bucket and reminder type and succeeds at most once per key, also
// across concurrent callers.
type Ledger struct {
	repo    *repository.ReminderRepository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func NewLedger(repo *repository.ReminderRepository, clk clock.Clock, m *metrics.Metrics) *Ledger {
	return &Ledger{repo: repo, clock: clk, metrics: m}
}

// TryClaim records the reminder and reports true if the key was free.
// Buckets are stored as UTC minutes.
func (l *Ledger) TryClaim(ctx context.Context, taskID uint, bucket time.Time, typ model.ReminderType) (bool, error) {
	ok, err := l.repo.Claim(ctx, &model.ReminderRecord{
		TaskID:       taskID,
		ScheduledFor: clock.Bucket(bucket).UTC(),
		ReminderType: typ,
		SentAt:       l.clock.Now().UTC(),
	})
	if err != nil {
		return false, err
	}
	if ok {
		l.metrics.Claimed(string(typ))
	} else {
		l.metrics.Duplicate()
	}
	return ok, nil
}
