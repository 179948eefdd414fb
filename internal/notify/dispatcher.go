package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"daily-tracker/internal/metrics"
	"daily-tracker/internal/model"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

type Outcome struct {
	Channel string
	Status  Status
	Err     error
}

// Result lists one outcome per registered channel, in registration order.
type Result struct {
	DispatchID string
	Outcomes   []Outcome
}

func (r Result) channels(s Status) []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Status == s {
			out = append(out, o.Channel)
		}
	}
	return out
}

func (r Result) Sent() []string   { return r.channels(StatusSent) }
func (r Result) Failed() []string { return r.channels(StatusFailed) }

func (r Result) Outcome(channel string) (Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Channel == channel {
			return o, true
		}
	}
	return Outcome{}, false
}

// Dispatcher fans a reminder out to its channels. Each channel runs in its
// own goroutine under its own timeout; Dispatch returns once all of them
// have finished or timed out.
type Dispatcher struct {
	channels []Channel
	timeout  time.Duration
	log      zerolog.Logger
	metrics  *metrics.Metrics
	newID    func() string
}

func NewDispatcher(log zerolog.Logger, m *metrics.Metrics, timeout time.Duration, channels ...Channel) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		channels: channels,
		timeout:  timeout,
		log:      log.With().Str("comp", "dispatcher").Logger(),
		metrics:  m,
		newID:    uuid.NewString,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, task model.Task, typ model.ReminderType, prefs model.UserPreferences) Result {
	r := Reminder{DispatchID: d.newID(), Task: task, Type: typ, Prefs: prefs}
	res := Result{DispatchID: r.DispatchID, Outcomes: make([]Outcome, len(d.channels))}

	var wg sync.WaitGroup
	for i, ch := range d.channels {
		if !ch.Enabled(prefs) {
			res.Outcomes[i] = Outcome{Channel: ch.Name(), Status: StatusSkipped}
			continue
		}
		wg.Add(1)
		go func(i int, ch Channel) {
			defer wg.Done()
			res.Outcomes[i] = d.attempt(ctx, ch, r)
		}(i, ch)
	}
	wg.Wait()

	for _, o := range res.Outcomes {
		d.metrics.Delivery(o.Channel, string(o.Status))
	}
	d.log.Info().
		Str("dispatch_id", r.DispatchID).
		Uint("task_id", task.ID).
		Str("type", string(typ)).
		Strs("sent", res.Sent()).
		Strs("failed", res.Failed()).
		Msg("reminder dispatched")
	return res
}

func (d *Dispatcher) attempt(ctx context.Context, ch Channel, r Reminder) (out Outcome) {
	out.Channel = ch.Name()
	defer func() {
		if p := recover(); p != nil {
			d.log.Error().Str("channel", out.Channel).Interface("panic", p).Msg("channel panicked")
			out.Status = StatusFailed
			out.Err = errors.New("notify: channel panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := ch.Send(ctx, r)
	switch {
	case err == nil:
		out.Status = StatusSent
	case errors.Is(err, ErrUnconfigured), errors.Is(err, ErrBadRecipient):
		out.Status = StatusSkipped
		out.Err = err
		d.log.Debug().Err(err).
			Str("channel", out.Channel).
			Uint("task_id", r.Task.ID).
			Str("type", string(r.Type)).
			Msg("channel skipped")
	default:
		out.Status = StatusFailed
		out.Err = err
		d.log.Warn().Err(err).
			Str("dispatch_id", r.DispatchID).
			Str("channel", out.Channel).
			Uint("task_id", r.Task.ID).
			Str("type", string(r.Type)).
			Msg("channel delivery failed")
	}
	return out
}
