// Package notify delivers task reminders over the outbound channels: the
// in-app push hub, email, SMS and Telegram. Channels are independent; the
// Dispatcher runs them concurrently and records one outcome per channel.
package notify

import (
	"context"
	"errors"

	"golang.org/x/time/rate"

	"daily-tracker/internal/model"
)

var (
	// ErrUnconfigured is returned by a channel whose transport credentials
	// were missing at startup. The channel stays disabled for the process
	// lifetime.
	ErrUnconfigured = errors.New("notify: channel not configured")
	// ErrBadRecipient marks a malformed or missing address. Such sends are
	// skipped, not failed.
	ErrBadRecipient = errors.New("notify: invalid recipient")
)

const (
	ChannelPush     = "push"
	ChannelEmail    = "email"
	ChannelSMS      = "sms"
	ChannelTelegram = "telegram"
)

// Reminder is one logical reminder handed to every channel of a dispatch.
type Reminder struct {
	DispatchID string
	Task       model.Task
	Type       model.ReminderType
	Prefs      model.UserPreferences
}

type Channel interface {
	Name() string
	// Enabled reports whether the user's preferences opt into the channel.
	Enabled(prefs model.UserPreferences) bool
	Send(ctx context.Context, r Reminder) error
}

// NewLimiter returns a limiter allowing perSec sends per second with an
// equal burst. A non-positive rate disables limiting.
func NewLimiter(perSec int) *rate.Limiter {
	if perSec <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSec), perSec)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

// callWithContext runs a blocking transport call that takes no context. The
// caller gets ctx.Err() once ctx is done; the call itself is left to finish
// in the background and its result is dropped.
func callWithContext(ctx context.Context, call func() error) error {
	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
