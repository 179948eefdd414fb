package notify

import (
	"context"

	"github.com/rs/zerolog"

	"daily-tracker/internal/events"
)

// Relay forwards user-scoped domain events to the push hub.
type Relay struct {
	feed        <-chan events.Event
	unsubscribe func()
	hub         *Hub
	log         zerolog.Logger
}

// NewRelay subscribes to bus right away so no event published after it
// returns is missed.
func NewRelay(bus events.Bus, hub *Hub, log zerolog.Logger) *Relay {
	ch, unsubscribe := bus.Subscribe(64)
	return &Relay{
		feed:        ch,
		unsubscribe: unsubscribe,
		hub:         hub,
		log:         log.With().Str("comp", "relay").Logger(),
	}
}

// Run forwards events until ctx is done, then unsubscribes.
func (r *Relay) Run(ctx context.Context) {
	defer r.unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.feed:
			if !ok {
				return
			}
			r.forward(ev)
		}
	}
}

func (r *Relay) forward(ev events.Event) {
	if ev.UserID == 0 {
		return
	}
	switch data := ev.Data.(type) {
	case events.SummaryComputed:
		n := r.hub.Notify(ev.UserID, PushEvent{Name: EventDailySummary, Payload: SummaryPayload{
			Date:           data.Date,
			TotalTasks:     data.Total,
			CompletedTasks: data.Completed,
			MissedTasks:    data.Missed,
			CompletionRate: data.CompletionRate,
		}})
		r.log.Debug().Uint("user_id", ev.UserID).Int("sessions", n).Msg("summary pushed")
	}
}
