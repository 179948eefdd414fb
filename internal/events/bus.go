// Package events carries domain events (reminder due, tasks missed, summary
// computed) from the scheduler core to adapters such as the live-push relay.
//
// Publish never blocks: subscribers own buffered channels and a slow
// subscriber drops events instead of stalling a tick.
package events

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	TypeReminderDue         = "reminder.due"
	TypeReminderDispatched  = "reminder.dispatched"
	TypeTasksMissed         = "tasks.missed"
	TypeSummaryComputed     = "summary.computed"
	TypeRecurrenceGenerated = "recurrence.generated"
)

type Event struct {
	Type string
	Time time.Time
	// UserID is zero for events that are not scoped to one user.
	UserID uint
	Data   any
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fanout bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, unsub
}

// Nop discards everything.
type Nop struct{}

func (Nop) Publish(Event) {}

func (Nop) Subscribe(int) (<-chan Event, func()) {
	ch := make(chan Event)
	close(ch)
	return ch, func() {}
}

// Payloads.

type ReminderDue struct {
	TaskID uint
	Type   string
	Bucket time.Time
}

type ReminderDispatched struct {
	DispatchID string
	TaskID     uint
	Type       string
	Sent       []string
	Failed     []string
}

type TasksMissed struct {
	Before string
	Count  int64
}

type SummaryComputed struct {
	Date           string
	Total          int
	Completed      int
	Missed         int
	CompletionRate float64
}

type RecurrenceGenerated struct {
	AsOf    string
	Created int
}
