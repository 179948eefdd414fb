package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"daily-tracker/internal/model"
)

const (
	EventTaskReminder    = "task_reminder"
	EventNewNotification = "new_notification"
	EventDailySummary    = "daily_summary"
)

// PushEvent is one message for a user's live sessions. The transport adapter
// serializes Payload as JSON under the event name.
type PushEvent struct {
	Name    string
	Payload any
}

type ReminderPayload struct {
	DispatchID    string `json:"dispatch_id"`
	TaskID        uint   `json:"task_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ScheduledTime string `json:"scheduled_time"`
	ReminderType  string `json:"reminder_type"`
	Message       string `json:"message"`
	// ShowBrowser mirrors the user's browser-notification toggle. It only
	// gates the client-side popup.
	ShowBrowser bool `json:"show_browser"`
}

type NotificationPayload struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	Timestamp time.Time `json:"timestamp"`
}

type SummaryPayload struct {
	Date           string  `json:"date"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	MissedTasks    int     `json:"missed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
}

// Session is one live connection of a user.
type Session struct {
	UserID uint
	Events <-chan PushEvent

	ch chan PushEvent
}

// Hub is the session registry behind the push channel. Connection handling
// lives in the transport adapter; the hub only knows users and sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uint]map[*Session]struct{}
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[uint]map[*Session]struct{})}
}

// Register adds a session for userID. The returned func removes it and
// closes its event channel; calling it more than once is safe.
func (h *Hub) Register(userID uint, buffer int) (*Session, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan PushEvent, buffer)
	s := &Session{UserID: userID, Events: ch, ch: ch}

	h.mu.Lock()
	if h.sessions[userID] == nil {
		h.sessions[userID] = make(map[*Session]struct{})
	}
	h.sessions[userID][s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return s, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.sessions[userID], s)
			if len(h.sessions[userID]) == 0 {
				delete(h.sessions, userID)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
}

// Notify fans ev out to every session of userID without blocking. Sessions
// with a full buffer miss the event. It returns the number of sessions
// that received it.
func (h *Hub) Notify(userID uint, ev PushEvent) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for s := range h.sessions[userID] {
		select {
		case s.ch <- ev:
			n++
		default:
		}
	}
	return n
}

func (h *Hub) Sessions(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
}

// PushChannel stores an in-app notification and pushes it live. It runs for
// every reminder regardless of the browser toggle.
type PushChannel struct {
	hub   *Hub
	store NotificationStore
}

func NewPushChannel(hub *Hub, store NotificationStore) *PushChannel {
	return &PushChannel{hub: hub, store: store}
}

func (c *PushChannel) Name() string { return ChannelPush }

func (c *PushChannel) Enabled(model.UserPreferences) bool { return true }

func (c *PushChannel) Send(ctx context.Context, r Reminder) error {
	msg := PushText(r.Task, r.Type)
	c.hub.Notify(r.Task.UserID, PushEvent{Name: EventTaskReminder, Payload: ReminderPayload{
		DispatchID:    r.DispatchID,
		TaskID:        r.Task.ID,
		Title:         r.Task.Title,
		Description:   r.Task.Description,
		ScheduledTime: scheduledText(r.Task, ""),
		ReminderType:  string(r.Type),
		Message:       msg,
		ShowBrowser:   r.Prefs.EnableBrowser,
	}})

	n := &model.Notification{UserID: r.Task.UserID, Message: msg, Type: EventTaskReminder}
	if err := c.store.Create(ctx, n); err != nil {
		return fmt.Errorf("push: %w", err)
	}
	c.hub.Notify(r.Task.UserID, PushEvent{Name: EventNewNotification, Payload: NotificationPayload{
		ID:        n.ID,
		UserID:    n.UserID,
		Message:   n.Message,
		Type:      n.Type,
		IsRead:    n.IsRead,
		Timestamp: n.CreatedAt,
	}})
	return nil
}
