// Package notify fans out the toast and forced logout side channels to whoever listens,
// typically the event stream of the dashboard and the auth state holder.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventToast  EventType = "toast"
	EventLogout EventType = "logout"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

const (
	LogoutReasonUser           string = "user"
	LogoutReasonSessionExpired string = "session-expired"
	LogoutReasonRefreshFailed  string = "refresh-failed"
)

type Toast struct {
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Kind      string `json:"kind,omitempty"`
	Path      string `json:"path,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

type Logout struct {
	Reason string `json:"reason"`
}

type Event struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	Time   time.Time `json:"time"`
	Toast  *Toast    `json:"toast,omitempty"`
	Logout *Logout   `json:"logout,omitempty"`
}

// Hub is a fire-and-forget publisher. Publishing never blocks, toasts are dropped for
// subscribers whose buffer is full and logout events replace the oldest buffered events.
type Hub struct {
	lock        sync.RWMutex
	subscribers map[string]chan Event
	bufferSize  int
}

// Subscribe registers a new listener. The returned function unsubscribes and closes the channel,
// it is safe to call it more than once.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	id := uuid.NewString()
	ch := make(chan Event, h.bufferSize)
	h.lock.Lock()
	h.subscribers[id] = ch
	h.lock.Unlock()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.lock.Lock()
			delete(h.subscribers, id)
			h.lock.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	h.lock.RLock()
	defer h.lock.RUnlock()
	for id, ch := range h.subscribers {
		if event.Type == EventLogout {
			deliverEvicting(id, ch, event)
			continue
		}
		select {
		case ch <- event:
		default:
			slog.Warn("NOTIFY", "message", "subscriber is not keeping up, dropping event", "subscriber", id, "eventType", event.Type)
		}
	}
}

// deliverEvicting makes room for the event by dropping the oldest buffered events.
// The channel is only closed under the write lock, so it stays open while the read lock is held.
func deliverEvicting(id string, ch chan Event, event Event) {
	for {
		select {
		case ch <- event:
			return
		default:
		}
		select {
		case dropped := <-ch:
			slog.Warn("NOTIFY", "message", "subscriber is not keeping up, dropping event", "subscriber", id, "eventType", dropped.Type)
		default:
		}
	}
}

func (h *Hub) Toast(toast Toast) {
	slog.Debug("NOTIFY", "message", "toast", "level", toast.Level, "kind", toast.Kind, "path", toast.Path)
	h.Publish(Event{Type: EventToast, Toast: &toast})
}

func (h *Hub) Logout(reason string) {
	slog.Info("NOTIFY", "message", "logout signal", "reason", reason)
	h.Publish(Event{Type: EventLogout, Logout: &Logout{Reason: reason}})
}

type HubOption func(*Hub)

func WithBufferSize(size int) HubOption {
	return func(h *Hub) {
		h.bufferSize = size
	}
}

func NewHub(options ...HubOption) *Hub {
	hub := Hub{subscribers: map[string]chan Event{}, bufferSize: 16}
	for _, opt := range options {
		opt(&hub)
	}
	if hub.bufferSize < 1 {
		hub.bufferSize = 1
	}
	return &hub
}
