package client

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification for display purposes.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindWarning Kind = "warning"
	KindInfo    Kind = "info"
)

const defaultNotificationTTL = 3 * time.Second

// Notification is a transient user-facing message.
type Notification struct {
	ID      string
	Kind    Kind
	Message string
}

// Notifier holds notifications that expire on their own after a fixed
// delay. Zero duration means the default; a negative duration pins the
// notification until removed explicitly.
type Notifier struct {
	mu     sync.Mutex
	items  []Notification
	after  func(time.Duration, func())
	defttl time.Duration
}

func NewNotifier() *Notifier {
	return &Notifier{
		after:  func(d time.Duration, fn func()) { time.AfterFunc(d, fn) },
		defttl: defaultNotificationTTL,
	}
}

// SetScheduler replaces the expiry timer, for tests.
func (n *Notifier) SetScheduler(after func(time.Duration, func())) {
	n.mu.Lock()
	n.after = after
	n.mu.Unlock()
}

// Add queues a notification and schedules its removal. It returns the
// notification id so callers can remove it early.
func (n *Notifier) Add(kind Kind, message string, ttl time.Duration) string {
	if ttl == 0 {
		ttl = n.defttl
	}
	item := Notification{ID: uuid.NewString(), Kind: kind, Message: message}
	n.mu.Lock()
	n.items = append(n.items, item)
	after := n.after
	n.mu.Unlock()
	if ttl > 0 {
		after(ttl, func() { n.Remove(item.ID) })
	}
	return item.ID
}

func (n *Notifier) Success(message string) string { return n.Add(KindSuccess, message, 0) }
func (n *Notifier) Error(message string) string   { return n.Add(KindError, message, 0) }
func (n *Notifier) Warning(message string) string { return n.Add(KindWarning, message, 0) }
func (n *Notifier) Info(message string) string    { return n.Add(KindInfo, message, 0) }

// Remove drops the notification with the given id. Removing an id twice is
// harmless.
func (n *Notifier) Remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := range n.items {
		if n.items[i].ID == id {
			n.items = append(n.items[:i], n.items[i+1:]...)
			return
		}
	}
}

// All returns the live notifications in arrival order.
func (n *Notifier) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = nil
}
