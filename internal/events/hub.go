package events

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event types published on task mutations
const (
	TypeCreated  = "task_created"
	TypeStatus   = "status_changed"
	TypePayment  = "payment_updated"
	TypeRevision = "revision_requested"
	TypeReview   = "review_submitted"
)

// Event describes a single task row mutation.
type Event struct {
	TaskID string      `json:"task_id"`
	Type   string      `json:"type"`
	Task   interface{} `json:"task,omitempty"`
	At     time.Time   `json:"at"`
}

// Subscriber receives events for one task. Delivery is at-most-once:
// events published while the subscriber's buffer is full are dropped,
// and nothing is replayed after a disconnect.
type Subscriber struct {
	TaskID string
	C      chan Event

	hub *Hub
}

// Close cancels the subscription.
func (s *Subscriber) Close() {
	s.hub.unsubscribe(s)
}

// Hub fans task events out to per-task subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscriber]bool
	log  *logrus.Entry
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscriber]bool),
		log:  logrus.WithField("component", "events"),
	}
}

// Subscribe registers a subscriber for events on the given task.
func (h *Hub) Subscribe(taskID string) *Subscriber {
	sub := &Subscriber{
		TaskID: taskID,
		C:      make(chan Event, 16),
		hub:    h,
	}

	h.mu.Lock()
	if h.subs[taskID] == nil {
		h.subs[taskID] = make(map[*Subscriber]bool)
	}
	h.subs[taskID][sub] = true
	h.mu.Unlock()

	return sub
}

func (h *Hub) unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.TaskID]; ok {
		if set[sub] {
			delete(set, sub)
			close(sub.C)
		}
		if len(set) == 0 {
			delete(h.subs, sub.TaskID)
		}
	}
}

// Publish delivers an event to every subscriber of the task. Slow
// subscribers are skipped rather than blocked on.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[event.TaskID] {
		select {
		case sub.C <- event:
		default:
			h.log.WithFields(logrus.Fields{
				"task_id": event.TaskID,
				"type":    event.Type,
			}).Warn("subscriber buffer full, dropping event")
		}
	}
}

// SubscriberCount returns the number of subscribers for a task.
func (h *Hub) SubscriberCount(taskID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[taskID])
}
