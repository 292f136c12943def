// Package events provides the in-process publish/subscribe channel carrying
// system lifecycle notifications between the file store, job queue, and
// orchestrator.
package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Type identifies a kind of system event.
type Type string

// System event types.
const (
	FileCreated  Type = "FILE_CREATED"
	FileUpdated  Type = "FILE_UPDATED"
	FileDeleted  Type = "FILE_DELETED"
	JobCreated   Type = "JOB_CREATED"
	JobStarted   Type = "JOB_STARTED"
	JobProgress  Type = "JOB_PROGRESS"
	JobCompleted Type = "JOB_COMPLETED"
	JobFailed    Type = "JOB_FAILED"
	AgentMessage Type = "AGENT_MESSAGE"
	SystemAlert  Type = "SYSTEM_ALERT"
)

// Event is a single bus notification. History entries are append-only.
type Event struct {
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// FilePayload accompanies file lifecycle events.
type FilePayload struct {
	Path      string `json:"path"`
	Size      int    `json:"size"`
	ProjectID int64  `json:"projectId"`
}

// JobPayload accompanies job lifecycle events.
type JobPayload struct {
	ID       int64  `json:"id"`
	Type     string `json:"type,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Result   any    `json:"result,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AgentMessagePayload accompanies AGENT_MESSAGE events.
type AgentMessagePayload struct {
	AgentID string `json:"agentId"`
	Message string `json:"message"`
}

// Callback receives the payload of a published event.
type Callback func(payload any)

const historyLimit = 1000

type subscription struct {
	id int64
	cb Callback
}

// Bus delivers events synchronously, in subscription order at publish time.
type Bus struct {
	mu        sync.Mutex
	nextSubID int64
	listeners map[Type][]subscription
	history   []Event
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[Type][]subscription),
	}
}

// Subscribe registers a callback for one event type and returns its
// cancellation handle. The handle is idempotent.
func (b *Bus) Subscribe(eventType Type, cb Callback) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSubID++
	id := b.nextSubID
	b.listeners[eventType] = append(b.listeners[eventType], subscription{id: id, cb: cb})

	log.Debug().Str("event", string(eventType)).Msg("bus: subscribed")

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.listeners[eventType]
		filtered := make([]subscription, 0, len(subs))
		for _, s := range subs {
			if s.id != id {
				filtered = append(filtered, s)
			}
		}
		b.listeners[eventType] = filtered
	}
}

// Publish records the event in history and delivers it to subscribers of its
// type, synchronously and in subscription order. A panicking subscriber does
// not affect the others.
func (b *Bus) Publish(eventType Type, payload any, source string) {
	event := Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		Source:    source,
	}

	b.mu.Lock()
	b.history = append(b.history, event)
	if len(b.history) > historyLimit {
		b.history = b.history[len(b.history)-historyLimit:]
	}
	subs := make([]subscription, len(b.listeners[eventType]))
	copy(subs, b.listeners[eventType])
	b.mu.Unlock()

	log.Debug().Str("source", source).Str("event", string(eventType)).Msg("bus: publish")

	for _, s := range subs {
		deliver(eventType, s.cb, payload)
	}
}

func deliver(eventType Type, cb Callback, payload any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Str("event", string(eventType)).Msg("bus: listener panicked")
		}
	}()
	cb(payload)
}

// History returns up to limit of the most recent events, oldest first.
func (b *Bus) History(limit int) []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	out := make([]Event, limit)
	copy(out, b.history[len(b.history)-limit:])
	return out
}
