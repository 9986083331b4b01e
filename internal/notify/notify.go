package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Event kinds published for task lifecycle changes.
const (
	EventCreated   = "task.created"
	EventUpdated   = "task.updated"
	EventCompleted = "task.completed"
	EventDeleted   = "task.deleted"
)

// Event is the payload delivered to downstream consumers such as a
// reminder or notification service.
type Event struct {
	Kind       string     `json:"kind"`
	TaskID     string     `json:"taskId"`
	UserID     string     `json:"userId"`
	Title      string     `json:"title,omitempty"`
	DueDate    *time.Time `json:"dueDate,omitempty"`
	OccurredAt time.Time  `json:"occurredAt"`
}

// Backend defines the broker-agnostic publish operation used by the app.
type Backend interface {
	Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) error
	Close() error
}

// Notifier serializes task events onto a single backend topic.
type Notifier struct {
	backend Backend
	topic   string
}

// New constructs a Notifier for the provided backend and topic.
func New(backend Backend, topic string) *Notifier {
	return &Notifier{backend: backend, topic: topic}
}

// Publish sends the event to the configured topic. The event kind travels
// as a message attribute so consumers can filter without decoding.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.backend.Publish(ctx, n.topic, data, map[string]string{"kind": event.Kind})
}

// Close closes the underlying backend.
func (n *Notifier) Close() error {
	return n.backend.Close()
}
