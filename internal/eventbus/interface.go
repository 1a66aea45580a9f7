package eventbus

import (
	"context"
	"encoding/json"
	"time"
)

// Topics
const (
	TopicRecordsChanged = "wildlife.records.changed"
	TopicAlerts         = "wildlife.alerts"
)

// EventBus defines the interface for asynchronous event communication
type EventBus interface {
	Publish(ctx context.Context, topic string, event interface{}) error
	Subscribe(ctx context.Context, topic string, handler EventHandler) (Subscription, error)
	Close() error
}

// EventHandler processes incoming events. A handler error leaves the event
// unacknowledged.
type EventHandler func(ctx context.Context, event Event) error

// Subscription represents an event subscription
type Subscription interface {
	ID() string
	Topic() string
	Unsubscribe() error
}

// Event is a delivered message
type Event struct {
	ID      string
	Topic   string
	Payload []byte
}

// Decode unmarshals the JSON payload into v
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// RecordsChanged is published whenever incidents or animal records are written
type RecordsChanged struct {
	Kind       string    `json:"kind"` // incident, animal
	RecordID   string    `json:"record_id"`
	ParkID     string    `json:"park_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AlertRaised is published for every new alert
type AlertRaised struct {
	AlertID   string `json:"alert_id"`
	InsightID string `json:"insight_id"`
	Scope     string `json:"scope"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Priority  int    `json:"priority"`
}
