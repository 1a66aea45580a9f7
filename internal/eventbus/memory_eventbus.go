package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// MemoryEventBus delivers events synchronously inside the process. The server
// falls back to it when no redis is configured; tests use it to inspect what
// was published.
type MemoryEventBus struct {
	mutex       sync.RWMutex
	sequence    int
	events      map[string][]Event
	subscribers map[string]map[string]*memorySubscription
}

type memorySubscription struct {
	id      string
	topic   string
	handler EventHandler
	bus     *MemoryEventBus
}

// NewMemoryEventBus creates an empty in-process bus
func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{
		events:      make(map[string][]Event),
		subscribers: make(map[string]map[string]*memorySubscription),
	}
}

// Publish records the event and hands it to every subscriber of topic. The
// first handler error is returned.
func (m *MemoryEventBus) Publish(ctx context.Context, topic string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	m.mutex.Lock()
	m.sequence++
	delivered := Event{ID: strconv.Itoa(m.sequence), Topic: topic, Payload: data}
	m.events[topic] = append(m.events[topic], delivered)
	handlers := make([]EventHandler, 0, len(m.subscribers[topic]))
	for _, sub := range m.subscribers[topic] {
		handlers = append(handlers, sub.handler)
	}
	m.mutex.Unlock()

	for _, handler := range handlers {
		if err := handler(ctx, delivered); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers handler for topic
func (m *MemoryEventBus) Subscribe(ctx context.Context, topic string, handler EventHandler) (Subscription, error) {
	sub := &memorySubscription{id: uuid.New().String(), topic: topic, handler: handler, bus: m}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.subscribers[topic] == nil {
		m.subscribers[topic] = make(map[string]*memorySubscription)
	}
	m.subscribers[topic][sub.id] = sub

	return sub, nil
}

// Events returns the events published to topic so far
func (m *MemoryEventBus) Events(topic string) []Event {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return append([]Event(nil), m.events[topic]...)
}

// Close drops all subscribers
func (m *MemoryEventBus) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.subscribers = make(map[string]map[string]*memorySubscription)
	return nil
}

func (s *memorySubscription) ID() string    { return s.id }
func (s *memorySubscription) Topic() string { return s.topic }

func (s *memorySubscription) Unsubscribe() error {
	s.bus.mutex.Lock()
	defer s.bus.mutex.Unlock()
	delete(s.bus.subscribers[s.topic], s.id)
	return nil
}
