package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// streamMaxLen bounds every stream; older entries are trimmed approximately
const streamMaxLen = 10000

// Connect opens a redis client from a redis:// URL and pings it
func Connect(ctx context.Context, url, password string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if password != "" {
		opts.Password = password
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisEventBus delivers events over Redis Streams using a consumer group, so
// each event is handled by one worker of the group.
type RedisEventBus struct {
	client   *redis.Client
	group    string
	consumer string
	logger   *zap.Logger

	subscribers map[string]*RedisSubscription
	mutex       sync.Mutex
	wg          sync.WaitGroup
}

// RedisSubscription is a running stream consumer
type RedisSubscription struct {
	id      string
	topic   string
	handler EventHandler
	bus     *RedisEventBus
	cancel  context.CancelFunc
}

// NewRedisEventBus creates an event bus on an existing client. consumer must
// be stable across restarts so pending events are picked up again.
func NewRedisEventBus(client *redis.Client, group, consumer string, logger *zap.Logger) *RedisEventBus {
	return &RedisEventBus{
		client:      client,
		group:       group,
		consumer:    consumer,
		logger:      logger,
		subscribers: make(map[string]*RedisSubscription),
	}
}

// Publish appends the JSON encoded event to the topic stream
func (r *RedisEventBus) Publish(ctx context.Context, topic string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"payload": data},
	}).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts a consumer group reader for topic
func (r *RedisEventBus) Subscribe(ctx context.Context, topic string, handler EventHandler) (Subscription, error) {
	err := r.client.XGroupCreateMkStream(ctx, topic, r.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}

	subCtx, cancel := context.WithCancel(context.Background())
	sub := &RedisSubscription{
		id:      uuid.New().String(),
		topic:   topic,
		handler: handler,
		bus:     r,
		cancel:  cancel,
	}

	r.mutex.Lock()
	r.subscribers[sub.id] = sub
	r.mutex.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.consumeStream(subCtx, sub)
	}()

	r.logger.Info("Started stream consumer",
		zap.String("topic", topic),
		zap.String("group", r.group),
		zap.String("consumer", r.consumer))

	return sub, nil
}

func (r *RedisEventBus) consumeStream(ctx context.Context, sub *RedisSubscription) {
	// "0" replays this consumer's pending entries, ">" reads new ones
	start := "0"

	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    r.group,
			Consumer: r.consumer,
			Streams:  []string{sub.topic, start},
			Count:    10,
			Block:    2 * time.Second,
		}).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				r.logger.Error("Failed to read stream", zap.String("topic", sub.topic), zap.Error(err))
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}

		acked := 0
		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if err := r.handleMessage(ctx, sub, msg); err != nil {
					// left in the pending entries list for the next replay
					r.logger.Error("Failed to process message",
						zap.String("topic", sub.topic),
						zap.String("msg_id", msg.ID),
						zap.Error(err))
					continue
				}
				r.client.XAck(ctx, sub.topic, r.group, msg.ID)
				acked++
			}
		}

		// stop replaying once the pending list is drained or only failures remain
		if start == "0" && acked == 0 {
			start = ">"
		}
	}
}

func (r *RedisEventBus) handleMessage(ctx context.Context, sub *RedisSubscription, msg redis.XMessage) error {
	event, err := eventFromMessage(sub.topic, msg)
	if err != nil {
		return err
	}
	return sub.handler(ctx, event)
}

func eventFromMessage(topic string, msg redis.XMessage) (Event, error) {
	var payload []byte
	switch v := msg.Values["payload"].(type) {
	case string:
		payload = []byte(v)
	case []byte:
		payload = v
	default:
		return Event{}, fmt.Errorf("invalid payload format in message %s", msg.ID)
	}
	return Event{ID: msg.ID, Topic: topic, Payload: payload}, nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

// Close stops all consumers and closes the client
func (r *RedisEventBus) Close() error {
	r.mutex.Lock()
	for id, sub := range r.subscribers {
		sub.cancel()
		delete(r.subscribers, id)
	}
	r.mutex.Unlock()

	r.wg.Wait()
	return r.client.Close()
}

func (s *RedisSubscription) ID() string    { return s.id }
func (s *RedisSubscription) Topic() string { return s.topic }

// Unsubscribe stops the consumer; pending events stay with the group
func (s *RedisSubscription) Unsubscribe() error {
	s.bus.mutex.Lock()
	delete(s.bus.subscribers, s.id)
	s.bus.mutex.Unlock()
	s.cancel()
	return nil
}
