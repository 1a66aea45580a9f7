package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/wildlife-watchdog/internal/analytics"
)

// ResultCache stores analysis results per generation, scope and day. Callers
// read the generation before loading records and use it for both Get and Set,
// so a result computed from records older than the last Invalidate is stored
// under a generation nobody reads anymore.
type ResultCache interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, gen int64, scope string, asOf time.Time) (*analytics.AnalysisResult, bool, error)
	Set(ctx context.Context, gen int64, scope string, asOf time.Time, result *analytics.AnalysisResult) error
	// Invalidate drops every cached result
	Invalidate(ctx context.Context) error
}

const generationKey = "wildlife:analysis:generation"

// RedisResultCache keeps analysis results in redis. Keys embed a generation
// counter, so invalidation is a single INCR and stale keys expire on their own.
type RedisResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisResultCache creates a redis backed result cache
func NewRedisResultCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisResultCache {
	return &RedisResultCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Generation returns the current cache generation
func (c *RedisResultCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func resultKey(gen int64, scope string, asOf time.Time) string {
	return fmt.Sprintf("wildlife:analysis:%d:%s:%s", gen, scope, asOf.UTC().Format("2006-01-02"))
}

// Get returns the result cached under gen for scope on the day of asOf
func (c *RedisResultCache) Get(ctx context.Context, gen int64, scope string, asOf time.Time) (*analytics.AnalysisResult, bool, error) {
	data, err := c.client.Get(ctx, resultKey(gen, scope, asOf)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached analysis: %w", err)
	}

	var result analytics.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		// unreadable entries are treated as a miss and overwritten
		c.logger.Warn("Discarding corrupt cached analysis", zap.String("scope", scope), zap.Error(err))
		return nil, false, nil
	}
	return &result, true, nil
}

// Set caches result under gen for scope on the day of asOf
func (c *RedisResultCache) Set(ctx context.Context, gen int64, scope string, asOf time.Time, result *analytics.AnalysisResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal analysis: %w", err)
	}
	if err := c.client.Set(ctx, resultKey(gen, scope, asOf), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache analysis: %w", err)
	}
	return nil
}

// Invalidate bumps the generation counter
func (c *RedisResultCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		return fmt.Errorf("failed to invalidate analysis cache: %w", err)
	}
	return nil
}
