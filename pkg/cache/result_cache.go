package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/lineup-engine/internal/optimizer"
	"github.com/stitts-dev/lineup-engine/internal/simulator"
)

// ResultCache stores optimization and simulation results in Redis so
// repeated requests over the same slate are served without a re-solve.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Entry
}

// NewResultCache connects to Redis and verifies the connection.
func NewResultCache(redisURL string, ttl time.Duration, logger *logrus.Entry) (*ResultCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &ResultCache{client: client, ttl: ttl, logger: logger}, nil
}

// RequestKey derives a stable cache key from any JSON-serializable
// request payload.
func RequestKey(payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key payload: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// SetOptimization stores a batch result under the request key.
func (c *ResultCache) SetOptimization(ctx context.Context, key string, result *optimizer.BatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal optimization result: %w", err)
	}
	fullKey := fmt.Sprintf("optimization:%s", key)
	if err := c.client.Set(ctx, fullKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache optimization result: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"cache_key": fullKey,
		"lineups":   len(result.Lineups),
	}).Debug("Cached optimization result")
	return nil
}

// GetOptimization retrieves a cached batch result. The bool reports a
// cache hit; errors are reserved for transport or decode failures.
func (c *ResultCache) GetOptimization(ctx context.Context, key string) (*optimizer.BatchResult, bool, error) {
	fullKey := fmt.Sprintf("optimization:%s", key)
	data, err := c.client.Get(ctx, fullKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read optimization result from cache: %w", err)
	}

	var result optimizer.BatchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal optimization result: %w", err)
	}
	c.logger.WithField("cache_key", fullKey).Debug("Optimization cache hit")
	return &result, true, nil
}

// SetSimulation stores a simulation run result under the request key.
func (c *ResultCache) SetSimulation(ctx context.Context, key string, result *simulator.RunResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal simulation result: %w", err)
	}
	fullKey := fmt.Sprintf("simulation:%s", key)
	if err := c.client.Set(ctx, fullKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache simulation result: %w", err)
	}
	c.logger.WithFields(logrus.Fields{
		"cache_key": fullKey,
		"trials":    result.TrialsRun,
	}).Debug("Cached simulation result")
	return nil
}

// GetSimulation retrieves a cached simulation result.
func (c *ResultCache) GetSimulation(ctx context.Context, key string) (*simulator.RunResult, bool, error) {
	fullKey := fmt.Sprintf("simulation:%s", key)
	data, err := c.client.Get(ctx, fullKey).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read simulation result from cache: %w", err)
	}

	var result simulator.RunResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal simulation result: %w", err)
	}
	c.logger.WithField("cache_key", fullKey).Debug("Simulation cache hit")
	return &result, true, nil
}

// Close releases the Redis connection.
func (c *ResultCache) Close() error {
	return c.client.Close()
}

// Healthy pings Redis, used by readiness checks.
func (c *ResultCache) Healthy(ctx context.Context) bool {
	return c.client.Ping(ctx).Err() == nil
}
