package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"leafscan/internal/models"
)

const planKeyPrefix = "remedy:plan:"

type RedisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPlanCache connects to redisURL and checks the connection.
func NewRedisPlanCache(ctx context.Context, redisURL string, ttl time.Duration) (*RedisPlanCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisPlanCache(client, ttl), nil
}

func newRedisPlanCache(client *redis.Client, ttl time.Duration) *RedisPlanCache {
	return &RedisPlanCache{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisPlanCache) Close() error {
	return r.client.Close()
}

func (r *RedisPlanCache) SetPlan(ctx context.Context, key string, plan *models.RemedyPlan) error {
	jsonData, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}

	if err := r.client.Set(ctx, planKeyPrefix+key, jsonData, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store plan in Redis: %w", err)
	}
	return nil
}

func (r *RedisPlanCache) GetPlan(ctx context.Context, key string) (*models.RemedyPlan, bool, error) {
	data, err := r.client.Get(ctx, planKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get plan from Redis: %w", err)
	}

	var plan models.RemedyPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal plan: %w", err)
	}
	return &plan, true, nil
}

// Status is reported by the health endpoint.
func (r *RedisPlanCache) Status(ctx context.Context) map[string]interface{} {
	stats := r.client.PoolStats()
	status := map[string]interface{}{
		"backend":      "redis",
		"connected":    r.client.Ping(ctx).Err() == nil,
		"hits":         stats.Hits,
		"misses":       stats.Misses,
		"active_conns": stats.TotalConns,
	}
	return status
}

func (r *RedisPlanCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
