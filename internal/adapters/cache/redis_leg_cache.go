package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ride-pool-service/internal/ports"
)

const redisKeyPrefix = "legcache:"

// RedisLegCache stores leg estimates in Redis with a TTL, for deployments
// that share one cache across several optimizer instances.
type RedisLegCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisLegCache(client *redis.Client, ttl time.Duration) *RedisLegCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisLegCache{Client: client, TTL: ttl}
}

// Fetch cached estimates for the given leg keys.
func (r *RedisLegCache) GetMany(ctx context.Context, keys []string) (map[string]ports.RouteEstimate, error) {
	if r.Client == nil {
		return nil, errors.New("leg cache: redis client is nil")
	}

	uniq := dedupeKeys(keys)
	if len(uniq) == 0 {
		return map[string]ports.RouteEstimate{}, nil
	}

	redisKeys := make([]string, len(uniq))
	for i, k := range uniq {
		redisKeys[i] = redisKeyPrefix + k
	}

	values, err := r.Client.MGet(ctx, redisKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("get leg cache: redis mget: %w", err)
	}

	out := make(map[string]ports.RouteEstimate, len(uniq))
	for i, v := range values {
		if v == nil {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var est ports.RouteEstimate
		if err := json.Unmarshal([]byte(raw), &est); err != nil {
			// Treat corrupt entries as misses; they get overwritten on the
			// next PutMany.
			continue
		}
		out[uniq[i]] = est
	}

	return out, nil
}

// Store many leg estimates.
func (r *RedisLegCache) PutMany(ctx context.Context, legs map[string]ports.RouteEstimate) error {
	if r.Client == nil {
		return errors.New("leg cache: redis client is nil")
	}
	if len(legs) == 0 {
		return nil
	}

	pipe := r.Client.Pipeline()
	for key, est := range legs {
		payload, err := json.Marshal(est)
		if err != nil {
			return fmt.Errorf("insert leg cache key=%q: marshal: %w", key, err)
		}
		pipe.Set(ctx, redisKeyPrefix+key, payload, r.TTL)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("insert leg cache: redis pipeline: %w", err)
	}

	return nil
}
