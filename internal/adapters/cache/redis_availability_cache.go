package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"carpark-data-service/internal/platform/obs"
	"carpark-data-service/internal/ports"
)

// snapshotKey is versioned so a wire-format change invalidates old entries
// instead of failing to decode them forever.
const snapshotKey = "carpark:availability:v1"

// RedisAvailabilityCache stores the latest availability snapshot as a single
// JSON blob with a TTL. A missing or undecodable entry is a cache miss, not
// an error; the next Put overwrites it.
type RedisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAvailabilityCache(client *redis.Client, ttl time.Duration) *RedisAvailabilityCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisAvailabilityCache{client: client, ttl: ttl}
}

func (c *RedisAvailabilityCache) Get(ctx context.Context) (_ *ports.AvailabilitySnapshot, _ bool, err error) {
	defer obs.Time(ctx, "availability.cache.Get")(&err)

	if c.client == nil {
		return nil, false, errors.New("availability cache: client is nil")
	}

	payload, err := c.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get availability cache: %w", err)
	}

	var snap ports.AvailabilitySnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, false, nil
	}

	return &snap, true, nil
}

func (c *RedisAvailabilityCache) Put(ctx context.Context, snap *ports.AvailabilitySnapshot) (err error) {
	defer obs.Time(ctx, "availability.cache.Put")(&err)

	if c.client == nil {
		return errors.New("availability cache: client is nil")
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("put availability cache: marshal snapshot: %w", err)
	}

	if err := c.client.Set(ctx, snapshotKey, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("put availability cache: %w", err)
	}

	return nil
}
