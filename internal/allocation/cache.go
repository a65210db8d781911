package allocation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 30 * time.Minute

// AllocationCache keeps recently committed allocations close to the API.
type AllocationCache interface {
	Get(ctx context.Context, allocationID string) (*Allocation, error)
	Set(ctx context.Context, alloc Allocation) error
}

// Cache is the Redis-backed AllocationCache.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ AllocationCache = (*Cache)(nil)

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) key(allocationID string) string {
	return "allocation:" + allocationID
}

// Get returns nil, nil on a miss.
func (c *Cache) Get(ctx context.Context, allocationID string) (*Allocation, error) {
	data, err := c.client.Get(ctx, c.key(allocationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var alloc Allocation
	if err := json.Unmarshal(data, &alloc); err != nil {
		return nil, err
	}
	return &alloc, nil
}

func (c *Cache) Set(ctx context.Context, alloc Allocation) error {
	data, err := json.Marshal(alloc)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(alloc.ID), data, c.ttl).Err()
}
