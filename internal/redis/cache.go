package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Cache stores product ID lists in Redis. Groups are versioned: invalidating a
// group bumps its generation counter so older keys are never read again and
// simply age out by TTL.
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a Redis-backed cache. An empty prefix defaults to "recs".
func NewCache(client *Client, prefix string) *Cache {
	if prefix == "" {
		prefix = "recs"
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) Get(ctx context.Context, group, key string) ([]int64, bool) {
	gen, err := c.generation(ctx, group)
	if err != nil {
		c.client.logger.Warn("cache generation read failed", "group", group, "error", err)
		return nil, false
	}

	raw, err := c.client.rdb.Get(ctx, c.entryKey(group, gen, key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.client.logger.Warn("cache get failed", "group", group, "key", key, "error", err)
		}
		return nil, false
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		c.client.logger.Warn("cache entry corrupt", "group", group, "key", key, "error", err)
		return nil, false
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, true
}

func (c *Cache) Set(ctx context.Context, group, key string, ids []int64, ttl time.Duration) {
	gen, err := c.generation(ctx, group)
	if err != nil {
		c.client.logger.Warn("cache generation read failed", "group", group, "error", err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.rdb.Set(ctx, c.entryKey(group, gen, key), raw, ttl).Err(); err != nil {
		c.client.logger.Warn("cache set failed", "group", group, "key", key, "error", err)
	}
}

func (c *Cache) InvalidateGroup(ctx context.Context, group string) {
	if err := c.client.rdb.Incr(ctx, c.genKey(group)).Err(); err != nil {
		c.client.logger.Error("cache invalidation failed", "group", group, "error", err)
	}
}

func (c *Cache) generation(ctx context.Context, group string) (int64, error) {
	gen, err := c.client.rdb.Get(ctx, c.genKey(group)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *Cache) genKey(group string) string {
	return c.prefix + ":" + group + ":gen"
}

func (c *Cache) entryKey(group string, gen int64, key string) string {
	return c.prefix + ":" + group + ":" + strconv.FormatInt(gen, 10) + ":" + key
}
