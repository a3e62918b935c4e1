// Package rediscache is a go-redis/v9-backed eventsource.Cache: a plain
// GET/SET against the snapshot's ModelKey, with no TTL — grounded on
// horfimbor-eventsource's cache_db/redis.rs StateDb (get_connection, GET,
// SET, key.format() as the Redis key), translated to the go-redis client.
package rediscache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"go-eventsource/pkg/eventsource"
)

// Cache wraps a go-redis client as an eventsource.Cache.
type Cache struct {
	client *redis.Client
	prefix string
}

// New wraps client. prefix, if non-empty, namespaces every key (useful
// when several repositories share one Redis instance).
func New(client *redis.Client, prefix string) *Cache {
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) redisKey(key eventsource.ModelKey) string {
	if c.prefix == "" {
		return key.Format()
	}
	return c.prefix + ":" + key.Format()
}

func (c *Cache) Get(ctx context.Context, key eventsource.ModelKey) ([]byte, bool, error) {
	blob, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eventsource.WrapCacheFailed("Get", err)
	}
	return blob, true, nil
}

func (c *Cache) Set(ctx context.Context, key eventsource.ModelKey, blob []byte) error {
	if err := c.client.Set(ctx, c.redisKey(key), blob, 0).Err(); err != nil {
		return eventsource.WrapCacheFailed("Set", err)
	}
	return nil
}
