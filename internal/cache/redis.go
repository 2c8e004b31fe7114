package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultRedisPrefix = "paradel:cache:"
	redisScanBatch     = 500
)

// RedisBin stores entries under <prefix><bin>:k:<key>. Tags are kept as sets
// under <prefix><bin>:t:<tag> so they go away with DeleteAll and can never
// share a key with an entry.
type RedisBin struct {
	name   string
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisBin(name string, client redis.UniversalClient, prefix string, ttl time.Duration) (*RedisBin, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisBin{name: name, client: client, prefix: prefix + name + ":", ttl: ttl}, nil
}

func (b *RedisBin) Name() string { return b.name }

func (b *RedisBin) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (b *RedisBin) Set(ctx context.Context, key string, value []byte, tags []string) error {
	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.key(key), value, b.ttl)
	for _, t := range tags {
		pipe.SAdd(ctx, b.tagKey(t), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (b *RedisBin) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, b.key(key)).Err()
}

// DeleteAll removes every key under the bin prefix and nothing else.
func (b *RedisBin) DeleteAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, b.prefix+"*", redisScanBatch).Result()
		if err != nil {
			return fmt.Errorf("redis scan %s: %w", b.name, err)
		}
		if len(keys) > 0 {
			if err := b.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del %s: %w", b.name, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (b *RedisBin) InvalidateTags(ctx context.Context, tags ...string) error {
	for _, t := range tags {
		members, err := b.client.SMembers(ctx, b.tagKey(t)).Result()
		if err != nil {
			return fmt.Errorf("redis tag %s: %w", t, err)
		}
		keys := make([]string, 0, len(members)+1)
		for _, m := range members {
			keys = append(keys, b.key(m))
		}
		keys = append(keys, b.tagKey(t))
		if err := b.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis invalidate %s: %w", t, err)
		}
	}
	return nil
}

func (b *RedisBin) key(k string) string {
	return b.prefix + "k:" + k
}

func (b *RedisBin) tagKey(tag string) string {
	return b.prefix + "t:" + tag
}
