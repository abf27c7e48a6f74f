package overlay

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 7 * 24 * time.Hour

type RedisKV struct {
	client  *redis.Client
	baseTTL time.Duration
}

var _ KV = (*RedisKV)(nil)

func NewRedisKV(client *redis.Client, ttl time.Duration) *RedisKV {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisKV{client: client, baseTTL: ttl}
}

func (r *RedisKV) Get(ctx context.Context, key Key) ([]byte, error) {
	data, err := r.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisKV) Set(ctx context.Context, key Key, value []byte) error {
	jitter := time.Duration(rand.Intn(60)) * time.Minute
	if err := r.client.Set(ctx, key.String(), value, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, key Key) error {
	if err := r.client.Del(ctx, key.String()).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisKV) Take(ctx context.Context, key Key) ([]byte, error) {
	data, err := r.client.GetDel(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis getdel failed: %w", err)
	}
	return data, nil
}
