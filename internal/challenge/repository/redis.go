package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"otp-ceremony/backend/internal/challenge/domain"
)

// RedisRepository stores one JSON-encoded record per (subject, kind) key with a Redis TTL.
// SET with PX is atomic per key, so concurrent issuance is last-writer-wins.
type RedisRepository struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisRepository returns a challenge store on the given client. prefix defaults to "otpc".
func NewRedisRepository(client redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "otpc"
	}
	return &RedisRepository{redis: client, prefix: prefix}
}

func (r *RedisRepository) key(k domain.Key) string {
	return r.prefix + ":" + string(k.Kind) + ":" + k.Subject
}

// Get returns the record for key, or nil if Redis has no such key.
func (r *RedisRepository) Get(ctx context.Context, key domain.Key) (*domain.Record, error) {
	data, err := r.redis.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	var rec domain.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	return &rec, nil
}

// Put upserts rec with the given TTL.
func (r *RedisRepository) Put(ctx context.Context, rec *domain.Record, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("challenge store: non-positive ttl %v", ttl)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := r.redis.Set(ctx, r.key(rec.Key()), data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Delete removes the record for key.
func (r *RedisRepository) Delete(ctx context.Context, key domain.Key) error {
	if err := r.redis.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks the Redis connection.
func (r *RedisRepository) Ping(ctx context.Context) error {
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
