// Package statestore keeps small per-user state objects, in memory or in Redis.
package statestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxTxRetries = 5

// Store holds one T per key. Get returns the zero value for a missing key.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, error)
	Update(ctx context.Context, key string, fn func(*T) error) (T, error)
	Delete(ctx context.Context, key string) error
}

// ========================
// memory
// ========================

type memoryStore[T any] struct {
	mu    sync.Mutex
	items map[string]T
}

func NewMemory[T any]() Store[T] {
	return &memoryStore[T]{items: make(map[string]T)}
}

func (s *memoryStore[T]) Get(_ context.Context, key string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[key], nil
}

func (s *memoryStore[T]) Update(_ context.Context, key string, fn func(*T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.items[key]
	if err := fn(&v); err != nil {
		var zero T
		return zero, err
	}
	s.items[key] = v
	return v, nil
}

func (s *memoryStore[T]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// ========================
// redis
// ========================

type redisStore[T any] struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis stores JSON under prefix+key. Every write refreshes ttl.
func NewRedis[T any](rdb *redis.Client, prefix string, ttl time.Duration) Store[T] {
	return &redisStore[T]{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *redisStore[T]) key(k string) string {
	return s.prefix + k
}

func (s *redisStore[T]) Get(ctx context.Context, key string) (T, error) {
	var v T
	raw, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode state %s: %w", key, err)
	}
	return v, nil
}

// Update is an optimistic WATCH/MULTI transaction; concurrent writers retry.
func (s *redisStore[T]) Update(ctx context.Context, key string, fn func(*T) error) (T, error) {
	k := s.key(key)
	var out T

	txf := func(tx *redis.Tx) error {
		var v T
		raw, err := tx.Get(ctx, k).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("decode state %s: %w", key, err)
			}
		}

		if err := fn(&v); err != nil {
			return err
		}

		body, err := json.Marshal(v)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, body, s.ttl)
			return nil
		})
		if err == nil {
			out = v
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			var zero T
			return zero, err
		}
		return out, nil
	}

	var zero T
	return zero, fmt.Errorf("update state %s: too much contention", key)
}

func (s *redisStore[T]) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}
