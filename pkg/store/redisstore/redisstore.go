// Package redisstore backs the store contract with Redis. Values live in one
// hash, index membership in one set per index value, so FindByIndex is a set
// lookup rather than a scan.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inkmark/inkmark/pkg/store"
)

const connectTimeout = 5 * time.Second

// Store implements store.Store on a Redis client.
type Store struct {
	client *redis.Client
	prefix string
}

var _ store.Store = (*Store)(nil)

// New connects to redisURL and verifies the connection with a ping.
func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewWithClient(client), nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{
		client: client,
		prefix: "inkmark:",
	}
}

func (s *Store) valuesKey() string  { return s.prefix + "records" }
func (s *Store) indexesKey() string { return s.prefix + "indexes" }

func (s *Store) indexSetKey(index string) string {
	return s.prefix + "idx:" + index
}

func (s *Store) Put(ctx context.Context, key string, value []byte, index string) error {
	if s.client == nil {
		return store.ErrNotInitialized
	}

	// Drop stale index membership before re-pointing the record.
	old, err := s.client.HGet(ctx, s.indexesKey(), key).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read old index for %q: %w", key, err)
	}
	if err == nil && old != index {
		if err := s.client.SRem(ctx, s.indexSetKey(old), key).Err(); err != nil {
			return fmt.Errorf("unindex %q: %w", key, err)
		}
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.valuesKey(), key, value)
	if index == "" {
		pipe.HDel(ctx, s.indexesKey(), key)
	} else {
		pipe.HSet(ctx, s.indexesKey(), key, index)
		pipe.SAdd(ctx, s.indexSetKey(index), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.client == nil {
		return nil, store.ErrNotInitialized
	}

	value, err := s.client.HGet(ctx, s.valuesKey(), key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("get %q: %w", key, store.ErrKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) GetAll(ctx context.Context) (map[string][]byte, error) {
	if s.client == nil {
		return nil, store.ErrNotInitialized
	}

	raw, err := s.client.HGetAll(ctx, s.valuesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("get all records: %w", err)
	}

	out := make(map[string][]byte, len(raw))
	for k, v := range raw {
		out[k] = []byte(v)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s.client == nil {
		return store.ErrNotInitialized
	}

	index, err := s.client.HGet(ctx, s.indexesKey(), key).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("read index for %q: %w", key, err)
	}

	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, s.valuesKey(), key)
	pipe.HDel(ctx, s.indexesKey(), key)
	if index != "" {
		pipe.SRem(ctx, s.indexSetKey(index), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) FindByIndex(ctx context.Context, index string) (map[string][]byte, error) {
	if s.client == nil {
		return nil, store.ErrNotInitialized
	}

	keys, err := s.client.SMembers(ctx, s.indexSetKey(index)).Result()
	if err != nil {
		return nil, fmt.Errorf("find by index %q: %w", index, err)
	}

	out := make(map[string][]byte, len(keys))
	for _, key := range keys {
		value, err := s.client.HGet(ctx, s.valuesKey(), key).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find by index %q: %w", index, err)
		}
		out[key] = value
	}
	return out, nil
}

// Ping reports whether Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return store.ErrNotInitialized
	}
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
