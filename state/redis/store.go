// Package redis keeps agent state in Redis, one JSON-encoded string per key.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JovanVeljanoski/ateam/state"
	rds "github.com/redis/go-redis/v9"
)

// Store is a state.Backend over Redis. Keys are written as
// "<prefix>:<key>"; values come back as JSON-decoded Go values
// (map[string]any, []any, float64, string, bool or nil).
type Store struct {
	client rds.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewStore returns a store writing under prefix. A zero ttl keeps keys
// until they are deleted.
func NewStore(client rds.UniversalClient, ttl time.Duration, prefix string) *Store {
	return &Store{client: client, ttl: ttl, prefix: prefix}
}

// Namespace returns a store sharing the client whose keys live under
// "<prefix>:<ns>". Each agent gets its own namespace.
func (s *Store) Namespace(ns string) *Store {
	return &Store{client: s.client, ttl: s.ttl, prefix: joinKey(s.prefix, ns)}
}

func joinKey(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + ":" + k
}

func (s *Store) key(k string) string { return joinKey(s.prefix, k) }

func (s *Store) pattern() string {
	if s.prefix == "" {
		return "*"
	}
	return s.prefix + ":*"
}

func (s *Store) Store(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redis: encode %q: %w", key, err)
	}
	return s.client.Set(ctx, s.key(key), b, s.ttl).Err()
}

func (s *Store) Retrieve(ctx context.Context, key string) (any, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, rds.Nil) {
			return nil, state.ErrNotFound
		}
		return nil, err
	}
	var out any
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, fmt.Errorf("redis: decode %q: %w", key, err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// List scans the prefix and returns keys with the prefix stripped.
func (s *Store) List(ctx context.Context) ([]string, error) {
	full, err := s.scan(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(full))
	for _, k := range full {
		if s.prefix != "" {
			k = strings.TrimPrefix(k, s.prefix+":")
		}
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) scan(ctx context.Context) ([]string, error) {
	var cursor uint64
	keys := []string{}
	for {
		ks, cur, err := s.client.Scan(ctx, cursor, s.pattern(), 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, ks...)
		if cur == 0 {
			break
		}
		cursor = cur
	}
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.scan(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

var _ state.Backend = (*Store)(nil)
