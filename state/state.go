// Package state holds the key-value store an agent shares with its tools.
//
// Every tool invocation of an agent receives the same *Shared by reference,
// so a value written by one tool is visible to the next. Values live in a
// Backend; the default is process memory, with Redis and Postgres backends
// under state/redis and state/postgres for state that must outlive the
// process or be inspected from outside it.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"sort"
)

var (
	// ErrNotFound is returned by Get and Backend.Retrieve for missing keys.
	ErrNotFound = errors.New("state: key not found")
	// ErrInvalidKey is returned for the empty key.
	ErrInvalidKey = errors.New("state: key must be a non-empty string")
)

// Backend stores state values. Implementations must be safe for
// concurrent use.
type Backend interface {
	Store(ctx context.Context, key string, value any) error
	Retrieve(ctx context.Context, key string) (any, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}

// Shared is the mutable state handed to every tool call of one agent.
type Shared struct {
	backend Backend
}

// New returns state backed by process memory.
func New() *Shared {
	return &Shared{backend: NewMemory()}
}

// NewWithBackend returns state stored in b.
func NewWithBackend(b Backend) *Shared {
	if b == nil {
		b = NewMemory()
	}
	return &Shared{backend: b}
}

// Backend exposes the underlying store.
func (s *Shared) Backend() Backend { return s.backend }

// Set stores value under key, replacing any previous value.
func (s *Shared) Set(ctx context.Context, key string, value any) error {
	if key == "" {
		return ErrInvalidKey
	}
	if err := s.backend.Store(ctx, key, value); err != nil {
		return fmt.Errorf("state: set %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key or ErrNotFound.
func (s *Shared) Get(ctx context.Context, key string) (any, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}
	return s.backend.Retrieve(ctx, key)
}

// GetOr returns the value under key, or def when the key is absent or the
// backend fails.
func (s *Shared) GetOr(ctx context.Context, key string, def any) any {
	v, err := s.Get(ctx, key)
	if err != nil {
		return def
	}
	return v
}

// Has reports whether key is present.
func (s *Shared) Has(ctx context.Context, key string) bool {
	_, err := s.Get(ctx, key)
	return err == nil
}

// Decode loads the value under key into out, which must be a non-nil
// pointer. Values of the exact type are assigned directly; anything else
// (for example maps read back from a JSON backend) goes through JSON.
func (s *Shared) Decode(ctx context.Context, key string, out any) error {
	v, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("state: decode %q: out must be a non-nil pointer", key)
	}
	if v != nil {
		if val := reflect.ValueOf(v); val.Type().AssignableTo(rv.Elem().Type()) {
			rv.Elem().Set(val)
			return nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: decode %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("state: decode %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Shared) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	return s.backend.Delete(ctx, key)
}

// Keys returns all keys in sorted order.
func (s *Shared) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every key.
func (s *Shared) Clear(ctx context.Context) error {
	return s.backend.Clear(ctx)
}

// Snapshot copies the whole state into a map.
func (s *Shared) Snapshot(ctx context.Context) (map[string]any, error) {
	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := s.backend.Retrieve(ctx, k)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

// Dump writes one "key: value" line per entry, sorted by key.
func (s *Shared) Dump(ctx context.Context, w io.Writer) error {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s: %v\n", k, snap[k]); err != nil {
			return err
		}
	}
	return nil
}
