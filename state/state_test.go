package state

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
)

type jsonBackend struct{ *Memory }

// Retrieve returns JSON-shaped values the way the redis and postgres
// backends do.
func (b jsonBackend) Retrieve(ctx context.Context, key string) (any, error) {
	v, err := b.Memory.Retrieve(ctx, key)
	if err != nil {
		return nil, err
	}
	if p, ok := v.(point); ok {
		return map[string]any{"x": float64(p.X), "y": float64(p.Y)}, nil
	}
	return v, nil
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RunBackendContract exercises the Backend behaviour every implementation
// must share.
func runBackendContract(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()

	if err := b.Store(ctx, "k1", "v1"); err != nil {
		t.Fatalf("store: %v", err)
	}
	v, err := b.Retrieve(ctx, "k1")
	if err != nil || v != "v1" {
		t.Fatalf("retrieve: %v %v", v, err)
	}
	keys, err := b.List(ctx)
	if err != nil || len(keys) != 1 || keys[0] != "k1" {
		t.Fatalf("list: %v %v", keys, err)
	}
	if err := b.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := b.Retrieve(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_ = b.Store(ctx, "k2", 1)
	if err := b.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if keys, _ := b.List(ctx); len(keys) != 0 {
		t.Fatalf("expected empty after clear, got %v", keys)
	}
}

func TestMemoryBackendContract(t *testing.T) {
	runBackendContract(t, NewMemory())
}

func TestSharedSetGet(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.Set(ctx, "", 1); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := s.GetOr(ctx, "missing", "fallback"); got != "fallback" {
		t.Fatalf("GetOr = %v", got)
	}

	_ = s.Set(ctx, "count", 1)
	_ = s.Set(ctx, "count", 2)
	if got := s.GetOr(ctx, "count", 0); got != 2 {
		t.Fatalf("count = %v", got)
	}
	if !s.Has(ctx, "count") {
		t.Fatalf("Has should report true")
	}
}

func TestSharedStoresReferences(t *testing.T) {
	ctx := context.Background()
	s := New()
	notes := map[string]string{"a": "1"}
	_ = s.Set(ctx, "notes", notes)
	notes["b"] = "2"

	var got map[string]string
	if err := s.Decode(ctx, "notes", &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["b"] != "2" {
		t.Fatalf("in-memory state should hold the same map, got %v", got)
	}
}

func TestSharedDecodeThroughJSON(t *testing.T) {
	ctx := context.Background()
	s := NewWithBackend(jsonBackend{NewMemory()})
	_ = s.Set(ctx, "pos", point{X: 3, Y: 4})

	var p point
	if err := s.Decode(ctx, "pos", &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p != (point{X: 3, Y: 4}) {
		t.Fatalf("decoded %+v", p)
	}
	if err := s.Decode(ctx, "pos", p); err == nil {
		t.Fatalf("expected error for non-pointer")
	}
}

func TestSharedDump(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.Set(ctx, "b", 2)
	_ = s.Set(ctx, "a", "x")

	var buf bytes.Buffer
	if err := s.Dump(ctx, &buf); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if buf.String() != "a: x\nb: 2\n" {
		t.Fatalf("dump = %q", buf.String())
	}

	_ = s.Delete(ctx, "a")
	keys, _ := s.Keys(ctx)
	if len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("keys = %v", keys)
	}
	_ = s.Clear(ctx)
	snap, _ := s.Snapshot(ctx)
	if len(snap) != 0 {
		t.Fatalf("snapshot after clear = %v", snap)
	}
}

func TestSharedConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Set(ctx, "k"+string(rune('a'+i%26)), i)
		}(i)
	}
	wg.Wait()
	keys, _ := s.Keys(ctx)
	if len(keys) != 26 {
		t.Fatalf("expected 26 keys, got %d", len(keys))
	}
}
