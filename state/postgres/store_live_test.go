//go:build adapters_postgres

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/JovanVeljanoski/ateam/state"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func makePostgresStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := New(pool, "", uuid.NewString())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	t.Cleanup(func() { _ = s.Clear(context.Background()) })
	return s
}

func TestStoreContract_Postgres(t *testing.T) {
	ctx := context.Background()
	s := makePostgresStore(t)

	if err := s.Store(ctx, "k1", []string{"a", "b"}); err != nil {
		t.Fatalf("store: %v", err)
	}
	if err := s.Store(ctx, "k1", "v1"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	v, err := s.Retrieve(ctx, "k1")
	if err != nil || v != "v1" {
		t.Fatalf("retrieve: %v %v", v, err)
	}
	keys, err := s.List(ctx)
	if err != nil || len(keys) != 1 {
		t.Fatalf("list: %v %v", keys, err)
	}
	if err := s.Delete(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Retrieve(ctx, "k1"); !errors.Is(err, state.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
