// Package postgres keeps agent state in a Postgres jsonb table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/JovanVeljanoski/ateam/state"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgx.Conn and *pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DefaultTable is used when New is given an empty table name.
const DefaultTable = "ateam_state"

var tableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

// Store is a state.Backend over one namespace of a table shaped like:
//
//	CREATE TABLE ateam_state (
//	  namespace  text NOT NULL,
//	  key        text NOT NULL,
//	  value      jsonb NOT NULL,
//	  updated_at timestamptz NOT NULL DEFAULT now(),
//	  PRIMARY KEY (namespace, key)
//	);
type Store struct {
	db        DB
	table     string
	namespace string
}

// New returns a store over table. The table name is interpolated into SQL
// and must be a plain identifier.
func New(db DB, table, namespace string) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("postgres: invalid table name %q", table)
	}
	return &Store{db: db, table: table, namespace: namespace}, nil
}

// Namespace returns a store over the same table scoped to ns.
func (s *Store) Namespace(ns string) *Store {
	return &Store{db: s.db, table: s.table, namespace: ns}
}

// EnsureSchema creates the table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
  namespace text NOT NULL,
  key text NOT NULL,
  value jsonb NOT NULL,
  updated_at timestamptz NOT NULL DEFAULT now(),
  PRIMARY KEY (namespace, key)
)`, s.table))
	return err
}

func (s *Store) Store(ctx context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("postgres: encode %q: %w", key, err)
	}
	_, err = s.db.Exec(ctx, fmt.Sprintf(
		"INSERT INTO %s (namespace, key, value) VALUES ($1,$2,$3::jsonb) ON CONFLICT (namespace, key) DO UPDATE SET value=excluded.value, updated_at=now()",
		s.table), s.namespace, key, string(b))
	return err
}

func (s *Store) Retrieve(ctx context.Context, key string) (any, error) {
	row := s.db.QueryRow(ctx, fmt.Sprintf("SELECT value FROM %s WHERE namespace=$1 AND key=$2", s.table), s.namespace, key)
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, state.ErrNotFound
		}
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("postgres: decode %q: %w", key, err)
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE namespace=$1 AND key=$2", s.table), s.namespace, key)
	return err
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf("SELECT key FROM %s WHERE namespace=$1 ORDER BY key", s.table), s.namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE namespace=$1", s.table), s.namespace)
	return err
}

var _ state.Backend = (*Store)(nil)
