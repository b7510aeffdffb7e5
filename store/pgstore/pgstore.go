// Package pgstore implements store.Store on PostgreSQL via pgx/v5.
//
// Entries live in one table with a text key and a JSONB value:
//
//	CREATE TABLE IF NOT EXISTS <table> (
//	    key        TEXT PRIMARY KEY,
//	    value      JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	)
//
// Save is an upsert, so the last writer wins.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/tiercache/store"
)

// DefaultTable is used when Options.Table is empty.
const DefaultTable = "tiercache_entries"

// Options configures a Store.
type Options[K comparable] struct {
	// Table name; DefaultTable when empty. Quoted as an identifier.
	Table string
	// KeyFunc renders a key as text; fmt.Sprint when nil.
	KeyFunc func(K) string
	Logger  *zap.Logger
}

// Store is a PostgreSQL-backed store.Store. The pool is owned by the caller.
type Store[K comparable, V any] struct {
	pool  *pgxpool.Pool
	table string
	key   func(K) string
	log   *zap.Logger

	qLoad, qSave, qDelete, qSchema string
}

var _ store.Store[string, int] = (*Store[string, int])(nil)

// New returns a Store using pool.
func New[K comparable, V any](pool *pgxpool.Pool, opt Options[K]) (*Store[K, V], error) {
	if pool == nil {
		return nil, errors.New("pgstore: nil pool")
	}
	if opt.Table == "" {
		opt.Table = DefaultTable
	}
	if opt.KeyFunc == nil {
		opt.KeyFunc = func(k K) string { return fmt.Sprint(k) }
	}
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	tbl := pgx.Identifier{opt.Table}.Sanitize()
	return &Store[K, V]{
		pool:  pool,
		table: opt.Table,
		key:   opt.KeyFunc,
		log:   opt.Logger.Named("pgstore"),

		qLoad: `SELECT value FROM ` + tbl + ` WHERE key = $1`,
		qSave: `INSERT INTO ` + tbl + ` (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		qDelete: `DELETE FROM ` + tbl + ` WHERE key = $1`,
		qSchema: `CREATE TABLE IF NOT EXISTS ` + tbl + ` (
    key        TEXT PRIMARY KEY,
    value      JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	}, nil
}

// EnsureSchema creates the entries table when missing.
func (s *Store[K, V]) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, s.qSchema); err != nil {
		return fmt.Errorf("pgstore: create table %s: %w", s.table, err)
	}
	return nil
}

// Load returns the decoded value for k or store.ErrNotFound.
func (s *Store[K, V]) Load(ctx context.Context, k K) (V, error) {
	var zero V
	var raw []byte
	if err := s.pool.QueryRow(ctx, s.qLoad, s.key(k)).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, store.ErrNotFound
		}
		return zero, fmt.Errorf("pgstore: load %q: %w", s.key(k), err)
	}
	var v V
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("pgstore: decode %q: %w", s.key(k), err)
	}
	return v, nil
}

// Save upserts k→v.
func (s *Store[K, V]) Save(ctx context.Context, k K, v V) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("pgstore: encode %q: %w", s.key(k), err)
	}
	if _, err := s.pool.Exec(ctx, s.qSave, s.key(k), raw); err != nil {
		return fmt.Errorf("pgstore: save %q: %w", s.key(k), err)
	}
	s.log.Debug("saved", zap.String("key", s.key(k)))
	return nil
}

// Delete removes k; deleting a missing key is not an error.
func (s *Store[K, V]) Delete(ctx context.Context, k K) error {
	if _, err := s.pool.Exec(ctx, s.qDelete, s.key(k)); err != nil {
		return fmt.Errorf("pgstore: delete %q: %w", s.key(k), err)
	}
	return nil
}
