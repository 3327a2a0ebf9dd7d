// Package store is the persistent core of locvault: an SQLite-backed local
// store for uploaded location-history datasets ("originals"), derived
// filtered slices of them ("subsets"), and a flat key-value bookkeeping
// table. It owns referential cleanup between the two collections (atomic
// cascading delete), content-integrity hashing verified on every load, and
// a versioned schema.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"locvault/internal/logging"
	"locvault/internal/timeline"
)

// Options tunes store behavior.
type Options struct {
	// ValidateSubsetParent makes SaveSubset fail with ErrNotFound when
	// the referenced original does not exist. The default relaxed mode
	// matches callers that have just created or loaded the original.
	ValidateSubsetParent bool

	// BusyTimeout is the SQLite busy timeout. Zero means 5s.
	BusyTimeout time.Duration
}

// Store is the single long-lived handle to the database. One store handle
// is opened per process and shared by all callers; the store assumes a
// single logical writer.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	opts Options
	log  *zap.Logger
}

// Open opens (creating if necessary) the database at path and brings its
// schema to the current version.
func Open(path string, opts Options) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single logical writer: one connection serializes all access and
	// keeps session pragmas in effect for every statement.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, opts: opts, log: logging.Get(logging.CategoryStore)}
	if err := s.applyPragmas(); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db, logging.Get(logging.CategoryBoot)); err != nil {
		db.Close()
		return nil, err
	}

	s.log.Info("store opened",
		zap.String("path", path),
		zap.Int("schema_version", CurrentSchemaVersion))
	return s, nil
}

func (s *Store) applyPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.opts.BusyTimeout.Milliseconds()),
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	return nil
}

// Close releases the database handle. Operations issued afterwards fail
// with ErrNotInitialized.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.log.Info("store closed", zap.String("path", s.path))
	return err
}

// handle returns the live database handle or ErrNotInitialized.
func (s *Store) handle() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

// begin starts a transaction against the live handle.
func (s *Store) begin(ctx context.Context) (*sql.Tx, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, translateErr(err)
	}
	return tx, nil
}

// encodeTime / decodeTime fix the text representation of timestamps in the
// database: UTC RFC3339Nano, round-tripping full nanosecond precision.
// Queries that need chronological order must parse, not compare the text:
// RFC3339Nano elides trailing fractional zeros, so lexical order is not
// chronological.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func encodeNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeRange(start, end sql.NullString) (timeline.DateRange, error) {
	var r timeline.DateRange
	if start.Valid {
		t, err := decodeTime(start.String)
		if err != nil {
			return r, err
		}
		r.Start = &t
	}
	if end.Valid {
		t, err := decodeTime(end.String)
		if err != nil {
			return r, err
		}
		r.End = &t
	}
	return r, nil
}
