package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// KeyLastOriginalID is the bookkeeping key pointing at the most recently
// saved original. SaveOriginal maintains it in the same transaction as the
// record insert.
const KeyLastOriginalID = "last_original_id"

// MetadataEntry is one row of the flat bookkeeping table.
type MetadataEntry struct {
	Key     string
	Value   json.RawMessage
	Updated time.Time
}

// SetMetadata upserts a bookkeeping value, stamping the update time. The
// value is stored as JSON.
func (s *Store) SetMetadata(ctx context.Context, key string, value any) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := txSetMetadata(ctx, tx, key, value, time.Now().UTC()); err != nil {
		return err
	}
	return translateErr(tx.Commit())
}

// txSetMetadata performs the upsert inside an existing transaction so
// callers can couple bookkeeping writes with record writes.
func txSetMetadata(ctx context.Context, tx *sql.Tx, key string, value any, now time.Time) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to serialize metadata value for %q: %w", key, err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO metadata (key, value, updated) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated = excluded.updated`,
		key, string(raw), encodeTime(now))
	return translateErr(err)
}

// GetMetadata decodes the value stored under key into dest. ErrNotFound
// when the key is absent.
func (s *Store) GetMetadata(ctx context.Context, key string, dest any) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	var raw string
	err = db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("metadata %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return translateErr(err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return &SerializationError{ID: key, Err: err}
	}
	return nil
}

// DeleteMetadata removes a bookkeeping key. ErrNotFound when absent.
func (s *Store) DeleteMetadata(ctx context.Context, key string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, "DELETE FROM metadata WHERE key = ?", key)
	if err != nil {
		return translateErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("metadata %q: %w", key, ErrNotFound)
	}
	return nil
}

// LastOriginalID returns the id of the most recently saved original, or
// ErrNotFound when nothing has been saved yet.
func (s *Store) LastOriginalID(ctx context.Context) (string, error) {
	var id string
	if err := s.GetMetadata(ctx, KeyLastOriginalID, &id); err != nil {
		return "", err
	}
	return id, nil
}
