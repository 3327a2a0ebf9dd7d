package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"locvault/internal/logging"
	"locvault/internal/timeline"
)

// SubsetRecord is a fully loaded derived slice of an original. The point
// payload is an independent copy, so the record stays readable after its
// parent original changes or is deleted outside the cascading path.
type SubsetRecord struct {
	ID         string
	OriginalID string
	Name       string
	DateRange  timeline.DateRange
	CreatedAt  time.Time
	LastUsed   time.Time
	Settings   timeline.FilterSettings
	Points     []timeline.Point
	Stats      SubsetStats
}

// SubsetStats summarizes a subset's payload.
type SubsetStats struct {
	TotalPoints int                `json:"totalPoints"`
	DateRange   timeline.DateRange `json:"dateRange"`
}

// SubsetSummary is the lightweight listing view of a subset.
type SubsetSummary struct {
	ID         string
	OriginalID string
	Name       string
	DateRange  timeline.DateRange
	CreatedAt  time.Time
	LastUsed   time.Time
	Settings   timeline.FilterSettings
	Stats      SubsetStats
}

// SaveSubset persists a filtered point sequence as a new subset of the
// given original. The points are stored as an independent copy and
// TotalPoints is fixed at save time. By default the parent original is not
// verified to exist; with Options.ValidateSubsetParent a missing parent
// fails with ErrNotFound in the same transaction as the insert.
func (s *Store) SaveSubset(ctx context.Context, originalID, name string, points []timeline.Point, dr timeline.DateRange, settings timeline.FilterSettings) (string, error) {
	data, err := json.Marshal(points)
	if err != nil {
		return "", fmt.Errorf("failed to serialize points: %w", err)
	}
	settingsJSON, err := json.Marshal(settings)
	if err != nil {
		return "", fmt.Errorf("failed to serialize settings: %w", err)
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if s.opts.ValidateSubsetParent {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM originals WHERE id = ?", originalID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("original %s: %w", originalID, ErrNotFound)
		}
		if err != nil {
			return "", translateErr(err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO subsets (id, original_id, name, range_start, range_end, created_at, last_used, settings, data, total_points)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, originalID, name,
		encodeNullableTime(dr.Start), encodeNullableTime(dr.End),
		encodeTime(now), encodeTime(now),
		string(settingsJSON), data, len(points),
	)
	if err != nil {
		return "", translateErr(err)
	}
	if err := tx.Commit(); err != nil {
		return "", translateErr(err)
	}

	s.log.Info("subset saved",
		zap.String("id", id),
		zap.String("original_id", originalID),
		zap.String("name", name),
		zap.Int("points", len(points)))
	return id, nil
}

// LoadSubset returns the subset with the given id, or ErrNotFound. Every
// load is also a write: last_used is advanced to the current time and
// persisted in the same transaction as the read, so a load can never race
// a concurrent delete into resurrecting the row.
func (s *Store) LoadSubset(ctx context.Context, id string) (*SubsetRecord, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rec := &SubsetRecord{ID: id}
	var createdAt, lastUsed, settingsJSON string
	var rangeStart, rangeEnd sql.NullString
	var data []byte
	var totalPoints int

	err = tx.QueryRowContext(ctx,
		`SELECT original_id, name, range_start, range_end, created_at, last_used, settings, data, total_points
		 FROM subsets WHERE id = ?`, id).
		Scan(&rec.OriginalID, &rec.Name, &rangeStart, &rangeEnd, &createdAt, &lastUsed, &settingsJSON, &data, &totalPoints)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, translateErr(err)
	}

	if rec.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}
	prev, err := decodeTime(lastUsed)
	if err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}
	if rec.DateRange, err = decodeRange(rangeStart, rangeEnd); err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}
	if err := json.Unmarshal([]byte(settingsJSON), &rec.Settings); err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}
	if err := json.Unmarshal(data, &rec.Points); err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}

	// last_used must strictly increase even at coarse clock resolution.
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE subsets SET last_used = ? WHERE id = ?", encodeTime(now), id); err != nil {
		return nil, translateErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, translateErr(err)
	}

	rec.LastUsed = now
	rec.Stats = SubsetStats{TotalPoints: totalPoints, DateRange: rec.DateRange}
	return rec, nil
}

// DeleteSubset removes a single subset. Subsets are leaf records: no
// cascade. ErrNotFound when the id is unknown.
func (s *Store) DeleteSubset(ctx context.Context, id string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, "DELETE FROM subsets WHERE id = ?", id)
	if err != nil {
		return translateErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("subset %s: %w", id, ErrNotFound)
	}
	s.log.Info("subset deleted", zap.String("id", id))
	return nil
}

// ListSubsetIDs returns the ids of every subset referencing the given
// original, via the original_id index.
func (s *Store) ListSubsetIDs(ctx context.Context, originalID string) ([]string, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT id FROM subsets WHERE original_id = ?", originalID)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSubsets returns lightweight views of every subset. No inherent
// ordering is guaranteed; "most recent" views sort client-side by LastUsed.
func (s *Store) ListSubsets(ctx context.Context) ([]SubsetSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, original_id, name, range_start, range_end, created_at, last_used, settings, total_points FROM subsets`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []SubsetSummary
	for rows.Next() {
		var sum SubsetSummary
		var createdAt, lastUsed, settingsJSON string
		var rangeStart, rangeEnd sql.NullString
		var totalPoints int
		if err := rows.Scan(&sum.ID, &sum.OriginalID, &sum.Name, &rangeStart, &rangeEnd, &createdAt, &lastUsed, &settingsJSON, &totalPoints); err != nil {
			return nil, err
		}
		if sum.CreatedAt, err = decodeTime(createdAt); err != nil {
			return nil, &SerializationError{ID: sum.ID, Err: err}
		}
		if sum.LastUsed, err = decodeTime(lastUsed); err != nil {
			return nil, &SerializationError{ID: sum.ID, Err: err}
		}
		if sum.DateRange, err = decodeRange(rangeStart, rangeEnd); err != nil {
			return nil, &SerializationError{ID: sum.ID, Err: err}
		}
		if err := json.Unmarshal([]byte(settingsJSON), &sum.Settings); err != nil {
			return nil, &SerializationError{ID: sum.ID, Err: err}
		}
		sum.Stats = SubsetStats{TotalPoints: totalPoints, DateRange: sum.DateRange}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// exportEnvelope is the downloadable artifact shape: the subset's name and
// its stored point payload, untransformed.
type exportEnvelope struct {
	Name   string          `json:"name"`
	Points json.RawMessage `json:"points"`
}

// ExportSubset writes the subset's raw point payload plus its name to w.
// Export reads the stored row directly and does not touch last_used.
func (s *Store) ExportSubset(ctx context.Context, id string, w io.Writer) error {
	db, err := s.handle()
	if err != nil {
		return err
	}

	var name string
	var data []byte
	err = db.QueryRowContext(ctx, "SELECT name, data FROM subsets WHERE id = ?", id).Scan(&name, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("subset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return translateErr(err)
	}

	enc := json.NewEncoder(w)
	if err := enc.Encode(exportEnvelope{Name: name, Points: data}); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	logging.Get(logging.CategoryExport).Info("subset exported",
		zap.String("id", id),
		zap.String("name", name),
		zap.Int("bytes", len(data)))
	return nil
}
