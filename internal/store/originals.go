package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"locvault/internal/checksum"
	"locvault/internal/timeline"
)

// OriginalRecord is a fully loaded uploaded dataset.
type OriginalRecord struct {
	ID         string
	Filename   string
	UploadDate time.Time
	Size       int64
	DateRange  timeline.DateRange
	Dataset    *timeline.Dataset
	Checksum   string
	Metadata   map[string]any
}

// OriginalSummary is the lightweight listing view of an original. No
// ordering is guaranteed; callers sort.
type OriginalSummary struct {
	ID         string
	Filename   string
	UploadDate time.Time
	DateRange  timeline.DateRange
	Size       int64
	Metadata   map[string]any
}

// metaDateRangeKey is the caller-supplied metadata key that, when present,
// overrides date-range extraction.
const metaDateRangeKey = "dateRange"

// SaveOriginal serializes the dataset, computes its checksum and date
// range, and persists a new original record. The record insert and the
// last-original-id bookkeeping update commit as one transaction. The
// returned id is a fresh UUID, so back-to-back saves never collide.
func (s *Store) SaveOriginal(ctx context.Context, filename string, ds *timeline.Dataset, meta map[string]any) (string, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return "", fmt.Errorf("failed to serialize dataset: %w", err)
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to serialize metadata: %w", err)
	}

	dr, ok := rangeFromMeta(meta)
	if !ok {
		dr = timeline.ExtractDateRange(ds)
	}

	id := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO originals (id, filename, upload_date, size, range_start, range_end, data, checksum, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, filename, encodeTime(now), int64(len(data)),
		encodeNullableTime(dr.Start), encodeNullableTime(dr.End),
		data, checksum.Digest(data), string(metaJSON),
	)
	if err != nil {
		return "", translateErr(err)
	}
	if err := txSetMetadata(ctx, tx, KeyLastOriginalID, id, now); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", translateErr(err)
	}

	s.log.Info("original saved",
		zap.String("id", id),
		zap.String("filename", filename),
		zap.Int("size", len(data)),
		zap.Int("segments", len(ds.Segments)))
	return id, nil
}

// LoadOriginal returns the original with the given id, or ErrNotFound.
// The stored payload's digest is recomputed and compared with the stored
// checksum before deserialization; a mismatch fails with IntegrityError.
func (s *Store) LoadOriginal(ctx context.Context, id string) (*OriginalRecord, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rec := &OriginalRecord{ID: id}
	var uploadDate string
	var rangeStart, rangeEnd sql.NullString
	var data []byte
	var metaJSON string

	err = db.QueryRowContext(ctx,
		`SELECT filename, upload_date, size, range_start, range_end, data, checksum, metadata
		 FROM originals WHERE id = ?`, id).
		Scan(&rec.Filename, &uploadDate, &rec.Size, &rangeStart, &rangeEnd, &data, &rec.Checksum, &metaJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("original %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, translateErr(err)
	}

	if got, verr := checksum.Verify(data, rec.Checksum); verr != nil {
		s.log.Error("original failed integrity check",
			zap.String("id", id),
			zap.String("digest", got),
			zap.String("checksum", rec.Checksum))
		return nil, &IntegrityError{ID: id, Got: got, Want: rec.Checksum}
	}

	if rec.UploadDate, err = decodeTime(uploadDate); err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}
	if rec.DateRange, err = decodeRange(rangeStart, rangeEnd); err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}

	ds := &timeline.Dataset{}
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}
	rec.Dataset = ds

	if err := json.Unmarshal([]byte(metaJSON), &rec.Metadata); err != nil {
		return nil, &SerializationError{ID: id, Err: err}
	}
	return rec, nil
}

// DeleteOriginal removes the original and every subset referencing it as
// one transaction: either all of them are gone or none are. It returns the
// number of dependent subsets removed. ErrNotFound when the original does
// not exist; no subsets are touched in that case.
func (s *Store) DeleteOriginal(ctx context.Context, id string) (int, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM originals WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("original %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, translateErr(err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM subsets WHERE original_id = ?", id)
	if err != nil {
		return 0, translateErr(err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM originals WHERE id = ?", id); err != nil {
		return 0, translateErr(err)
	}

	if err := tx.Commit(); err != nil {
		return 0, &CascadeError{OriginalID: id, Err: translateErr(err)}
	}

	s.log.Info("original deleted",
		zap.String("id", id),
		zap.Int64("subsets_removed", removed))
	return int(removed), nil
}

// ListOriginals returns lightweight views of every original. No inherent
// ordering is guaranteed.
func (s *Store) ListOriginals(ctx context.Context) ([]OriginalSummary, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, filename, upload_date, size, range_start, range_end, metadata FROM originals`)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var out []OriginalSummary
	for rows.Next() {
		var sum OriginalSummary
		var uploadDate, metaJSON string
		var rangeStart, rangeEnd sql.NullString
		if err := rows.Scan(&sum.ID, &sum.Filename, &uploadDate, &sum.Size, &rangeStart, &rangeEnd, &metaJSON); err != nil {
			return nil, err
		}
		if sum.UploadDate, err = decodeTime(uploadDate); err != nil {
			return nil, &SerializationError{ID: sum.ID, Err: err}
		}
		if sum.DateRange, err = decodeRange(rangeStart, rangeEnd); err != nil {
			return nil, &SerializationError{ID: sum.ID, Err: err}
		}
		if err := json.Unmarshal([]byte(metaJSON), &sum.Metadata); err != nil {
			return nil, &SerializationError{ID: sum.ID, Err: err}
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// rangeFromMeta reads a caller-supplied date range out of the metadata bag.
// The value may be the typed DateRange or, after a trip through JSON, the
// decoded map shape with "start"/"end" timestamp strings.
func rangeFromMeta(meta map[string]any) (timeline.DateRange, bool) {
	v, ok := meta[metaDateRangeKey]
	if !ok {
		return timeline.DateRange{}, false
	}
	switch dr := v.(type) {
	case timeline.DateRange:
		return dr, true
	case *timeline.DateRange:
		if dr != nil {
			return *dr, true
		}
	case map[string]any:
		var out timeline.DateRange
		if t, ok := instantFromAny(dr["start"]); ok {
			out.Start = &t
		}
		if t, ok := instantFromAny(dr["end"]); ok {
			out.End = &t
		}
		if !out.IsZero() {
			return out, true
		}
	}
	return timeline.DateRange{}, false
}

func instantFromAny(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := timeline.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
