package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"locvault/internal/checksum"
	"locvault/internal/timeline"
)

func TestSaveLoadOriginalRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ds := tripDataset(t)

	id, err := s.SaveOriginal(ctx, "trip.json", ds, map[string]any{"name": "january trip"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := s.LoadOriginal(ctx, id)
	require.NoError(t, err)

	if diff := cmp.Diff(ds, rec.Dataset); diff != "" {
		t.Errorf("Loaded dataset differs from saved (-want +got):\n%s", diff)
	}
	require.Equal(t, "trip.json", rec.Filename)
	require.Equal(t, "january trip", rec.Metadata["name"])
	require.NotZero(t, rec.UploadDate)
	require.NotEmpty(t, rec.Checksum)
	require.Greater(t, rec.Size, int64(0))
}

func TestSaveOriginalExtractsDateRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveOriginal(ctx, "trip.json", tripDataset(t), nil)
	require.NoError(t, err)

	rec, err := s.LoadOriginal(ctx, id)
	require.NoError(t, err)

	require.NotNil(t, rec.DateRange.Start)
	require.NotNil(t, rec.DateRange.End)
	require.True(t, rec.DateRange.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, rec.DateRange.End.Equal(time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)))
}

func TestSaveOriginalCallerSuppliedRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	start := time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC)
	meta := map[string]any{"dateRange": timeline.DateRange{Start: &start, End: &end}}

	id, err := s.SaveOriginal(ctx, "trip.json", tripDataset(t), meta)
	require.NoError(t, err)

	rec, err := s.LoadOriginal(ctx, id)
	require.NoError(t, err)
	require.True(t, rec.DateRange.Start.Equal(start), "caller-supplied range start must win over extraction")
	require.True(t, rec.DateRange.End.Equal(end))
}

func TestSaveOriginalDecodedRangeOverride(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A metadata bag that went through JSON carries the range as a plain
	// map with timestamp strings; it must override extraction the same way
	// the typed value does.
	meta := map[string]any{"dateRange": map[string]any{
		"start": "2020-06-01T00:00:00Z",
		"end":   "2020-07-01T00:00:00Z",
	}}

	id, err := s.SaveOriginal(ctx, "trip.json", tripDataset(t), meta)
	require.NoError(t, err)

	rec, err := s.LoadOriginal(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, rec.DateRange.Start)
	require.NotNil(t, rec.DateRange.End)
	require.True(t, rec.DateRange.Start.Equal(time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, rec.DateRange.End.Equal(time.Date(2020, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSaveOriginalUniqueIDs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id, err := s.SaveOriginal(ctx, "trip.json", tripDataset(t), nil)
		require.NoError(t, err)
		require.False(t, seen[id], "back-to-back saves produced a duplicate id")
		seen[id] = true
	}
}

func TestSaveOriginalUpdatesLastPointer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LastOriginalID(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("LastOriginalID on empty store = %v, want ErrNotFound", err)
	}

	first, err := s.SaveOriginal(ctx, "a.json", tripDataset(t), nil)
	require.NoError(t, err)
	second, err := s.SaveOriginal(ctx, "b.json", tripDataset(t), nil)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	last, err := s.LastOriginalID(ctx)
	require.NoError(t, err)
	require.Equal(t, second, last)
}

func TestLoadOriginalNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadOriginal(context.Background(), "no-such-id")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLoadOriginalDetectsTampering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveOriginal(ctx, "trip.json", tripDataset(t), nil)
	require.NoError(t, err)

	// Flip bytes behind the store's back; the stored checksum no longer
	// matches the payload.
	db, err := s.handle()
	require.NoError(t, err)
	_, err = db.Exec("UPDATE originals SET data = ? WHERE id = ?", []byte(`{"tampered":true}`), id)
	require.NoError(t, err)

	_, err = s.LoadOriginal(ctx, id)
	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)
	require.Equal(t, id, integrity.ID)
	require.NotEqual(t, integrity.Got, integrity.Want)
}

func TestLoadOriginalSerializationError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveOriginal(ctx, "trip.json", tripDataset(t), nil)
	require.NoError(t, err)

	// Corrupt payload with a matching checksum: passes integrity, fails
	// deserialization. Classified distinctly from NotFound.
	garbage := []byte(`not json at all`)
	db, err := s.handle()
	require.NoError(t, err)
	_, err = db.Exec("UPDATE originals SET data = ?, checksum = ? WHERE id = ?",
		garbage, checksum.Digest(garbage), id)
	require.NoError(t, err)

	_, err = s.LoadOriginal(ctx, id)
	var serr *SerializationError
	require.ErrorAs(t, err, &serr)
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestDeleteOriginalCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveOriginal(ctx, "trip.json", tripDataset(t), nil)
	require.NoError(t, err)

	const n = 4
	for i := 0; i < n; i++ {
		_, err := s.SaveSubset(ctx, id, "slice", testPoints(3), timeline.DateRange{}, timeline.FilterSettings{})
		require.NoError(t, err)
	}
	// A subset of a different original must survive the cascade.
	otherID, err := s.SaveOriginal(ctx, "other.json", tripDataset(t), nil)
	require.NoError(t, err)
	survivor, err := s.SaveSubset(ctx, otherID, "keep", testPoints(1), timeline.DateRange{}, timeline.FilterSettings{})
	require.NoError(t, err)

	removed, err := s.DeleteOriginal(ctx, id)
	require.NoError(t, err)
	require.Equal(t, n, removed)

	ids, err := s.ListSubsetIDs(ctx, id)
	require.NoError(t, err)
	require.Empty(t, ids, "cascade left orphaned subsets")

	_, err = s.LoadOriginal(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.LoadSubset(ctx, survivor)
	require.NoError(t, err, "cascade removed an unrelated subset")
}

func TestDeleteOriginalAbortedCascadeKeepsAllRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.SaveOriginal(ctx, "trip.json", tripDataset(t), nil)
	require.NoError(t, err)

	const n = 3
	for i := 0; i < n; i++ {
		_, err := s.SaveSubset(ctx, id, "slice", testPoints(2), timeline.DateRange{}, timeline.FilterSettings{})
		require.NoError(t, err)
	}

	// Run the first cascade phase and abort before the original delete:
	// the rollback must leave every row in place, never just the subsets
	// gone.
	tx, err := s.begin(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, "DELETE FROM subsets WHERE original_id = ?", id)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	ids, err := s.ListSubsetIDs(ctx, id)
	require.NoError(t, err)
	require.Len(t, ids, n, "aborted cascade lost subsets")

	_, err = s.LoadOriginal(ctx, id)
	require.NoError(t, err, "aborted cascade lost the original")
}

func TestDeleteOriginalNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A subset referencing the missing id must not be touched by a failed
	// delete.
	subID, err := s.SaveSubset(ctx, "ghost-original", "orphan", testPoints(2), timeline.DateRange{}, timeline.FilterSettings{})
	require.NoError(t, err)

	removed, err := s.DeleteOriginal(ctx, "ghost-original")
	require.ErrorIs(t, err, ErrNotFound)
	require.Zero(t, removed)

	_, err = s.LoadSubset(ctx, subID)
	require.NoError(t, err)
}

func TestListOriginals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, err := s.SaveOriginal(ctx, "a.json", tripDataset(t), map[string]any{"name": "a"})
	require.NoError(t, err)
	b, err := s.SaveOriginal(ctx, "b.json", tripDataset(t), nil)
	require.NoError(t, err)

	summaries, err := s.ListOriginals(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	byID := make(map[string]OriginalSummary)
	for _, sum := range summaries {
		byID[sum.ID] = sum
	}
	require.Contains(t, byID, a)
	require.Contains(t, byID, b)
	require.Equal(t, "a.json", byID[a].Filename)
	require.Equal(t, "a", byID[a].Metadata["name"])
	require.Greater(t, byID[a].Size, int64(0))
	require.NotNil(t, byID[a].DateRange.Start)
}
