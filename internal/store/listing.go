package store

import (
	"context"

	"go.uber.org/zap"

	"locvault/internal/logging"
)

// Overview is the combined listing handed to rendering collaborators: all
// original and subset summaries in one snapshot. The store guarantees no
// inherent ordering; "most recent" views sort client-side by UploadDate or
// LastUsed.
type Overview struct {
	Originals []OriginalSummary
	Subsets   []SubsetSummary
}

// Listing composes the original and subset listings into one overview.
func (s *Store) Listing(ctx context.Context) (*Overview, error) {
	originals, err := s.ListOriginals(ctx)
	if err != nil {
		return nil, err
	}
	subsets, err := s.ListSubsets(ctx)
	if err != nil {
		return nil, err
	}
	logging.Get(logging.CategoryListing).Debug("listing composed",
		zap.Int("originals", len(originals)),
		zap.Int("subsets", len(subsets)))
	return &Overview{Originals: originals, Subsets: subsets}, nil
}
