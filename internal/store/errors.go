package store

import (
	"errors"
	"fmt"

	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotInitialized is returned for any operation on a store that was
	// never opened or has been closed.
	ErrNotInitialized = errors.New("store: not initialized")

	// ErrNotFound is returned when a load or delete references an unknown
	// id or key. It is a normal branch for callers, matched with
	// errors.Is, and is never used for storage faults.
	ErrNotFound = errors.New("store: not found")

	// ErrQuotaExceeded is returned when the storage engine rejects a
	// write because the device or quota is full.
	ErrQuotaExceeded = errors.New("store: storage quota exceeded")
)

// SerializationError means a stored payload could not be decoded back into
// structured data. It indicates corruption or schema drift, never a missing
// record.
type SerializationError struct {
	ID  string
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("store: record %s cannot be deserialized: %v", e.ID, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// IntegrityError means the digest recomputed on load does not match the
// checksum stored with the record.
type IntegrityError struct {
	ID   string
	Got  string
	Want string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("store: record %s failed integrity check: digest %s, stored checksum %s", e.ID, e.Got, e.Want)
}

// CascadeError means a cascading delete could not be committed as one unit.
// The transaction design should make this unreachable; it exists so a
// failed commit is never reported as a generic storage fault.
type CascadeError struct {
	OriginalID string
	Err        error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("store: cascading delete of original %s did not commit: %v", e.OriginalID, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

// translateErr maps engine-level failures onto the store taxonomy. The
// driver reports result codes through a Code accessor on its error type;
// SQLITE_FULL becomes ErrQuotaExceeded so callers can prompt the user to
// free space instead of showing a generic failure.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case sqlite3.SQLITE_FULL:
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
	}
	return err
}
