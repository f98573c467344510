package memory

import (
	"context"
	"errors"
)

// ErrEmptyContent is returned when a record with no content reaches Append.
// Malformed records are rejected before any persistence happens.
var ErrEmptyContent = errors.New("memory: record content is empty")

// Store defines the contract for record persistence. It owns both
// MemoryRecord and the scanner's ProcessedFileEntry delta-sync table.
//
// Implementations must support concurrent append/read from independent
// goroutines; each append is a single atomic unit, so no reader ever
// observes a half-written record.
type Store interface {
	// Append persists a new record and returns its ID.
	// Records with empty content are rejected with ErrEmptyContent.
	Append(ctx context.Context, rec Record) (string, error)

	// All returns every stored record.
	All(ctx context.Context) ([]Record, error)

	// SetOutcome back-fills the outcome of a record once it is known.
	SetOutcome(ctx context.Context, id string, outcome Outcome) error

	// DeleteMatching removes all records whose content contains the keyword
	// (case-insensitive) and reports how many were removed, so callers can
	// confirm nonzero effect of this destructive bulk operation.
	DeleteMatching(ctx context.Context, keyword string) (int64, error)

	// LookupFileHash returns the stored content digest for a path, or
	// ("", nil) when the path has never been scanned.
	LookupFileHash(ctx context.Context, path string) (string, error)

	// UpsertFileHash inserts or overwrites the digest for a path.
	// Last-writer-wins is acceptable here.
	UpsertFileHash(ctx context.Context, path, hash string) error

	// CountRecords and CountProcessedFiles feed the status report.
	CountRecords(ctx context.Context) (int64, error)
	CountProcessedFiles(ctx context.Context) (int64, error)

	// Close releases any resources held by the store.
	Close() error
}
