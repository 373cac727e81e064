package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrLengthMismatch is returned when the parallel slices passed to
	// Upsert have different lengths.
	ErrLengthMismatch = errors.New("ids, vectors, documents, and metadatas must have equal lengths")
	// ErrDimensionMismatch is returned when a vector's length does not
	// match the collection's established dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrClosed is returned when operating on a closed store.
	ErrClosed = errors.New("store is closed")
)

// SearchResult is a stored record scored against a query vector.
// Distance is cosine distance: 0 means identical direction, 2 means
// opposite. Results are returned in ascending distance order.
type SearchResult struct {
	ID       string
	Document string
	Metadata map[string]string
	Distance float64
}

// VectorStore is a persistent collection of embedded documents keyed
// by caller-assigned string ids. Writing an existing id replaces the
// record in place, so re-indexing the same file converges instead of
// accumulating duplicates.
type VectorStore interface {
	// Upsert writes a batch of records. The four slices are parallel;
	// unequal lengths are rejected before anything is written. An
	// empty batch is a no-op. The first vector ever written fixes the
	// collection dimension and later batches must match it.
	Upsert(ctx context.Context, ids []string, vectors [][]float32, documents []string, metadatas []map[string]string) error

	// Query returns the k nearest records by ascending cosine
	// distance. When k exceeds the collection size every record is
	// returned; an empty collection yields an empty slice, not an
	// error.
	Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error)

	// Count reports the number of records in the collection.
	Count(ctx context.Context) (int, error)

	// Reset deletes every record, keeping the collection itself.
	Reset(ctx context.Context) error

	// Name returns the collection name.
	Name() string

	// Description returns the collection's description text.
	Description() string

	Close() error
}
