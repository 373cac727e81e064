package types

import "time"

// IndexState tracks the lifecycle of an indexing target.
type IndexState int32

const (
	// StateNotIndexed is the initial state before any indexing run.
	StateNotIndexed IndexState = iota
	// StateIndexing means a run is in progress.
	StateIndexing
	// StateIndexed means a run completed; per-file failures may have
	// occurred but the collection is usable.
	StateIndexed
	// StateIndexingFailed means a structural precondition failed before
	// any file processing began.
	StateIndexingFailed
)

func (s IndexState) String() string {
	switch s {
	case StateNotIndexed:
		return "not_indexed"
	case StateIndexing:
		return "indexing"
	case StateIndexed:
		return "indexed"
	case StateIndexingFailed:
		return "indexing_failed"
	default:
		return "unknown"
	}
}

// IndexReport summarizes one indexing run. It describes what succeeded;
// per-file problems are captured in Failures instead of aborting the
// run.
type IndexReport struct {
	IndexedFiles   []string      `json:"indexed_files"`
	TotalChunks    int           `json:"total_chunks"`
	CollectionSize int           `json:"collection_size"`
	Failures       []*FileError  `json:"-"`
	Duration       time.Duration `json:"-"`
}

// FailuresOfKind filters the report's failures by category.
func (r *IndexReport) FailuresOfKind(kind FailureKind) []*FileError {
	var out []*FileError
	for _, f := range r.Failures {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// CollectionStats describes the persistent collection.
type CollectionStats struct {
	TotalRecords int               `json:"total_chunks"`
	Name         string            `json:"collection_name"`
	Metadata     map[string]string `json:"metadata"`
}
