package types

import (
	"errors"
	"fmt"
)

// FailureKind categorizes why a file (or the whole run) failed during
// indexing. Per-file kinds never abort a run; only FailureStructural
// is fatal.
type FailureKind string

const (
	// FailureRead means the file was unreadable or not valid UTF-8.
	FailureRead FailureKind = "read"
	// FailureParse means the syntax parser failed; recovered locally by
	// windowed chunking, recorded only for diagnostics.
	FailureParse FailureKind = "parse"
	// FailureEmbedding means an embedding call failed or timed out; the
	// affected chunk is dropped, not the file.
	FailureEmbedding FailureKind = "embedding"
	// FailureStore means the batch write for a file failed; the file's
	// records are dropped.
	FailureStore FailureKind = "store"
	// FailureStructural means the run could not start at all, such as
	// an unreadable root directory; fatal for the entire run.
	FailureStructural FailureKind = "structural"
)

// FileError is a structured per-file indexing failure: what kind of
// failure, which file, and the underlying cause. Tests assert on Kind
// rather than on message text.
type FileError struct {
	Kind FailureKind
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s failure for %s: %v", e.Kind, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// NewFileError wraps err with its failure category and source path.
func NewFileError(kind FailureKind, path string, err error) *FileError {
	return &FileError{Kind: kind, Path: path, Err: err}
}

// AsFileError unwraps err into a *FileError when possible.
func AsFileError(err error) (*FileError, bool) {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
