package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/codelens/codelens/internal/chunker"
	"github.com/codelens/codelens/internal/embedder"
	"github.com/codelens/codelens/internal/pathfilter"
	"github.com/codelens/codelens/internal/store"
	"github.com/codelens/codelens/pkg/types"
)

// Indexer coordinates the indexing pipeline: walk -> chunk -> embed -> store
type Indexer struct {
	filter   *pathfilter.Filter
	chunker  *chunker.Chunker
	provider embedder.Provider
	store    store.VectorStore
	log      *zap.Logger
}

// Config contains configuration for an indexing run.
type Config struct {
	// Workers bounds the number of files processed concurrently
	// (default: runtime.NumCPU()).
	Workers int

	// EmbedTimeout bounds a single chunk's embedding call (default: 30s).
	EmbedTimeout time.Duration

	// Progress, when set, is called after each file finishes, whether
	// it succeeded or failed. done counts completed files. Calls are
	// serialized and done increases by one per call, so callbacks need
	// no locking of their own.
	Progress func(done, total int, path string)
}

// New creates an Indexer over the given pipeline stages.
func New(ch *chunker.Chunker, provider embedder.Provider, vs store.VectorStore, log *zap.Logger) *Indexer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Indexer{
		filter:   pathfilter.New(),
		chunker:  ch,
		provider: provider,
		store:    vs,
		log:      log,
	}
}

// IndexDirectory walks root and indexes every eligible file. Per-file
// failures are recorded in the report and never abort the run; only a
// structural failure (unreadable root, cancellation) returns an error.
// The returned report is valid even when err is non-nil.
func (idx *Indexer) IndexDirectory(ctx context.Context, root string, cfg *Config) (*types.IndexReport, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	embedTimeout := cfg.EmbedTimeout
	if embedTimeout <= 0 {
		embedTimeout = embedder.DefaultTimeout
	}

	start := time.Now()
	report := &types.IndexReport{
		IndexedFiles: make([]string, 0),
		Failures:     make([]*types.FileError, 0),
	}

	info, err := os.Stat(root)
	if err != nil {
		return report, types.NewFileError(types.FailureStructural, root, err)
	}
	if !info.IsDir() {
		return report, types.NewFileError(types.FailureStructural, root,
			fmt.Errorf("not a directory"))
	}

	files, err := idx.discoverFiles(root)
	if err != nil {
		return report, types.NewFileError(types.FailureStructural, root, err)
	}
	idx.log.Info("discovered files",
		zap.String("root", root),
		zap.Int("count", len(files)))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range files {
		// Cancellation is honored between files, never mid-file.
		if err := gctx.Err(); err != nil {
			break
		}

		g.Go(func() error {
			stored, ferr := idx.indexFile(gctx, root, path, embedTimeout)

			mu.Lock()
			done++
			report.TotalChunks += stored
			if ferr != nil {
				report.Failures = append(report.Failures, ferr)
				idx.log.Warn("file failed",
					zap.String("path", ferr.Path),
					zap.String("kind", string(ferr.Kind)),
					zap.Error(ferr.Err))
			} else {
				rel := relPath(root, path)
				report.IndexedFiles = append(report.IndexedFiles, rel)
			}
			if cfg.Progress != nil {
				cfg.Progress(done, len(files), path)
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait() // workers report failures through the report, not errors

	if size, err := idx.store.Count(ctx); err == nil {
		report.CollectionSize = size
	}
	report.Duration = time.Since(start)

	idx.log.Info("indexing finished",
		zap.Int("indexed", len(report.IndexedFiles)),
		zap.Int("chunks", report.TotalChunks),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("duration", report.Duration))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// discoverFiles collects indexable file paths under root in walk
// order. Excluded directories are pruned without descending into them.
func (idx *Indexer) discoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtrees are skipped, not fatal.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && idx.filter.ExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if idx.filter.ShouldIndex(relPath(root, path)) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// indexFile runs one file through chunk -> embed -> store. The int
// result counts chunks actually written. A chunk whose embedding fails
// is dropped while the rest of the file is still stored; its record id
// is simply absent until a later run succeeds.
func (idx *Indexer) indexFile(ctx context.Context, root, path string, embedTimeout time.Duration) (int, *types.FileError) {
	rel := relPath(root, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, types.NewFileError(types.FailureRead, rel, err)
	}
	if !utf8.Valid(data) {
		return 0, types.NewFileError(types.FailureRead, rel,
			errors.New("content is not valid UTF-8"))
	}

	chunks := idx.chunker.Chunk(rel, data)
	if len(chunks) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(chunks))
	vectors := make([][]float32, 0, len(chunks))
	documents := make([]string, 0, len(chunks))
	metadatas := make([]map[string]string, 0, len(chunks))

	var embedErr *types.FileError
	for i, chunk := range chunks {
		vec, err := idx.embedChunk(ctx, chunk.Content, embedTimeout)
		if err != nil {
			if embedErr == nil {
				embedErr = types.NewFileError(types.FailureEmbedding, rel, err)
			}
			continue
		}
		ids = append(ids, types.RecordID(rel, i))
		vectors = append(vectors, vec)
		documents = append(documents, chunk.Content)
		metadatas = append(metadatas, chunk.Metadata.Map())
	}

	if len(ids) > 0 {
		if err := idx.store.Upsert(ctx, ids, vectors, documents, metadatas); err != nil {
			return 0, types.NewFileError(types.FailureStore, rel, err)
		}
	}

	idx.log.Debug("file indexed",
		zap.String("path", rel),
		zap.Int("chunks", len(ids)))
	return len(ids), embedErr
}

// embedChunk bounds a single embedding call so one stuck chunk cannot
// stall the whole run.
func (idx *Indexer) embedChunk(ctx context.Context, text string, timeout time.Duration) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return idx.provider.Embed(embedCtx, text)
}

// relPath normalizes a file path to its slash-separated form relative
// to root. Record ids and metadata always use this form, so indexes
// built on different platforms agree.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}
