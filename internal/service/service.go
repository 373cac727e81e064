// Package service ties the pipeline together behind one facade: index
// a directory, search the collection, report its state. The HTTP and
// MCP front ends are thin adapters over this package.
package service

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/chunker"
	"github.com/codelens/codelens/internal/embedder"
	"github.com/codelens/codelens/internal/indexer"
	"github.com/codelens/codelens/internal/parser"
	"github.com/codelens/codelens/internal/retriever"
	"github.com/codelens/codelens/internal/store"
	"github.com/codelens/codelens/pkg/types"
)

// ErrIndexingInProgress is returned when an indexing run is requested
// while another is still running. Runs never queue; the caller retries
// once the current run finishes.
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Service owns the pipeline stages and the index lifecycle state.
type Service struct {
	indexer   *indexer.Indexer
	retriever *retriever.Retriever
	store     store.VectorStore
	provider  embedder.Provider
	log       *zap.Logger

	mu         sync.Mutex
	state      types.IndexState
	lastReport *types.IndexReport
	lastRoot   string
}

// New assembles a Service from an embedding provider and a vector
// store. The same provider instance backs both indexing and search, so
// queries are always embedded in the space the index was built in.
func New(provider embedder.Provider, vs store.VectorStore, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	ch := chunker.New(parser.NewRegistry())
	return &Service{
		indexer:   indexer.New(ch, provider, vs, log),
		retriever: retriever.New(provider, vs, log),
		store:     vs,
		provider:  provider,
		log:       log,
		state:     types.StateNotIndexed,
	}
}

// Index runs the pipeline over root and blocks until it finishes.
// Only one run may be active at a time. A completed run leaves the
// service indexed even when some files failed; only a structural
// failure marks it failed.
func (s *Service) Index(ctx context.Context, root string, cfg *indexer.Config) (*types.IndexReport, error) {
	if err := s.acquire(root); err != nil {
		return nil, err
	}
	report, err := s.indexer.IndexDirectory(ctx, root, cfg)
	s.finish(report, err)
	return report, err
}

// BeginIndex starts an indexing run in the background and returns
// immediately. The run's outcome is observed through Status. The
// in-progress check happens before this returns, so a second call
// while a run is active fails synchronously.
func (s *Service) BeginIndex(root string, cfg *indexer.Config) error {
	if err := s.acquire(root); err != nil {
		return err
	}
	go func() {
		report, err := s.indexer.IndexDirectory(context.Background(), root, cfg)
		s.finish(report, err)
	}()
	return nil
}

func (s *Service) acquire(root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == types.StateIndexing {
		return ErrIndexingInProgress
	}
	s.state = types.StateIndexing
	s.lastRoot = root
	return nil
}

func (s *Service) finish(report *types.IndexReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReport = report
	switch {
	case err == nil:
		s.state = types.StateIndexed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// A cancelled run leaves a valid partial index behind; only a
		// structural failure marks the service failed.
		s.state = types.StateIndexed
	default:
		s.state = types.StateIndexingFailed
	}
}

// Search embeds the query and returns the k nearest chunks. Searching
// before any indexing run is legal and returns an empty result set.
func (s *Service) Search(ctx context.Context, query string, k int) ([]types.ScoredChunk, error) {
	return s.retriever.Search(ctx, query, k)
}

// Stats describes the persistent collection.
func (s *Service) Stats(ctx context.Context) (*types.CollectionStats, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &types.CollectionStats{
		TotalRecords: count,
		Name:         s.store.Name(),
		Metadata:     map[string]string{"description": s.store.Description()},
	}, nil
}

// Status reports the current lifecycle state, the directory of the
// most recent run, and its report (nil before the first run).
func (s *Service) Status() (types.IndexState, string, *types.IndexReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.lastRoot, s.lastReport
}

// ProviderName reports which embedding provider backs the service.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// Close releases the provider and the store.
func (s *Service) Close() error {
	perr := s.provider.Close()
	serr := s.store.Close()
	if perr != nil {
		return perr
	}
	return serr
}
