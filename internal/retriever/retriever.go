// Package retriever answers similarity queries against the indexed
// collection: embed the query text with the same provider the index
// was built with, then rank stored chunks by cosine distance.
package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/embedder"
	"github.com/codelens/codelens/internal/store"
	"github.com/codelens/codelens/pkg/types"
)

// DefaultK is the number of results returned when the caller doesn't
// ask for a specific count.
const DefaultK = 5

// Retriever embeds query text and searches the vector store.
type Retriever struct {
	provider embedder.Provider
	store    store.VectorStore
	log      *zap.Logger
}

// New creates a Retriever. The provider must be the same one the index
// was built with; mixing providers silently degrades result quality
// because their vector spaces are unrelated.
func New(provider embedder.Provider, vs store.VectorStore, log *zap.Logger) *Retriever {
	if log == nil {
		log = zap.NewNop()
	}
	return &Retriever{provider: provider, store: vs, log: log}
}

// Search returns up to k chunks ranked by ascending distance to the
// query. k <= 0 uses DefaultK. An empty collection yields an empty
// slice, not an error.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]types.ScoredChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if k <= 0 {
		k = DefaultK
	}

	vec, err := r.provider.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	scored := make([]types.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = types.ScoredChunk{
			Content:  res.Document,
			Metadata: res.Metadata,
			Distance: res.Distance,
		}
	}

	r.log.Debug("search completed",
		zap.Int("k", k),
		zap.Int("results", len(scored)))
	return scored, nil
}
