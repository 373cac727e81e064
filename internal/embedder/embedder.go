package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Dimension is the fixed embedding length shared by every provider.
// All vectors in one collection must have this length; the reference
// sentence-embedding model and the digest fallback both produce it.
const Dimension = 384

// Common errors
var (
	ErrEmptyText           = errors.New("text cannot be empty")
	ErrProviderFailed      = errors.New("embedding provider failed")
	ErrUnsupportedProvider = errors.New("unsupported embedding provider")
	ErrDimensionMismatch   = errors.New("embedding dimension mismatch")
)

// Provider maps text to a fixed-length vector. The semantic and hash
// implementations are interchangeable: selection happens once at
// construction and callers never inspect which variant is active.
type Provider interface {
	// Embed returns a vector of exactly Dimension entries for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the vector length this provider produces.
	Dimension() int

	// Name identifies the provider ("ollama" or "hash").
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// Cache is an in-memory LRU of embeddings keyed by content hash.
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates an embedding cache with LRU eviction.
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		// Only reachable with a non-positive size.
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{cache: cache}
}

// Get returns a copy of the cached vector so caller mutations cannot
// pollute the cache.
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector under its content hash.
func (c *Cache) Set(hash string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(hash, stored)
}

// Len returns the current cache size.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// ComputeHash computes the SHA-256 hex digest of text for cache keys.
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
