package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config holds embedding provider configuration.
type Config struct {
	Provider  string        // "ollama", "hash", or "" / "auto" for detection
	BaseURL   string        // semantic model endpoint
	Model     string        // semantic model name
	CacheSize int           // LRU entries; 0 uses the default
	Timeout   time.Duration // per-call bound for the semantic provider
}

// New selects a provider once, at construction time. With "auto" (or
// no explicit choice) the semantic endpoint is probed; if it is not
// reachable the deterministic hash fallback is used for the process
// lifetime. Callers never branch on availability afterwards.
func New(ctx context.Context, cfg Config) (Provider, error) {
	cache := NewCache(cfg.CacheSize)

	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama:
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Timeout, cache), nil
	case ProviderHash:
		return NewHashProvider(), nil
	case "", "auto":
		ollama := NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Timeout, cache)
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := ollama.Ping(probeCtx); err == nil {
			return ollama, nil
		}
		return NewHashProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, cfg.Provider)
	}
}
