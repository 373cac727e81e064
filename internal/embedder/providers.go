package embedder

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// Provider names and semantic model defaults.
const (
	ProviderOllama = "ollama"
	ProviderHash   = "hash"

	// DefaultOllamaURL is the local Ollama endpoint.
	DefaultOllamaURL = "http://localhost:11434"
	// DefaultOllamaModel is a 384-dimension sentence embedding model.
	DefaultOllamaModel = "all-minilm"

	// DefaultTimeout bounds a single embedding call.
	DefaultTimeout = 30 * time.Second
)

// OllamaProvider delegates embedding to an Ollama server's embeddings
// API. The model's output dimension must match Dimension; anything
// else is rejected rather than padded.
type OllamaProvider struct {
	baseURL    string
	model      string
	httpClient *http.Client
	cache      *Cache
}

// NewOllamaProvider creates a semantic embedder backed by an Ollama
// server. An empty baseURL or model falls back to the defaults.
func NewOllamaProvider(baseURL, model string, timeout time.Duration, cache *Cache) *OllamaProvider {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OllamaProvider{
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
	}
}

// Ping checks that the Ollama server is reachable. The factory uses
// this once at construction; per-call availability branching never
// happens.
func (o *OllamaProvider) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrProviderFailed, resp.StatusCode)
	}
	return nil
}

func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	hash := ComputeHash(text)
	if o.cache != nil {
		if vec, ok := o.cache.Get(hash); ok {
			return vec, nil
		}
	}

	config := DefaultRetryConfig()
	vec, err := retryWithBackoff(ctx, config, func() ([]float32, error) {
		return o.callAPI(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	if len(vec) != Dimension {
		return nil, fmt.Errorf("%w: model returned %d, want %d", ErrDimensionMismatch, len(vec), Dimension)
	}

	if o.cache != nil {
		o.cache.Set(hash, vec)
	}
	return vec, nil
}

func (o *OllamaProvider) callAPI(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]interface{}{
		"model":  o.model,
		"prompt": text,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var apiResp struct {
		Embedding []float64 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	vec := make([]float32, len(apiResp.Embedding))
	for i, v := range apiResp.Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (o *OllamaProvider) Dimension() int { return Dimension }

func (o *OllamaProvider) Name() string { return ProviderOllama }

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}

// HashProvider is the dependency-free fallback: a pure function of the
// input text built from its SHA-256 digest. It is a structural
// placeholder for similarity, not a semantic embedding; only
// byte-identical text maps to the same vector.
type HashProvider struct{}

// NewHashProvider creates the deterministic digest embedder.
func NewHashProvider() *HashProvider {
	return &HashProvider{}
}

// Embed reinterprets the 32 digest bytes as eight big-endian IEEE-754
// single-precision floats and zero-pads the result to Dimension
// entries. Digest bit patterns that decode to NaN or ±Inf would poison
// distance computations, so those lanes are remapped to a finite value
// derived from the same four bytes; the vector stays a pure function
// of the text.
func (h *HashProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	_ = ctx // never blocks

	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, Dimension)
	for i := 0; i < len(digest)/4; i++ {
		bits := binary.BigEndian.Uint32(digest[i*4:])
		v := math.Float32frombits(bits)
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			v = float32(bits%100000)/100000.0 + 1.0
		}
		vec[i] = v
	}
	return vec, nil
}

func (h *HashProvider) Dimension() int { return Dimension }

func (h *HashProvider) Name() string { return ProviderHash }

func (h *HashProvider) Close() error { return nil }
