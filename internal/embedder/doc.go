// Package embedder converts chunk text into fixed-length vectors.
//
// Two providers implement the same contract. The semantic provider
// delegates to an external sentence-embedding model over Ollama's
// embeddings API; the hash provider derives a deterministic vector
// from the SHA-256 digest of the text and needs no external service.
// Both emit exactly 384 entries, so the two are interchangeable behind
// the Provider interface and a collection never mixes dimensions.
//
// Which provider is active is decided once when the factory runs:
// explicit configuration wins, otherwise the semantic endpoint is
// probed and the fallback takes over for the process lifetime. The
// hash fallback is a structural placeholder: it preserves identity
// (same text, same vector) but not semantic similarity.
package embedder
