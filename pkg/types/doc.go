// Package types defines the shared data model for the indexing and
// retrieval pipeline: chunks and their metadata, scored retrieval
// results, indexing reports, and the structured failure taxonomy.
//
// Everything here is plain data. Components communicate through these
// types so that the chunker, embedder, store, and orchestrators stay
// decoupled.
package types
