// Package store persists embedded document chunks in SQLite and
// answers nearest-neighbor queries over them.
//
// Records live in a named collection and are keyed by caller-assigned
// string ids, so writing an id that already exists replaces the record
// instead of duplicating it. Vectors are stored as little-endian
// float32 blobs; similarity search deserializes and scores them in Go
// with cosine distance, which keeps the store driver-agnostic.
//
// Two SQLite drivers are supported via build tags: the default pure Go
// driver (modernc.org/sqlite) and a CGO driver (mattn/go-sqlite3)
// selected with -tags cgo_sqlite.
package store
