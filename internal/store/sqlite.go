package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// SQLiteStore implements VectorStore on a single SQLite collection.
// The collection row is created on open if it doesn't exist, so the
// store survives process restarts with its records intact.
type SQLiteStore struct {
	db           *sql.DB
	collectionID int64
	name         string
	description  string

	mu        sync.Mutex
	dimension int // 0 until the first vector is written
	closed    bool
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Open opens (or creates) the database at dbPath and binds the store
// to the named collection, creating the collection row if needed.
func Open(dbPath, name, description string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	s := &SQLiteStore{db: db, name: name, description: description}
	if err := s.ensureCollection(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// ensureCollection loads or creates the collection row and picks up a
// previously established dimension.
func (s *SQLiteStore) ensureCollection(ctx context.Context) error {
	query := `
		INSERT INTO collections (name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET updated_at = excluded.updated_at
		RETURNING id, description, dimension
	`
	now := time.Now()
	var desc sql.NullString
	err := s.db.QueryRowContext(ctx, query, s.name, s.description, now, now).
		Scan(&s.collectionID, &desc, &s.dimension)
	if err != nil {
		return fmt.Errorf("failed to ensure collection %q: %w", s.name, err)
	}
	if desc.Valid && desc.String != "" {
		s.description = desc.String
	}
	return nil
}

// Name returns the collection name.
func (s *SQLiteStore) Name() string { return s.name }

// Description returns the collection's description text.
func (s *SQLiteStore) Description() string { return s.description }

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Upsert writes a batch of records atomically. Unequal slice lengths
// are rejected before anything touches the database; a failed batch
// leaves the collection unchanged.
func (s *SQLiteStore) Upsert(ctx context.Context, ids []string, vectors [][]float32, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(vectors) || len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("%w: got %d ids, %d vectors, %d documents, %d metadatas",
			ErrLengthMismatch, len(ids), len(vectors), len(documents), len(metadatas))
	}
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	// The first vector ever stored fixes the collection dimension.
	dim := s.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, vec := range vectors {
		if len(vec) != dim {
			return fmt.Errorf("%w: record %q has %d entries, collection uses %d",
				ErrDimensionMismatch, ids[i], len(vec), dim)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO records (collection_id, record_id, document, vector, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, record_id) DO UPDATE SET
			document = excluded.document,
			vector = excluded.vector,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`
	now := time.Now()
	for i := range ids {
		meta, err := json.Marshal(metadatas[i])
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %q: %w", ids[i], err)
		}
		_, err = tx.ExecContext(ctx, query,
			s.collectionID, ids[i], documents[i], serializeVector(vectors[i]), string(meta), now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert record %q: %w", ids[i], err)
		}
	}

	if s.dimension == 0 {
		if _, err := tx.ExecContext(ctx,
			"UPDATE collections SET dimension = ?, updated_at = ? WHERE id = ?",
			dim, now, s.collectionID); err != nil {
			return fmt.Errorf("failed to record collection dimension: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	s.dimension = dim
	return nil
}

// Query scans the collection, scores every record against the query
// vector, and returns the k nearest in ascending cosine distance. A
// brute-force scan is fine at this scale; the single SQLite connection
// is the bottleneck long before the arithmetic is.
func (s *SQLiteStore) Query(ctx context.Context, vector []float32, k int) ([]SearchResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	dim := s.dimension
	s.mu.Unlock()

	if dim != 0 && len(vector) != dim {
		return nil, fmt.Errorf("%w: query vector has %d entries, collection uses %d",
			ErrDimensionMismatch, len(vector), dim)
	}

	query := `
		SELECT record_id, document, vector, metadata
		FROM records
		WHERE collection_id = ?
	`
	rows, err := s.db.QueryContext(ctx, query, s.collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]SearchResult, 0)
	for rows.Next() {
		var (
			id       string
			document string
			blob     []byte
			metaJSON sql.NullString
		)
		if err := rows.Scan(&id, &document, &blob, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		stored := deserializeVector(blob)
		if len(stored) != len(vector) {
			continue // Dimension mismatch, skip
		}

		metadata := map[string]string{}
		if metaJSON.Valid && metaJSON.String != "" {
			if err := json.Unmarshal([]byte(metaJSON.String), &metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata for %q: %w", id, err)
			}
		}

		results = append(results, SearchResult{
			ID:       id,
			Document: document,
			Metadata: metadata,
			Distance: cosineDistance(vector, stored),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortResults(results)

	if k < 0 {
		k = 0
	}
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Count reports the number of records in the collection.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrClosed
	}
	s.mu.Unlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE collection_id = ?", s.collectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return count, nil
}

// Reset deletes every record in the collection and clears its
// dimension, so the next upsert establishes it fresh.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM records WHERE collection_id = ?", s.collectionID); err != nil {
		return fmt.Errorf("failed to delete records: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE collections SET dimension = 0, updated_at = ? WHERE id = ?",
		time.Now(), s.collectionID); err != nil {
		return fmt.Errorf("failed to clear collection dimension: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}
	s.dimension = 0
	return nil
}
