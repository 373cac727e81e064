package store

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, "codebase", "Indexed codebase for test generation")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func vec(dim int, fill float32) []float32 {
	v := make([]float32, dim)
	for i := range v {
		v[i] = fill
	}
	return v
}

func TestUpsertAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx,
		[]string{"a.go_0", "a.go_1"},
		[][]float32{vec(4, 1), vec(4, 2)},
		[]string{"func A()", "func B()"},
		[]map[string]string{{"file_path": "a.go"}, {"file_path": "a.go"}},
	)
	require.NoError(t, err)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestUpsert_ReplacesExistingID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx,
		[]string{"a.go_0"},
		[][]float32{vec(4, 1)},
		[]string{"old content"},
		[]map[string]string{{"file_path": "a.go"}},
	))
	require.NoError(t, s.Upsert(ctx,
		[]string{"a.go_0"},
		[][]float32{vec(4, 3)},
		[]string{"new content"},
		[]map[string]string{{"file_path": "a.go"}},
	))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "same id must replace, not duplicate")

	results, err := s.Query(ctx, vec(4, 3), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "new content", results[0].Document)
}

func TestUpsert_LengthMismatch(t *testing.T) {
	s := newTestStore(t)

	err := s.Upsert(context.Background(),
		[]string{"a", "b"},
		[][]float32{vec(4, 1)},
		[]string{"x", "y"},
		[]map[string]string{{}, {}},
	)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "rejected batch must not write anything")
}

func TestUpsert_EmptyBatchIsNoop(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Upsert(context.Background(), nil, nil, nil, nil))
}

func TestUpsert_DimensionEstablishedByFirstWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx,
		[]string{"a_0"}, [][]float32{vec(4, 1)}, []string{"a"}, []map[string]string{{}}))

	err := s.Upsert(ctx,
		[]string{"b_0"}, [][]float32{vec(8, 1)}, []string{"b"}, []map[string]string{{}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestQuery_AscendingDistance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Orthogonal, opposite, and identical directions relative to the
	// query give distances 1, 2, and 0.
	require.NoError(t, s.Upsert(ctx,
		[]string{"orthogonal", "opposite", "identical"},
		[][]float32{{0, 1, 0, 0}, {-1, 0, 0, 0}, {2, 0, 0, 0}},
		[]string{"orthogonal", "opposite", "identical"},
		[]map[string]string{{}, {}, {}},
	))

	results, err := s.Query(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "identical", results[0].ID)
	assert.Equal(t, "orthogonal", results[1].ID)
	assert.Equal(t, "opposite", results[2].ID)

	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.InDelta(t, 1.0, results[1].Distance, 1e-6)
	assert.InDelta(t, 2.0, results[2].Distance, 1e-6)
}

func TestQuery_KLargerThanCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx,
		[]string{"a_0", "a_1"},
		[][]float32{vec(4, 1), vec(4, 2)},
		[]string{"a", "b"},
		[]map[string]string{{}, {}},
	))

	results, err := s.Query(ctx, vec(4, 1), 100)
	require.NoError(t, err)
	assert.Len(t, results, 2, "k beyond collection size returns everything")
}

func TestQuery_EmptyCollection(t *testing.T) {
	s := newTestStore(t)

	results, err := s.Query(context.Background(), vec(4, 1), 5)
	require.NoError(t, err, "empty collection is not an error")
	assert.Empty(t, results)
}

func TestQuery_MetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	meta := map[string]string{"file_path": "pkg/a.go", "node_kind": "function", "language": "go"}
	require.NoError(t, s.Upsert(ctx,
		[]string{"pkg/a.go_0"}, [][]float32{vec(4, 1)}, []string{"func A()"},
		[]map[string]string{meta}))

	results, err := s.Query(ctx, vec(4, 1), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, meta, results[0].Metadata)
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx,
		[]string{"a_0"}, [][]float32{vec(4, 1)}, []string{"a"}, []map[string]string{{}}))
	require.NoError(t, s.Reset(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Dimension is re-established after a reset.
	require.NoError(t, s.Upsert(ctx,
		[]string{"b_0"}, [][]float32{vec(8, 1)}, []string{"b"}, []map[string]string{{}}))
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(dbPath, "codebase", "Indexed codebase for test generation")
	require.NoError(t, err)
	require.NoError(t, s.Upsert(ctx,
		[]string{"a_0"}, [][]float32{vec(4, 1)}, []string{"persisted"}, []map[string]string{{}}))
	require.NoError(t, s.Close())

	s2, err := Open(dbPath, "codebase", "")
	require.NoError(t, err)
	defer func() { _ = s2.Close() }()

	count, err := s2.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Dimension survives reopen.
	err = s2.Upsert(ctx,
		[]string{"b_0"}, [][]float32{vec(8, 1)}, []string{"b"}, []map[string]string{{}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestVectorSerializationRoundTrip(t *testing.T) {
	original := []float32{0.1, -0.5, 3.14159, 0, float32(math.MaxFloat32)}
	assert.Equal(t, original, DeserializeVector(SerializeVector(original)))
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector has no direction")
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 0}), "length mismatch scores zero")
}
