package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codelens/codelens/internal/chunker"
	"github.com/codelens/codelens/internal/embedder"
	"github.com/codelens/codelens/internal/parser"
	"github.com/codelens/codelens/internal/store"
	"github.com/codelens/codelens/pkg/types"
)

func newTestIndexer(t *testing.T) (*Indexer, *store.SQLiteStore) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "index.db"), "codebase", "test collection")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ch := chunker.New(parser.NewRegistry())
	idx := New(ch, embedder.NewHashProvider(), s, nil)
	return idx, s
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func yamlLines(n int) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "key_%d: value_%d\n", i, i)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func TestIndexDirectory_WindowedConfig(t *testing.T) {
	idx, s := newTestIndexer(t)
	root := t.TempDir()

	// 120 lines window into [1,50], [51,100], [101,120].
	writeFile(t, root, "config.yaml", yamlLines(120))

	report, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"config.yaml"}, report.IndexedFiles)
	assert.Equal(t, 3, report.TotalChunks)
	assert.Equal(t, 3, report.CollectionSize)
	assert.Empty(t, report.Failures)
	assert.Positive(t, report.Duration)

	// Record ids are the relative path plus the chunk ordinal.
	results, err := s.Query(context.Background(), mustEmbed(t, yamlLines(120)), 100)
	require.NoError(t, err)
	gotIDs := make([]string, 0, len(results))
	for _, r := range results {
		gotIDs = append(gotIDs, r.ID)
	}
	assert.ElementsMatch(t, []string{"config.yaml_0", "config.yaml_1", "config.yaml_2"}, gotIDs)
}

func mustEmbed(t *testing.T, text string) []float32 {
	t.Helper()
	vec, err := embedder.NewHashProvider().Embed(context.Background(), text)
	require.NoError(t, err)
	return vec
}

func TestIndexDirectory_SkipsExcludedDirsAndExtensions(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()

	writeFile(t, root, "node_modules/lib.js", "console.log('skipped');\n")
	writeFile(t, root, "vendor/dep.go", "package dep\n")
	writeFile(t, root, "LICENSE", "MIT\n")
	writeFile(t, root, "notes.md", "# Title\n\nSome notes about the module's behavior under load and restarts.\n")

	report, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"notes.md"}, report.IndexedFiles)
	assert.Empty(t, report.Failures)
}

func TestIndexDirectory_ReindexIsIdempotent(t *testing.T) {
	idx, s := newTestIndexer(t)
	root := t.TempDir()
	writeFile(t, root, "app.yaml", yamlLines(60))

	_, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)
	first, err := s.Count(context.Background())
	require.NoError(t, err)

	report, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)

	again, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, again, "re-indexing unchanged content must not grow the collection")
	assert.Equal(t, again, report.CollectionSize)
}

func TestIndexDirectory_InvalidUTF8IsRecordedNotFatal(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()

	writeFile(t, root, "good.yaml", "name: app\nversion: 3\nowner: platform\n")
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "bad.json"), []byte{0xff, 0xfe, '{', '}'}, 0o644))

	report, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err, "a broken file must not abort the run")

	assert.Equal(t, []string{"good.yaml"}, report.IndexedFiles)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, types.FailureRead, report.Failures[0].Kind)
	assert.Equal(t, "bad.json", report.Failures[0].Path)

	assert.Len(t, report.FailuresOfKind(types.FailureRead), 1)
	assert.Empty(t, report.FailuresOfKind(types.FailureStore))
}

func TestIndexDirectory_MissingRootIsStructural(t *testing.T) {
	idx, _ := newTestIndexer(t)

	_, err := idx.IndexDirectory(context.Background(), "/does/not/exist", nil)
	require.Error(t, err)

	ferr, ok := types.AsFileError(err)
	require.True(t, ok)
	assert.Equal(t, types.FailureStructural, ferr.Kind)
}

func TestIndexDirectory_Cancellation(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, root, fmt.Sprintf("f%02d.yaml", i), yamlLines(10))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := idx.IndexDirectory(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report, "the partial report is still returned")
}

func TestIndexDirectory_SelfRetrieval(t *testing.T) {
	idx, s := newTestIndexer(t)
	root := t.TempDir()

	src := `package demo

// Greet returns a friendly greeting for the given name, used by the
// CLI front end when no template is configured.
func Greet(name string) string {
	return "hello, " + name
}
`
	writeFile(t, root, "demo.go", src)

	report, err := idx.IndexDirectory(context.Background(), root, nil)
	require.NoError(t, err)
	require.Equal(t, 1, report.TotalChunks)

	// Embedding the stored chunk text again must rank it first with
	// distance zero: the hash provider is a pure function of content.
	results, err := s.Query(context.Background(), mustEmbed(t, chunkText(src)), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "demo.go_0", results[0].ID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.Equal(t, "demo.go", results[0].Metadata[types.MetaFilePath])
}

// chunkText extracts the single declaration chunk the chunker produces
// for the self-retrieval fixture.
func chunkText(src string) string {
	chunks := chunker.New(parser.NewRegistry()).Chunk("demo.go", []byte(src))
	if len(chunks) != 1 {
		panic(fmt.Sprintf("fixture produced %d chunks", len(chunks)))
	}
	return chunks[0].Content
}

func TestIndexDirectory_ProgressCallback(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()
	writeFile(t, root, "a.yaml", yamlLines(5))
	writeFile(t, root, "b.yaml", yamlLines(5))

	var calls int
	var lastDone, lastTotal int
	_, err := idx.IndexDirectory(context.Background(), root, &Config{
		Progress: func(done, total int, path string) {
			calls++
			lastDone, lastTotal = done, total
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, lastDone)
	assert.Equal(t, 2, lastTotal)
}

// Progress callbacks are serialized across the worker pool: plain
// counters need no locking, and done arrives strictly in order. Run
// with -race to catch regressions.
func TestIndexDirectory_ProgressSerializedAcrossWorkers(t *testing.T) {
	idx, _ := newTestIndexer(t)
	root := t.TempDir()
	const files = 16
	for i := 0; i < files; i++ {
		writeFile(t, root, fmt.Sprintf("f%02d.yaml", i), yamlLines(5))
	}

	var seen []int
	report, err := idx.IndexDirectory(context.Background(), root, &Config{
		Workers: 8,
		Progress: func(done, total int, path string) {
			assert.Equal(t, files, total)
			seen = append(seen, done)
		},
	})
	require.NoError(t, err)
	assert.Len(t, report.IndexedFiles, files)

	require.Len(t, seen, files)
	for i, done := range seen {
		assert.Equal(t, i+1, done, "done must increase by one per callback")
	}
}
