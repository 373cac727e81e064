package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/codelens/codelens/internal/config"
	"github.com/codelens/codelens/internal/embedder"
	"github.com/codelens/codelens/internal/service"
	"github.com/codelens/codelens/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	vs, err := store.Open(filepath.Join(t.TempDir(), "api.db"), "codebase", "Indexed codebase for test generation")
	require.NoError(t, err)

	svc := service.New(embedder.NewHashProvider(), vs, nil)
	t.Cleanup(func() { _ = svc.Close() })

	srv := NewServer(svc, config.Default(), zaptest.NewLogger(t))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// waitForState polls /api/v1/status until the wanted state appears.
func waitForState(t *testing.T, baseURL, want string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/api/v1/status")
		require.NoError(t, err)
		body := decodeBody(t, resp)
		if body["state"] == want {
			return body
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("state never became %q", want)
	return nil
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, resp)["status"])
}

func TestStatus_InitialState(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	assert.Equal(t, "not_indexed", body["state"])
	assert.Equal(t, "hash", body["provider"])
	assert.NotContains(t, body, "last_run")
}

func TestIndexThenSearch(t *testing.T) {
	ts := newTestServer(t)

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "deploy.yaml"),
		[]byte("replicas: 3\nimage: app:v1\nport: 8080\n"), 0o644))

	resp := postJSON(t, ts.URL+"/api/v1/index", map[string]interface{}{"path": root})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "indexing", decodeBody(t, resp)["status"])

	body := waitForState(t, ts.URL, "indexed")
	lastRun, ok := body["last_run"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), lastRun["indexed_files"])
	assert.Equal(t, float64(1), lastRun["total_chunks"])

	resp = postJSON(t, ts.URL+"/api/v1/search", map[string]interface{}{
		"query": "replicas: 3\nimage: app:v1\nport: 8080",
		"k":     1,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	searchBody := decodeBody(t, resp)
	assert.Equal(t, float64(1), searchBody["count"])

	results, ok := searchBody["results"].([]interface{})
	require.True(t, ok)
	first, ok := results[0].(map[string]interface{})
	require.True(t, ok)
	assert.InDelta(t, 0.0, first["distance"].(float64), 1e-6)
}

func TestIndex_BadRequests(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/index", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()

	resp, err := http.Post(ts.URL+"/api/v1/index", "application/json", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestIndex_MissingRootEndsFailed(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/index", map[string]interface{}{"path": "/no/such/dir"})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	_ = resp.Body.Close()

	waitForState(t, ts.URL, "indexing_failed")
}

func TestSearch_EmptyQueryRejected(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/search", map[string]interface{}{"query": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestSearch_EmptyCollection(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/search", map[string]interface{}{"query": "anything"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(0), body["count"])
}

func TestRequestLogging(t *testing.T) {
	vs, err := store.Open(filepath.Join(t.TempDir(), "api.db"), "codebase", "Indexed codebase for test generation")
	require.NoError(t, err)
	svc := service.New(embedder.NewHashProvider(), vs, nil)
	t.Cleanup(func() { _ = svc.Close() })

	core, logs := observer.New(zap.InfoLevel)
	srv := NewServer(svc, config.Default(), zap.New(core))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1, "every request logs exactly one line")
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/health", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
}

func TestStats(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/stats")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	assert.Equal(t, "codebase", body["collection_name"])
	assert.Equal(t, float64(0), body["total_chunks"])
}
