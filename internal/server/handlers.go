package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/codelens/codelens/internal/indexer"
	"github.com/codelens/codelens/internal/service"
	"github.com/codelens/codelens/pkg/types"
)

type indexRequest struct {
	Path    string `json:"path"`
	Workers int    `json:"workers,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// handleIndex starts an indexing run in the background and returns
// 202; progress is observed through /api/v1/status. A run already in
// flight yields 409.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	s.logger.Debug("index request", zap.String("path", req.Path), zap.Int("workers", req.Workers))
	err := s.svc.BeginIndex(req.Path, &indexer.Config{Workers: req.Workers})
	if err != nil {
		if errors.Is(err, service.ErrIndexingInProgress) {
			s.respondError(w, http.StatusConflict, err.Error())
			return
		}
		s.logger.Error("index start failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]string{
		"path":   req.Path,
		"status": types.StateIndexing.String(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	if max := s.config.Search.MaxLimit; max > 0 && req.K > max {
		req.K = max
	}
	if req.K <= 0 {
		req.K = s.config.Search.DefaultLimit
	}

	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("k", req.K))
	results, err := s.svc.Search(r.Context(), req.Query, req.K)
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"results": results,
		"count":   len(results),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state, root, report := s.svc.Status()

	resp := map[string]interface{}{
		"state":    state.String(),
		"provider": s.svc.ProviderName(),
	}
	if root != "" {
		resp["path"] = root
	}
	if report != nil {
		failures := make([]map[string]string, 0, len(report.Failures))
		for _, f := range report.Failures {
			failures = append(failures, map[string]string{
				"kind":  string(f.Kind),
				"path":  f.Path,
				"error": f.Err.Error(),
			})
		}
		resp["last_run"] = map[string]interface{}{
			"indexed_files":   len(report.IndexedFiles),
			"total_chunks":    report.TotalChunks,
			"collection_size": report.CollectionSize,
			"failures":        failures,
			"duration_ms":     report.Duration.Milliseconds(),
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
