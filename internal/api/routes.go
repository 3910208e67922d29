package api

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"lukechampine.com/blake3"
)

// Server holds the handlers' dependencies.
type Server struct {
	src Source
	log *slog.Logger
}

// NewRouter builds the HTTP handler. /metrics is served uncompressed since
// the Prometheus handler negotiates its own encoding.
func NewRouter(src Source, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{src: src, log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(log))
	r.Use(middleware.Recoverer)

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(GzipMiddleware)

		r.Get("/health", s.handleHealth)
		r.Get("/api/repos", s.handleRepos)
		r.Get("/api/stats", s.handleStats)
		r.Get("/api/repos/{id}/commits", s.handleRepoCommits)
		r.Get("/api/repos/{id}/{sub}/commits", s.handleRepoCommits)
		r.Get("/api/commits", s.handleCommits)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRepos(w http.ResponseWriter, r *http.Request) {
	ids, err := s.src.Repositories(r.Context())
	if err != nil {
		s.log.Error("listing repositories", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list repositories", err)
		return
	}
	writeJSON(w, r, http.StatusOK, ids)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.src.Stats(r.Context())
	if err != nil {
		s.log.Error("reading stats", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read stats", err)
		return
	}
	writeJSON(w, r, http.StatusOK, stats)
}

// handleRepoCommits serves both owner/name ids and path-derived names.
func (s *Server) handleRepoCommits(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if sub := chi.URLParam(r, "sub"); sub != "" {
		id += "/" + sub
	}
	s.writeCommits(w, r, id)
}

func (s *Server) handleCommits(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("repo"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "repo query parameter required", nil)
		return
	}
	s.writeCommits(w, r, id)
}

func (s *Server) writeCommits(w http.ResponseWriter, r *http.Request, repoID string) {
	records, err := s.src.CommitsForRepository(r.Context(), repoID)
	if err != nil {
		s.log.Error("querying commits", "repo", repoID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query commits", err)
		return
	}
	writeJSON(w, r, http.StatusOK, records)
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON encodes v, tags it with a BLAKE3 ETag and answers 304 when the
// client already holds that representation.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding response", err)
		return
	}

	etag := contentETag(body)
	w.Header().Set("ETag", etag)
	if status == http.StatusOK && etagMatch(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Details = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// contentETag returns a strong ETag derived from the body's BLAKE3 hash.
func contentETag(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}

// etagMatch checks an If-None-Match header, which may list several tags
// or "*".
func etagMatch(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
