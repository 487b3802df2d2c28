package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/org/bookforge/internal/storage"
)

// HealthHandler reports liveness and refreshes the stored-books gauge.
// GET /v1/sys/health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if count, err := s.store.CountBooks(r.Context()); err == nil {
		booksTotal.Set(float64(count))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GenerationLogHandler returns recent generation attempts.
// GET /v1/sys/generation-log?operation=&model=&outcome=&since=&limit=&offset=
func (s *Server) GenerationLogHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.GenerationFilter{
		Operation: q.Get("operation"),
		Model:     q.Get("model"),
		Outcome:   q.Get("outcome"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = &t
	}

	records, err := s.auditor.QueryGenerationLog(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

// AuditLogHandler returns recent API requests.
// GET /v1/sys/audit-log?path=&since=&limit=&offset=
func (s *Server) AuditLogHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.AuditFilter{Path: q.Get("path")}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = &t
	}

	entries, err := s.auditor.Query(r.Context(), filter)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
