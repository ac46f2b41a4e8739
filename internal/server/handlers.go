package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ZhanXPX/glance-multisearch/internal/history"
	"github.com/ZhanXPX/glance-multisearch/internal/store"
)

// historyResponse is the JSON response for GET /api/history.
type historyResponse struct {
	User  string        `json:"user"`
	Items []store.Entry `json:"items"`
}

// appendRequest is the JSON body for POST /api/history.
type appendRequest struct {
	User   string `json:"u"`
	Query  string `json:"q"`
	Engine string `json:"engine"`
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	user := history.NormalizeUser(r.URL.Query().Get("u"))
	writeJSON(w, http.StatusOK, historyResponse{
		User:  user,
		Items: s.history.GetRecent(user),
	})
}

func (s *Server) handlePostHistory(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	body := http.MaxBytesReader(w, r.Body, 64*1024)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := s.history.Append(req.User, req.Query, req.Engine); err != nil {
		if errors.Is(err, history.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, "Empty query")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to record query")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	s.history.Clear(r.URL.Query().Get("u"))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	engine := q.Get("engine")
	if engine == "" {
		engine = "google"
	}

	resp := s.suggest.Suggest(r.Context(), q.Get("u"), engine, q.Get("q"))
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already written; an encode failure here means the
	// client went away.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger tags each request with an id and logs method, path, status,
// and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.log.Info().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
