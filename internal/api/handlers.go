package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/justestif/sparkify-etl/internal/db"
)

// Limits for the limit query parameter.
const (
	DefaultLimit = 20
	MaxLimit     = 500
)

// Reader is the read side of the warehouse served by the API.
type Reader interface {
	Ping(ctx context.Context) error
	TableCounts(ctx context.Context) ([]db.TableCount, error)
	GetUser(ctx context.Context, id string) (*db.User, error)
	UserSongplays(ctx context.Context, userID string, limit int) ([]db.Songplay, error)
	TopSongs(ctx context.Context, limit int) ([]db.TopSong, error)
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	reader Reader
	logger *zap.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(reader Reader, logger *zap.Logger) *Handlers {
	return &Handlers{reader: reader, logger: logger}
}

// Health pings the database (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.reader.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", db.ErrorField(err))
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Stats returns row counts per table (GET /stats).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reader.TableCounts(r.Context())
	if err != nil {
		h.internalError(w, "counting tables", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": counts})
}

// User returns one user (GET /users/{id}).
func (h *Handlers) User(w http.ResponseWriter, r *http.Request) {
	user, err := h.reader.GetUser(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, db.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.internalError(w, "getting user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UserSongplays returns the most recent plays of a user
// (GET /users/{id}/songplays).
func (h *Handlers) UserSongplays(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	plays, err := h.reader.UserSongplays(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.internalError(w, "listing songplays", err)
		return
	}
	if plays == nil {
		plays = []db.Songplay{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"songplays": plays})
}

// TopSongs returns the most played resolved songs (GET /songs/top).
func (h *Handlers) TopSongs(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	songs, err := h.reader.TopSongs(r.Context(), limit)
	if err != nil {
		h.internalError(w, "listing top songs", err)
		return
	}
	if songs == nil {
		songs = []db.TopSong{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"songs": songs})
}

func (h *Handlers) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, db.ErrorField(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseLimit reads the limit query parameter. It writes a 400 and returns
// false when the value is not a positive integer.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return DefaultLimit, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return min(n, MaxLimit), true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
