package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/cyberlab/helpdesk/internal/store"
	"github.com/go-chi/chi/v5"
)

type SessionHandler struct {
	sessions *store.SessionStore
	events   domain.EventStore
}

func NewSessionHandler(sessions *store.SessionStore, events domain.EventStore) *SessionHandler {
	return &SessionHandler{sessions: sessions, events: events}
}

// GetByID returns the session metadata.
func (h *SessionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	session, err := h.sessions.GetBySessionID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

type listEventsResponse struct {
	Events []domain.AuditEvent `json:"events"`
	Total  int                 `json:"total"`
}

// ListEvents returns the audit trail for a session, newest first.
func (h *SessionHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.events.ListBySession(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, listEventsResponse{Events: events, Total: len(events)})
}
