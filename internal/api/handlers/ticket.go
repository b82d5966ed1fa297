package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/cyberlab/helpdesk/internal/store"
	"github.com/go-chi/chi/v5"
)

type TicketHandler struct {
	tickets domain.TicketStore
}

func NewTicketHandler(tickets domain.TicketStore) *TicketHandler {
	return &TicketHandler{tickets: tickets}
}

type listTicketsResponse struct {
	Tickets []domain.Ticket `json:"tickets"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		offset = n
	}

	tickets, total, err := h.tickets.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}

	writeJSON(w, http.StatusOK, listTicketsResponse{
		Tickets: tickets,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (h *TicketHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ticket, err := h.tickets.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get ticket")
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *TicketHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !domain.ValidTicketStatus(req.Status) {
		writeError(w, http.StatusBadRequest, "status must be one of: New, In Progress, Resolved, Closed")
		return
	}

	if err := h.tickets.UpdateStatus(r.Context(), id, domain.TicketStatus(req.Status)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ticket not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update ticket")
		return
	}

	ticket, err := h.tickets.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get ticket")
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}
