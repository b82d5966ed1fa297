package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/cyberlab/helpdesk/internal/service"
)

type ChatHandler struct {
	orch *service.ChatOrchestrator
}

func NewChatHandler(orch *service.ChatOrchestrator) *ChatHandler {
	return &ChatHandler{orch: orch}
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	UserRole  string `json:"user_role"`
	Message   string `json:"message"`
}

// Create runs one pipeline turn and returns the structured result.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	role := domain.UserRole(req.UserRole)
	if req.UserRole == "" {
		role = domain.RoleTrainee
	}

	result, err := h.orch.Chat(r.Context(), req.SessionID, role, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptySessionID),
			errors.Is(err, service.ErrEmptyMessage),
			errors.Is(err, service.ErrInvalidRole):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to process message")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
