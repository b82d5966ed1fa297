package handlers

import (
	"net/http"

	"github.com/cyberlab/helpdesk/internal/domain"
)

type DocumentHandler struct {
	fragments domain.FragmentStore
}

func NewDocumentHandler(fragments domain.FragmentStore) *DocumentHandler {
	return &DocumentHandler{fragments: fragments}
}

type listDocumentsResponse struct {
	Documents []domain.KnowledgeDocument `json:"documents"`
	Total     int                        `json:"total"`
}

// List returns the knowledge base document inventory.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.fragments.ListDocuments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, listDocumentsResponse{Documents: docs, Total: len(docs)})
}
