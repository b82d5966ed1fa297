package domain

import (
	"context"
)

// SearchOpts controls the vector search against the fragment store.
type SearchOpts struct {
	TopK          int
	MinSimilarity float32
}

// FragmentStore is read-only access to the embedded knowledge fragments
// and their document metadata, supplied by the ingestion collaborator.
type FragmentStore interface {
	// Search returns fragments ordered by descending cosine similarity,
	// ties broken by ascending fragment position.
	Search(ctx context.Context, embedding []float32, opts SearchOpts) ([]FragmentWithScore, error)
	ListDocuments(ctx context.Context) ([]KnowledgeDocument, error)
}

// SessionStore persists session state and turn history.
type SessionStore interface {
	GetOrCreate(ctx context.Context, sessionID string, role UserRole) (*SessionState, error)
	AppendTurn(ctx context.Context, t *Turn) error
	UpdateState(ctx context.Context, sessionID string, issueType IssueType, state EscalationState) error
}

// TicketStore is the ticketing collaborator boundary.
type TicketStore interface {
	CreateFromIntent(ctx context.Context, intent *TicketIntent, description string) (*Ticket, error)
	GetByID(ctx context.Context, id string) (*Ticket, error)
	List(ctx context.Context, limit, offset int) ([]Ticket, int, error)
	UpdateStatus(ctx context.Context, id string, status TicketStatus) error
}

// EventStore is the audit/logging collaborator boundary.
type EventStore interface {
	Append(ctx context.Context, e *AuditEvent) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]AuditEvent, error)
}

// EmbeddingClient converts text into a fixed-dimension vector. May fail;
// callers must treat failure as empty retrieval.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationClient produces the answer text from the resolved fragments
// and the user message only. It must never receive the raw corpus.
type GenerationClient interface {
	Generate(ctx context.Context, fragments []FragmentWithScore, role UserRole, history []Turn, userMessage string) (string, error)
}
