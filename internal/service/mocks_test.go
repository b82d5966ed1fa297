package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/cyberlab/helpdesk/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func testLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

// mockFragmentStore implements domain.FragmentStore for testing. It counts
// searches so tests can assert the guardrail short-circuit.
type mockFragmentStore struct {
	results     []domain.FragmentWithScore
	searchErr   error
	searchCalls int
}

func (m *mockFragmentStore) Search(ctx context.Context, embedding []float32, opts domain.SearchOpts) ([]domain.FragmentWithScore, error) {
	m.searchCalls++
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var out []domain.FragmentWithScore
	for _, r := range m.results {
		if r.Score >= opts.MinSimilarity {
			out = append(out, r)
		}
		if opts.TopK > 0 && len(out) >= opts.TopK {
			break
		}
	}
	return out, nil
}

func (m *mockFragmentStore) ListDocuments(ctx context.Context) ([]domain.KnowledgeDocument, error) {
	seen := make(map[string]bool)
	var docs []domain.KnowledgeDocument
	for _, r := range m.results {
		if !seen[r.Document.ID] {
			seen[r.Document.ID] = true
			docs = append(docs, r.Document)
		}
	}
	return docs, nil
}

// mockSessionStore implements domain.SessionStore in memory.
type mockSessionStore struct {
	sessions map[string]*domain.SessionState
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{sessions: make(map[string]*domain.SessionState)}
}

func (m *mockSessionStore) GetOrCreate(ctx context.Context, sessionID string, role domain.UserRole) (*domain.SessionState, error) {
	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}
	s := &domain.SessionState{
		SessionID: sessionID,
		UserRole:  role,
		States:    make(map[domain.IssueType]domain.EscalationState),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.sessions[sessionID] = s
	return s, nil
}

func (m *mockSessionStore) AppendTurn(ctx context.Context, t *domain.Turn) error {
	s, ok := m.sessions[t.SessionID]
	if !ok {
		return store.ErrNotFound
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	s.Turns = append(s.Turns, *t)
	return nil
}

func (m *mockSessionStore) UpdateState(ctx context.Context, sessionID string, issueType domain.IssueType, state domain.EscalationState) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return store.ErrNotFound
	}
	s.States[issueType] = state
	return nil
}

// mockTicketStore implements domain.TicketStore, with a failure toggle for
// exercising the retry path.
type mockTicketStore struct {
	tickets   []domain.Ticket
	createErr error
}

func (m *mockTicketStore) CreateFromIntent(ctx context.Context, intent *domain.TicketIntent, description string) (*domain.Ticket, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	t := domain.Ticket{
		ID:          fmt.Sprintf("INC-%08d", len(m.tickets)+1),
		SessionID:   intent.SessionID,
		Tier:        intent.Tier,
		Severity:    intent.Severity,
		Subject:     intent.Subject,
		Description: description,
		Status:      domain.TicketNew,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	m.tickets = append(m.tickets, t)
	return &t, nil
}

func (m *mockTicketStore) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	for i := range m.tickets {
		if m.tickets[i].ID == id {
			return &m.tickets[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockTicketStore) List(ctx context.Context, limit, offset int) ([]domain.Ticket, int, error) {
	return m.tickets, len(m.tickets), nil
}

func (m *mockTicketStore) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	for i := range m.tickets {
		if m.tickets[i].ID == id {
			m.tickets[i].Status = status
			return nil
		}
	}
	return store.ErrNotFound
}

// mockEventStore records audit events in memory.
type mockEventStore struct {
	events []domain.AuditEvent
}

func (m *mockEventStore) Append(ctx context.Context, e *domain.AuditEvent) error {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	m.events = append(m.events, *e)
	return nil
}

func (m *mockEventStore) ListBySession(ctx context.Context, sessionID string, limit int) ([]domain.AuditEvent, error) {
	var out []domain.AuditEvent
	for _, e := range m.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEventStore) types() []domain.AuditEventType {
	out := make([]domain.AuditEventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// recordingEmbedder tracks calls so tests can assert retrieval never ran.
type recordingEmbedder struct {
	embedErr   error
	embedCalls int
}

func (m *recordingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.embedCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	v := make([]float32, 384)
	v[0] = 1
	return v, nil
}

// recordingGenerator returns a canned answer and tracks what it received.
type recordingGenerator struct {
	answer      string
	generateErr error
	calls       int
	lastRole    domain.UserRole
	lastCount   int
}

func (m *recordingGenerator) Generate(ctx context.Context, fragments []domain.FragmentWithScore, role domain.UserRole, history []domain.Turn, userMessage string) (string, error) {
	m.calls++
	m.lastRole = role
	m.lastCount = len(fragments)
	if m.generateErr != nil {
		return "", m.generateErr
	}
	if m.answer != "" {
		return m.answer, nil
	}
	return "mock answer", nil
}

var errMockFailure = errors.New("mock failure")

// fragment builds a scored fragment attached to a document, the common
// fixture shape for ranking and orchestrator tests.
func fragment(id, docID, docTitle, version string, updated time.Time, score float32, pos int, tags ...domain.VisibilityTag) domain.FragmentWithScore {
	return domain.FragmentWithScore{
		KnowledgeFragment: domain.KnowledgeFragment{
			ID:             id,
			DocumentID:     docID,
			Text:           "fragment text for " + id,
			Position:       pos,
			VisibilityTags: tags,
		},
		Document: domain.KnowledgeDocument{
			ID:          docID,
			Title:       docTitle,
			Version:     version,
			LastUpdated: updated,
		},
		Score: score,
	}
}
