package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/cyberlab/helpdesk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionStore persists session state, turn history, and per-issue-type
// escalation states. Per-session serialization is the orchestrator's job;
// this store only reads and writes rows.
type SessionStore struct {
	db *pgxpool.Pool
}

func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) GetOrCreate(ctx context.Context, sessionID string, role domain.UserRole) (*domain.SessionState, error) {
	state := &domain.SessionState{
		SessionID: sessionID,
		States:    make(map[domain.IssueType]domain.EscalationState),
	}

	err := s.db.QueryRow(ctx,
		`INSERT INTO sessions (session_id, user_role)
		 VALUES ($1, $2)
		 ON CONFLICT (session_id) DO UPDATE SET updated_at = NOW()
		 RETURNING session_id, user_role, created_at, updated_at`,
		sessionID, role,
	).Scan(&state.SessionID, &state.UserRole, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create session: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, session_id, user_message, answer, issue_type, tier, severity, coverage, escalated, failed, created_at
		 FROM session_turns
		 WHERE session_id = $1
		 ORDER BY created_at ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load session turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserMessage, &t.Answer, &t.IssueType, &t.Tier, &t.Severity, &t.Coverage, &t.Escalated, &t.Failed, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		state.Turns = append(state.Turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session turn rows: %w", err)
	}

	stateRows, err := s.db.Query(ctx,
		`SELECT issue_type, state FROM session_issue_states WHERE session_id = $1`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("load issue states: %w", err)
	}
	defer stateRows.Close()

	for stateRows.Next() {
		var issueType domain.IssueType
		var st domain.EscalationState
		if err := stateRows.Scan(&issueType, &st); err != nil {
			return nil, fmt.Errorf("scan issue state row: %w", err)
		}
		state.States[issueType] = st
	}

	return state, stateRows.Err()
}

func (s *SessionStore) AppendTurn(ctx context.Context, t *domain.Turn) error {
	return s.db.QueryRow(ctx,
		`INSERT INTO session_turns (session_id, user_message, answer, issue_type, tier, severity, coverage, escalated, failed)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		t.SessionID, t.UserMessage, t.Answer, t.IssueType, t.Tier, t.Severity, t.Coverage, t.Escalated, t.Failed,
	).Scan(&t.ID, &t.CreatedAt)
}

func (s *SessionStore) UpdateState(ctx context.Context, sessionID string, issueType domain.IssueType, state domain.EscalationState) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO session_issue_states (session_id, issue_type, state)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id, issue_type) DO UPDATE SET state = $3, updated_at = NOW()`,
		sessionID, issueType, state,
	)
	return err
}

// GetBySessionID returns the session row without history, for handlers that
// only need to know it exists.
func (s *SessionStore) GetBySessionID(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	state := &domain.SessionState{}
	err := s.db.QueryRow(ctx,
		`SELECT session_id, user_role, created_at, updated_at FROM sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&state.SessionID, &state.UserRole, &state.CreatedAt, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return state, nil
}
