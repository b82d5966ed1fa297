package domain

import (
	"time"

	"github.com/google/uuid"
)

// EscalationState is the per-(session, issue type) lifecycle state.
// ESCALATED is terminal within the session.
type EscalationState string

const (
	StateNewSession         EscalationState = "new_session"
	StateAwaitingResolution EscalationState = "awaiting_resolution"
	StateResolved           EscalationState = "resolved"
	StateEscalated          EscalationState = "escalated"
)

// Turn records one completed pipeline pass for a session.
type Turn struct {
	ID          uuid.UUID `json:"id"`
	SessionID   string    `json:"session_id"`
	UserMessage string    `json:"user_message"`
	Answer      string    `json:"answer"`
	IssueType   IssueType `json:"issue_type"`
	Tier        Tier      `json:"tier"`
	Severity    Severity  `json:"severity"`
	Coverage    bool      `json:"coverage"`
	Escalated   bool      `json:"escalated"`
	Failed      bool      `json:"failed"` // user reported a prior resolution did not work
	CreatedAt   time.Time `json:"created_at"`
}

// SessionState is the only mutable entity that crosses turn boundaries.
// It accumulates turn history and per-issue-type escalation states.
// Lifecycle (retention, deletion) is owned by the persistence layer.
type SessionState struct {
	SessionID string                        `json:"session_id"`
	UserRole  UserRole                      `json:"user_role"`
	Turns     []Turn                        `json:"turns"`
	States    map[IssueType]EscalationState `json:"states"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

// AttemptCount returns how many prior turns in this session concerned the
// given issue type.
func (s *SessionState) AttemptCount(issueType IssueType) int {
	n := 0
	for _, t := range s.Turns {
		if t.IssueType == issueType {
			n++
		}
	}
	return n
}

// FailedAttempts returns how many prior turns for the issue type the user
// reported as unresolved.
func (s *SessionState) FailedAttempts(issueType IssueType) int {
	n := 0
	for _, t := range s.Turns {
		if t.IssueType == issueType && t.Failed {
			n++
		}
	}
	return n
}

// StateFor returns the escalation state for an issue type, defaulting to
// NEW_SESSION when the session has no history for it.
func (s *SessionState) StateFor(issueType IssueType) EscalationState {
	if s.States == nil {
		return StateNewSession
	}
	if st, ok := s.States[issueType]; ok {
		return st
	}
	return StateNewSession
}
