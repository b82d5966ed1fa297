package domain

import (
	"time"
)

// EscalationReason enumerates why a turn escalated.
type EscalationReason string

const (
	ReasonNone             EscalationReason = ""
	ReasonCriticalSeverity EscalationReason = "critical_severity"
	ReasonHighSeverity     EscalationReason = "high_severity"
	ReasonNoCoverage       EscalationReason = "no_kb_coverage"
	ReasonRepeatedFailures EscalationReason = "repeated_failures"
	ReasonGuardrailBlock   EscalationReason = "guardrail_block"
	ReasonPlatformIssue    EscalationReason = "platform_issue"
	ReasonTierRouting      EscalationReason = "tier_routing"
	ReasonAlreadyEscalated EscalationReason = "already_escalated"
)

// TicketIntent is the structured payload emitted to the ticketing
// collaborator on escalation. The core never writes the ticket itself.
type TicketIntent struct {
	SessionID string    `json:"session_id"`
	UserRole  UserRole  `json:"user_role"`
	Tier      Tier      `json:"tier"`
	Severity  Severity  `json:"severity"`
	Subject   string    `json:"subject"`
	Reasons   []string  `json:"reasons"`
	IssueType IssueType `json:"issue_type"`
}

// EscalationDecision is the outcome of the escalation state machine for
// one turn. Computed once, after classification.
type EscalationDecision struct {
	Escalate bool             `json:"escalate"`
	Reason   EscalationReason `json:"reason,omitempty"`
	Detail   string           `json:"detail,omitempty"`
	State    EscalationState  `json:"state"`
	Intent   *TicketIntent    `json:"ticket_intent,omitempty"`
}

// TicketStatus is the lifecycle status of a support ticket.
type TicketStatus string

const (
	TicketNew        TicketStatus = "New"
	TicketInProgress TicketStatus = "In Progress"
	TicketResolved   TicketStatus = "Resolved"
	TicketClosed     TicketStatus = "Closed"
)

func ValidTicketStatus(s string) bool {
	switch TicketStatus(s) {
	case TicketNew, TicketInProgress, TicketResolved, TicketClosed:
		return true
	}
	return false
}

// Ticket is a support ticket created by the ticketing collaborator from a
// TicketIntent.
type Ticket struct {
	ID          string       `json:"id"` // INC-XXXXXXXX
	SessionID   string       `json:"session_id"`
	Tier        Tier         `json:"tier"`
	Severity    Severity     `json:"severity"`
	Subject     string       `json:"subject"`
	Description string       `json:"description"`
	Status      TicketStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// AuditEventType enumerates the structured events the core emits.
type AuditEventType string

const (
	EventGuardrailBlocked AuditEventType = "guardrail_blocked"
	EventNoCoverage       AuditEventType = "no_kb_coverage"
	EventClassification   AuditEventType = "classification"
	EventEscalation       AuditEventType = "escalation"
	EventChatInteraction  AuditEventType = "chat_interaction"
)

// AuditEvent is a structured audit record handed to the logging
// collaborator.
type AuditEvent struct {
	ID        string         `json:"id"`
	Type      AuditEventType `json:"type"`
	SessionID string         `json:"session_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Citation is a cited document reference in the caller-facing result.
type Citation struct {
	DocumentID     string  `json:"document_id"`
	Title          string  `json:"title"`
	Version        string  `json:"version"`
	FragmentID     string  `json:"fragment_id"`
	RelevanceScore float32 `json:"relevance_score"`
}

// ChatResult is the structured result returned to the caller for one turn.
type ChatResult struct {
	SessionID  string             `json:"session_id"`
	Answer     string             `json:"answer"`
	Citations  []Citation         `json:"citations"`
	Notes      []SupersessionNote `json:"supersession_notes,omitempty"`
	Tier       Tier               `json:"tier"`
	Severity   Severity           `json:"severity"`
	Escalate   bool               `json:"escalate"`
	Guardrail  GuardrailVerdict   `json:"guardrail"`
	TicketID   string             `json:"ticket_id,omitempty"`
	Confidence float32            `json:"confidence"`
	IssueType  IssueType          `json:"issue_type"`
}
