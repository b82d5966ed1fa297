package service

import (
	"fmt"

	"github.com/cyberlab/helpdesk/internal/domain"
	"go.uber.org/zap"
)

const ticketSubjectLimit = 100

// escalateInput is the snapshot an escalation rule may inspect.
type escalateInput struct {
	verdict  domain.GuardrailVerdict
	result   domain.ClassificationResult
	signals  domain.IssueSignals
	attempts int // resolution attempts for this issue type, current turn included
}

// escalationRule pairs a predicate with the machine-readable reason and the
// user-facing detail it produces. Rules fire in declaration order; the first
// match decides.
type escalationRule struct {
	reason domain.EscalationReason
	match  func(in escalateInput) bool
	detail func(in escalateInput) string
}

var escalationRules = []escalationRule{
	{
		reason: domain.ReasonCriticalSeverity,
		match:  func(in escalateInput) bool { return in.result.Severity == domain.SeverityCritical },
		detail: func(in escalateInput) string {
			return "Critical severity issue requires immediate attention from support team."
		},
	},
	{
		reason: domain.ReasonRepeatedFailures,
		match:  func(in escalateInput) bool { return in.attempts >= 2 },
		detail: func(in escalateInput) string {
			return fmt.Sprintf("Issue persists after %d resolution attempts. Escalating to support engineer.", in.attempts)
		},
	},
	{
		reason: domain.ReasonGuardrailBlock,
		match: func(in escalateInput) bool {
			return in.verdict.Blocked && in.result.Severity.AtLeast(domain.SeverityHigh)
		},
		detail: func(in escalateInput) string {
			return "Security-sensitive request blocked. Support team has been notified."
		},
	},
	{
		reason: domain.ReasonNoCoverage,
		match:  func(in escalateInput) bool { return !in.result.Coverage },
		detail: func(in escalateInput) string {
			return "This issue is not covered in the knowledge base. A support engineer will assist you."
		},
	},
	{
		reason: domain.ReasonPlatformIssue,
		match:  func(in escalateInput) bool { return in.signals.IssueType.IsPlatformIssue() },
		detail: func(in escalateInput) string {
			return "Platform-level issue detected. Escalating to platform engineering team."
		},
	},
	{
		reason: domain.ReasonPlatformIssue,
		match: func(in escalateInput) bool {
			return in.signals.IssueType == domain.IssueContainerInit &&
				in.result.Severity.AtLeast(domain.SeverityMedium)
		},
		detail: func(in escalateInput) string {
			return "Container initialization failure requires support engineer investigation."
		},
	},
	{
		reason: domain.ReasonTierRouting,
		match:  func(in escalateInput) bool { return in.result.Tier.Rank() >= domain.Tier2.Rank() },
		detail: func(in escalateInput) string {
			return fmt.Sprintf("This issue requires %s support. A ticket has been created.", in.result.Tier)
		},
	},
	{
		reason: domain.ReasonHighSeverity,
		match:  func(in escalateInput) bool { return in.result.Severity == domain.SeverityHigh },
		detail: func(in escalateInput) string {
			return "High severity issue requires support engineer attention."
		},
	},
}

// EscalationStateMachine decides, per (session, issue type), whether a turn
// escalates and what state the pair transitions to. ESCALATED is terminal:
// once reached, later turns for the same issue type report escalated without
// emitting a second ticket intent.
type EscalationStateMachine struct {
	logger *zap.Logger
}

func NewEscalationStateMachine(logger *zap.Logger) *EscalationStateMachine {
	return &EscalationStateMachine{logger: logger}
}

// Decide evaluates the escalation rules against the classified turn. A user
// request to avoid escalation is acknowledged in the log and otherwise
// ignored.
func (m *EscalationStateMachine) Decide(session *domain.SessionState, userMessage string, verdict domain.GuardrailVerdict, result domain.ClassificationResult, signals domain.IssueSignals) domain.EscalationDecision {
	current := session.StateFor(signals.IssueType)
	if current == domain.StateEscalated {
		return domain.EscalationDecision{
			Escalate: true,
			Reason:   domain.ReasonAlreadyEscalated,
			Detail:   "This issue has already been escalated. A support engineer will follow up.",
			State:    domain.StateEscalated,
		}
	}

	in := escalateInput{
		verdict: verdict,
		result:  result,
		signals: signals,
		// Attempt number for this issue type: every prior turn, plus the
		// current one when the user reports the last fix did not work. A
		// second unresolved turn therefore reaches 2.
		attempts: session.AttemptCount(signals.IssueType),
	}
	if signals.ResolutionFailed {
		in.attempts++
	}

	if signals.NoEscalationRequested {
		m.logger.Warn("user requested no escalation, request ignored by policy",
			zap.String("session_id", session.SessionID))
	}

	for _, r := range escalationRules {
		if !r.match(in) {
			continue
		}
		detail := r.detail(in)
		m.logger.Info("escalation required",
			zap.String("session_id", session.SessionID),
			zap.String("issue_type", string(signals.IssueType)),
			zap.String("reason", string(r.reason)))
		return domain.EscalationDecision{
			Escalate: true,
			Reason:   r.reason,
			Detail:   detail,
			State:    domain.StateEscalated,
			Intent: &domain.TicketIntent{
				SessionID: session.SessionID,
				UserRole:  session.UserRole,
				Tier:      result.Tier,
				Severity:  result.Severity,
				Subject:   ticketSubject(userMessage),
				Reasons:   append(append([]string{}, result.Reasons...), string(r.reason)),
				IssueType: signals.IssueType,
			},
		}
	}

	m.logger.Debug("no escalation required",
		zap.String("session_id", session.SessionID),
		zap.String("issue_type", string(signals.IssueType)))
	return domain.EscalationDecision{
		Escalate: false,
		State:    domain.StateAwaitingResolution,
	}
}

// ticketSubject truncates the user message to the subject limit without
// splitting a multi-byte rune.
func ticketSubject(message string) string {
	return truncateRuneSafe(message, ticketSubjectLimit)
}

// truncateRuneSafe cuts s to at most limit bytes, backing up over UTF-8
// continuation bytes so the result is always valid UTF-8.
func truncateRuneSafe(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
