package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cyberlab/helpdesk/internal/domain"
	"go.uber.org/zap"
)

var (
	ErrEmptySessionID = errors.New("session id is required")
	ErrEmptyMessage   = errors.New("message is required")
	ErrInvalidRole    = errors.New("unknown user role")
)

const (
	notCoveredAnswer       = "This issue is not covered in the knowledge base. A support engineer will assist you."
	generationFailedAnswer = "I apologize, but I'm having trouble processing your request. Please try again or contact support."

	maxCitations = 3

	// Confidence is a coarse function of evidence volume, nothing more.
	confidenceWellSupported = 0.9
	confidenceThin          = 0.7

	maxMessageLength = 4000
)

// ChatOrchestrator runs the full pipeline for one turn. The stage order is
// fixed: guardrail always precedes retrieval, classification always precedes
// escalation, and the ticket write is the commit point after which the
// escalation is never retracted.
type ChatOrchestrator struct {
	sessions  domain.SessionStore
	tickets   domain.TicketStore
	events    domain.EventStore
	generator domain.GenerationClient

	guardrail  *GuardrailEngine
	retrieval  *RetrievalEngine
	ranking    *RankingResolver
	signals    *SignalExtractor
	classifier *ClassificationEngine
	escalation *EscalationStateMachine
	retry      *TicketRetryService
	locker     *SessionLocker

	generateTimeout time.Duration
	logger          *zap.Logger
}

func NewChatOrchestrator(
	sessions domain.SessionStore,
	tickets domain.TicketStore,
	events domain.EventStore,
	generator domain.GenerationClient,
	guardrail *GuardrailEngine,
	retrieval *RetrievalEngine,
	ranking *RankingResolver,
	signals *SignalExtractor,
	classifier *ClassificationEngine,
	escalation *EscalationStateMachine,
	retry *TicketRetryService,
	logger *zap.Logger,
) *ChatOrchestrator {
	return &ChatOrchestrator{
		sessions:        sessions,
		tickets:         tickets,
		events:          events,
		generator:       generator,
		guardrail:       guardrail,
		retrieval:       retrieval,
		ranking:         ranking,
		signals:         signals,
		classifier:      classifier,
		escalation:      escalation,
		retry:           retry,
		locker:          NewSessionLocker(),
		generateTimeout: 15 * time.Second,
		logger:          logger,
	}
}

// SetGenerateTimeout overrides the per-turn generation timeout.
func (o *ChatOrchestrator) SetGenerateTimeout(d time.Duration) {
	if d > 0 {
		o.generateTimeout = d
	}
}

// Chat processes one user turn. The session lock is held while session state
// is read or written, never across the embedding or generation calls: the
// pipeline works on a snapshot and re-acquires the lock to persist.
func (o *ChatOrchestrator) Chat(ctx context.Context, sessionID string, role domain.UserRole, message string) (*domain.ChatResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	message = strings.TrimSpace(message)
	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	if message == "" {
		return nil, ErrEmptyMessage
	}
	message = truncateRuneSafe(message, maxMessageLength)
	if !domain.ValidUserRole(string(role)) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	o.locker.Lock(sessionID)
	session, err := o.sessions.GetOrCreate(ctx, sessionID, role)
	if err != nil {
		o.locker.Unlock(sessionID)
		return nil, fmt.Errorf("load session: %w", err)
	}
	snapshot := snapshotSession(session)
	o.locker.Unlock(sessionID)

	verdict := o.guardrail.Evaluate(message, role)
	if verdict.Blocked {
		return o.handleBlocked(ctx, snapshot, message, verdict)
	}

	// Retrieval and ranking run lock-free on the snapshot.
	candidates := o.retrieval.Search(ctx, message)
	resolved := o.ranking.Resolve(candidates, role, o.retrieval.TopK())
	coverage := resolved.Coverage()

	sig := o.signals.Extract(message, resolved.Fragments)
	result := o.classifier.Classify(verdict, coverage, sig, snapshot)
	decision := o.escalation.Decide(snapshot, message, verdict, result, sig)

	if !coverage {
		o.appendEvent(ctx, domain.EventNoCoverage, sessionID, map[string]any{
			"issue_type": string(sig.IssueType),
		})
	}
	o.appendEvent(ctx, domain.EventClassification, sessionID, map[string]any{
		"tier":     string(result.Tier),
		"severity": string(result.Severity),
		"coverage": coverage,
		"reasons":  result.Reasons,
	})

	ticketID := o.commitEscalation(ctx, sessionID, decision, message)

	answer := o.generateAnswer(ctx, resolved.Fragments, role, snapshot.Turns, message, decision)

	o.persistTurn(ctx, snapshot, message, answer, sig, result, decision)

	confidence := float32(confidenceThin)
	if len(resolved.Fragments) >= 3 {
		confidence = confidenceWellSupported
	}

	res := &domain.ChatResult{
		SessionID:  sessionID,
		Answer:     answer,
		Citations:  citations(resolved.Fragments),
		Notes:      resolved.Notes,
		Tier:       result.Tier,
		Severity:   result.Severity,
		Escalate:   decision.Escalate,
		Guardrail:  verdict,
		TicketID:   ticketID,
		Confidence: confidence,
		IssueType:  sig.IssueType,
	}

	o.appendEvent(ctx, domain.EventChatInteraction, sessionID, map[string]any{
		"tier":      string(result.Tier),
		"severity":  string(result.Severity),
		"escalate":  decision.Escalate,
		"ticket_id": ticketID,
	})
	return res, nil
}

// handleBlocked finishes a guardrail-blocked turn. Retrieval never runs; the
// answer is the guardrail's refusal message and coverage is not a factor.
func (o *ChatOrchestrator) handleBlocked(ctx context.Context, snapshot *domain.SessionState, message string, verdict domain.GuardrailVerdict) (*domain.ChatResult, error) {
	sessionID := snapshot.SessionID

	o.appendEvent(ctx, domain.EventGuardrailBlocked, sessionID, map[string]any{
		"trigger_type":    string(verdict.TriggerType),
		"matched_pattern": verdict.MatchedPattern,
		"severity_hint":   string(verdict.SeverityHint),
	})

	sig := o.signals.Extract(message, nil)
	result := o.classifier.Classify(verdict, true, sig, snapshot)
	decision := o.escalation.Decide(snapshot, message, verdict, result, sig)
	ticketID := o.commitEscalation(ctx, sessionID, decision, message)

	o.persistTurn(ctx, snapshot, message, verdict.Message, sig, result, decision)

	return &domain.ChatResult{
		SessionID:  sessionID,
		Answer:     verdict.Message,
		Tier:       result.Tier,
		Severity:   result.Severity,
		Escalate:   decision.Escalate,
		Guardrail:  verdict,
		TicketID:   ticketID,
		Confidence: 1.0,
		IssueType:  sig.IssueType,
	}, nil
}

// commitEscalation writes the ticket for an escalating decision. This is the
// commit point: once reached, the escalation stands even if the write fails,
// in which case the intent is queued for retry and the ticket id stays empty.
func (o *ChatOrchestrator) commitEscalation(ctx context.Context, sessionID string, decision domain.EscalationDecision, message string) string {
	if !decision.Escalate {
		return ""
	}

	o.appendEvent(ctx, domain.EventEscalation, sessionID, map[string]any{
		"reason": string(decision.Reason),
		"detail": decision.Detail,
	})

	if decision.Intent == nil {
		// Already-escalated turns report escalation without a new ticket.
		return ""
	}

	description := fmt.Sprintf("Issue: %s\n\nReason: %s", message, decision.Detail)
	ticket, err := o.tickets.CreateFromIntent(ctx, decision.Intent, description)
	if err != nil {
		o.logger.Error("ticket creation failed at commit point",
			zap.String("session_id", decision.Intent.SessionID),
			zap.Error(err))
		o.retry.Enqueue(*decision.Intent, description)
		return ""
	}

	o.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("session_id", decision.Intent.SessionID))
	return ticket.ID
}

// generateAnswer produces the answer text from the resolved fragments only.
// Both the empty-corpus and the generation-failure paths return fixed text
// so the caller-visible behavior stays deterministic.
func (o *ChatOrchestrator) generateAnswer(ctx context.Context, fragments []domain.FragmentWithScore, role domain.UserRole, history []domain.Turn, message string, decision domain.EscalationDecision) string {
	if len(fragments) == 0 {
		if decision.Escalate && decision.Detail != "" {
			return decision.Detail
		}
		return notCoveredAnswer
	}

	if o.generator == nil {
		o.logger.Warn("generation client not configured, returning fallback answer")
		return generationFailedAnswer
	}

	genCtx, cancel := context.WithTimeout(ctx, o.generateTimeout)
	defer cancel()

	answer, err := o.generator.Generate(genCtx, fragments, role, history, message)
	if err != nil {
		o.logger.Error("answer generation failed", zap.Error(err))
		return generationFailedAnswer
	}
	return answer
}

// persistTurn re-acquires the session lock and writes the turn plus the
// escalation state transition. Persistence failures are logged, not
// surfaced: the turn already happened from the caller's point of view.
func (o *ChatOrchestrator) persistTurn(ctx context.Context, snapshot *domain.SessionState, message, answer string, sig domain.IssueSignals, result domain.ClassificationResult, decision domain.EscalationDecision) {
	sessionID := snapshot.SessionID

	o.locker.Lock(sessionID)
	defer o.locker.Unlock(sessionID)

	turn := &domain.Turn{
		SessionID:   sessionID,
		UserMessage: message,
		Answer:      answer,
		IssueType:   sig.IssueType,
		Tier:        result.Tier,
		Severity:    result.Severity,
		Coverage:    result.Coverage,
		Escalated:   decision.Escalate,
		Failed:      sig.ResolutionFailed,
	}
	if err := o.sessions.AppendTurn(ctx, turn); err != nil {
		o.logger.Error("append turn failed",
			zap.String("session_id", sessionID), zap.Error(err))
	}

	// ESCALATED is terminal; never transition away from it.
	if snapshot.StateFor(sig.IssueType) != domain.StateEscalated || decision.State == domain.StateEscalated {
		if err := o.sessions.UpdateState(ctx, sessionID, sig.IssueType, decision.State); err != nil {
			o.logger.Error("update escalation state failed",
				zap.String("session_id", sessionID), zap.Error(err))
		}
	}
}

func (o *ChatOrchestrator) appendEvent(ctx context.Context, typ domain.AuditEventType, sessionID string, meta map[string]any) {
	e := &domain.AuditEvent{
		Type:      typ,
		SessionID: sessionID,
		Metadata:  meta,
	}
	if err := o.events.Append(ctx, e); err != nil {
		o.logger.Warn("audit event append failed",
			zap.String("type", string(typ)), zap.Error(err))
	}
}

// citations maps the top resolved fragments to caller-facing citations.
func citations(fragments []domain.FragmentWithScore) []domain.Citation {
	n := len(fragments)
	if n > maxCitations {
		n = maxCitations
	}
	out := make([]domain.Citation, 0, n)
	for _, f := range fragments[:n] {
		out = append(out, domain.Citation{
			DocumentID:     f.Document.ID,
			Title:          f.Document.Title,
			Version:        f.Document.Version,
			FragmentID:     f.ID,
			RelevanceScore: f.Score,
		})
	}
	return out
}

// snapshotSession deep-copies the mutable parts of a session so the pipeline
// can run without holding the session lock.
func snapshotSession(s *domain.SessionState) *domain.SessionState {
	cp := &domain.SessionState{
		SessionID: s.SessionID,
		UserRole:  s.UserRole,
		Turns:     make([]domain.Turn, len(s.Turns)),
		States:    make(map[domain.IssueType]domain.EscalationState, len(s.States)),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	copy(cp.Turns, s.Turns)
	for k, v := range s.States {
		cp.States[k] = v
	}
	return cp
}
