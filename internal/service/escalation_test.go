package service

import (
	"strings"
	"testing"

	"github.com/cyberlab/helpdesk/internal/domain"
)

func covered(tier domain.Tier, severity domain.Severity) domain.ClassificationResult {
	return domain.ClassificationResult{Tier: tier, Severity: severity, Coverage: true}
}

func TestEscalation_CriticalSeverityAlwaysEscalates(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())
	session := emptySession("s1")

	sig := domain.IssueSignals{IssueType: domain.IssueLabCrash}
	d := m.Decide(session, "my lab crashed and I lost everything", domain.GuardrailVerdict{},
		covered(domain.Tier2, domain.SeverityCritical), sig)

	if !d.Escalate {
		t.Fatal("expected escalation for CRITICAL")
	}
	if d.Reason != domain.ReasonCriticalSeverity {
		t.Fatalf("expected critical_severity, got %s", d.Reason)
	}
	if d.State != domain.StateEscalated {
		t.Fatalf("expected ESCALATED state, got %s", d.State)
	}
	if d.Intent == nil {
		t.Fatal("expected a ticket intent")
	}
}

func TestEscalation_RepeatedFailures(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	session := emptySession("s1")
	session.Turns = []domain.Turn{
		{SessionID: "s1", IssueType: domain.IssueDNSFailure, Failed: true},
	}

	sig := domain.IssueSignals{IssueType: domain.IssueDNSFailure, ResolutionFailed: true}
	d := m.Decide(session, "that didn't work, dns still fails", domain.GuardrailVerdict{},
		covered(domain.Tier1, domain.SeverityLow), sig)

	if !d.Escalate {
		t.Fatal("expected escalation after repeated failures")
	}
	if d.Reason != domain.ReasonRepeatedFailures {
		t.Fatalf("expected repeated_failures, got %s", d.Reason)
	}
	if !strings.Contains(d.Detail, "2 resolution attempts") {
		t.Fatalf("expected attempt count in detail, got %q", d.Detail)
	}
}

// The current turn's "didn't work" report counts as an attempt even when
// the prior turn itself was not flagged failed: the second unresolved turn
// for an issue type reaches two attempts and escalates.
func TestEscalation_SecondUnresolvedTurnEscalates(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	session := emptySession("s1")
	session.Turns = []domain.Turn{
		{SessionID: "s1", IssueType: domain.IssuePasswordReset},
	}

	sig := domain.IssueSignals{IssueType: domain.IssuePasswordReset, ResolutionFailed: true}
	d := m.Decide(session, "the password reset didn't work", domain.GuardrailVerdict{},
		covered(domain.Tier1, domain.SeverityLow), sig)

	if !d.Escalate {
		t.Fatal("expected escalation on second unresolved turn")
	}
	if d.Reason != domain.ReasonRepeatedFailures {
		t.Fatalf("expected repeated_failures, got %s", d.Reason)
	}
	if !strings.Contains(d.Detail, "2 resolution attempts") {
		t.Fatalf("expected attempt count in detail, got %q", d.Detail)
	}
}

// A user asking not to escalate changes nothing.
func TestEscalation_UserOptOutIsIgnored(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	session := emptySession("s1")
	session.Turns = []domain.Turn{
		{SessionID: "s1", IssueType: domain.IssueDNSFailure, Failed: true},
	}

	sig := domain.IssueSignals{
		IssueType:             domain.IssueDNSFailure,
		ResolutionFailed:      true,
		NoEscalationRequested: true,
	}
	d := m.Decide(session, "don't escalate, but dns still fails", domain.GuardrailVerdict{},
		covered(domain.Tier1, domain.SeverityLow), sig)

	if !d.Escalate {
		t.Fatal("expected escalation despite user opt-out")
	}
}

func TestEscalation_GuardrailBlockWithHighSeverity(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	verdict := domain.GuardrailVerdict{
		Blocked:      true,
		TriggerType:  domain.TriggerHostAccess,
		SeverityHint: domain.SeverityHigh,
	}
	sig := domain.IssueSignals{IssueType: domain.IssueGeneralQuestion}
	d := m.Decide(emptySession("s1"), "give me host access", verdict,
		covered(domain.Tier2, domain.SeverityHigh), sig)

	if !d.Escalate {
		t.Fatal("expected escalation for blocked HIGH request")
	}
	if d.Reason != domain.ReasonGuardrailBlock {
		t.Fatalf("expected guardrail_block, got %s", d.Reason)
	}
}

func TestEscalation_NoCoverage(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	result := domain.ClassificationResult{
		Tier: domain.Tier2, Severity: domain.SeverityLow, Coverage: false,
	}
	sig := domain.IssueSignals{IssueType: domain.IssueGeneralQuestion}
	d := m.Decide(emptySession("s1"), "how do I renew my quantum license", domain.GuardrailVerdict{}, result, sig)

	if !d.Escalate {
		t.Fatal("expected escalation without coverage")
	}
	if d.Reason != domain.ReasonNoCoverage {
		t.Fatalf("expected no_kb_coverage, got %s", d.Reason)
	}
}

func TestEscalation_PlatformIssue(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	sig := domain.IssueSignals{IssueType: domain.IssueKernelPanic}
	d := m.Decide(emptySession("s1"), "kernel panic on boot", domain.GuardrailVerdict{},
		covered(domain.Tier3, domain.SeverityHigh), sig)

	if !d.Escalate {
		t.Fatal("expected escalation for platform issue")
	}
	// CRITICAL would win; HIGH falls through to the platform rule only
	// after repeated-failure and guardrail rules pass.
	if d.Reason != domain.ReasonPlatformIssue {
		t.Fatalf("expected platform_issue, got %s", d.Reason)
	}
}

func TestEscalation_TierRouting(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	sig := domain.IssueSignals{IssueType: domain.IssueDNSFailure}
	d := m.Decide(emptySession("s1"), "dns fails in my lab", domain.GuardrailVerdict{},
		covered(domain.Tier2, domain.SeverityLow), sig)

	if !d.Escalate {
		t.Fatal("expected escalation for TIER_2")
	}
	if d.Reason != domain.ReasonTierRouting {
		t.Fatalf("expected tier_routing, got %s", d.Reason)
	}
	if !strings.Contains(d.Detail, "TIER_2") {
		t.Fatalf("expected tier in detail, got %q", d.Detail)
	}
}

func TestEscalation_NoEscalationForSimpleCoveredQuestion(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	sig := domain.IssueSignals{IssueType: domain.IssueGeneralQuestion}
	d := m.Decide(emptySession("s1"), "where are the course slides", domain.GuardrailVerdict{},
		covered(domain.Tier0, domain.SeverityLow), sig)

	if d.Escalate {
		t.Fatalf("expected no escalation, got %+v", d)
	}
	if d.State != domain.StateAwaitingResolution {
		t.Fatalf("expected AWAITING_RESOLUTION, got %s", d.State)
	}
	if d.Intent != nil {
		t.Fatal("expected no ticket intent")
	}
}

// Once escalated, an issue type never leaves ESCALATED and never produces a
// second ticket intent.
func TestEscalation_EscalatedIsTerminal(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	session := emptySession("s1")
	session.States[domain.IssueDNSFailure] = domain.StateEscalated

	sig := domain.IssueSignals{IssueType: domain.IssueDNSFailure}
	d := m.Decide(session, "any update on my dns problem", domain.GuardrailVerdict{},
		covered(domain.Tier0, domain.SeverityLow), sig)

	if !d.Escalate {
		t.Fatal("expected escalated to stay reported")
	}
	if d.Reason != domain.ReasonAlreadyEscalated {
		t.Fatalf("expected already_escalated, got %s", d.Reason)
	}
	if d.State != domain.StateEscalated {
		t.Fatalf("expected ESCALATED, got %s", d.State)
	}
	if d.Intent != nil {
		t.Fatal("expected no duplicate ticket intent")
	}
}

func TestEscalation_SubjectTruncated(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	long := strings.Repeat("dns fails ", 30)
	sig := domain.IssueSignals{IssueType: domain.IssueDNSFailure}
	d := m.Decide(emptySession("s1"), long, domain.GuardrailVerdict{},
		covered(domain.Tier2, domain.SeverityLow), sig)

	if d.Intent == nil {
		t.Fatal("expected ticket intent")
	}
	if len(d.Intent.Subject) > 100 {
		t.Fatalf("expected subject <= 100 bytes, got %d", len(d.Intent.Subject))
	}
}

func TestEscalation_IntentCarriesClassification(t *testing.T) {
	m := NewEscalationStateMachine(testLogger())

	session := emptySession("s1")
	session.UserRole = domain.RoleInstructor

	sig := domain.IssueSignals{IssueType: domain.IssueKernelPanic}
	result := covered(domain.Tier3, domain.SeverityCritical)
	result.Reasons = []string{"sev-systemic"}
	d := m.Decide(session, "kernel panic everywhere", domain.GuardrailVerdict{}, result, sig)

	if d.Intent == nil {
		t.Fatal("expected intent")
	}
	if d.Intent.SessionID != "s1" || d.Intent.UserRole != domain.RoleInstructor {
		t.Fatalf("intent missing session context: %+v", d.Intent)
	}
	if d.Intent.Tier != domain.Tier3 || d.Intent.Severity != domain.SeverityCritical {
		t.Fatalf("intent missing classification: %+v", d.Intent)
	}
	if len(d.Intent.Reasons) < 2 {
		t.Fatalf("expected classification reasons plus escalation reason, got %v", d.Intent.Reasons)
	}
}
