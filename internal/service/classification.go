package service

import (
	"fmt"

	"github.com/cyberlab/helpdesk/internal/domain"
	"go.uber.org/zap"
)

// classifyInput is everything a classification rule may inspect. All
// fields are value snapshots; rules never reach outside this struct, which
// is what makes the engine deterministic.
type classifyInput struct {
	verdict      domain.GuardrailVerdict
	coverage     bool
	signals      domain.IssueSignals
	failedBefore int             // prior failed resolution attempts for this issue type
	severity     domain.Severity // resolved severity axis, set before tier evaluation
}

// severityRule and tierRule make rule order an explicit, testable data
// structure instead of a nested conditional chain. First match wins.
type severityRule struct {
	id      string
	match   func(in classifyInput) bool
	outcome domain.Severity
}

type tierRule struct {
	id      string
	match   func(in classifyInput) bool
	outcome domain.Tier
}

// severityRules are evaluated high-to-low. The final rule always matches.
var severityRules = []severityRule{
	{
		id:      "sev-data-loss",
		match:   func(in classifyInput) bool { return in.signals.DataLossRisk },
		outcome: domain.SeverityCritical,
	},
	{
		id:      "sev-security",
		match:   func(in classifyInput) bool { return in.signals.SecuritySensitive },
		outcome: domain.SeverityCritical,
	},
	{
		id:      "sev-systemic",
		match:   func(in classifyInput) bool { return in.signals.IssueType.IsSystemic() },
		outcome: domain.SeverityCritical,
	},
	{
		id: "sev-guardrail-critical",
		match: func(in classifyInput) bool {
			return in.verdict.Blocked && in.verdict.SeverityHint == domain.SeverityCritical
		},
		outcome: domain.SeverityCritical,
	},
	{
		id: "sev-guardrail-high",
		match: func(in classifyInput) bool {
			return in.verdict.Blocked && in.verdict.SeverityHint == domain.SeverityHigh
		},
		outcome: domain.SeverityHigh,
	},
	{
		id:      "sev-multiple-users",
		match:   func(in classifyInput) bool { return in.signals.UsersAffected > 5 },
		outcome: domain.SeverityHigh,
	},
	{
		id: "sev-critical-issue-type",
		match: func(in classifyInput) bool {
			switch in.signals.IssueType {
			case domain.IssueKernelPanic, domain.IssueImageBug, domain.IssueLabCrash:
				return true
			}
			return false
		},
		outcome: domain.SeverityHigh,
	},
	{
		id:      "sev-blocking",
		match:   func(in classifyInput) bool { return in.signals.Blocking },
		outcome: domain.SeverityMedium,
	},
	{
		id: "sev-blocking-issue-type",
		match: func(in classifyInput) bool {
			switch in.signals.IssueType {
			case domain.IssueContainerInit, domain.IssueAuthenticationLoop,
				domain.IssueEnvironmentMapping, domain.IssueVMUnresponsive:
				return true
			}
			return false
		},
		outcome: domain.SeverityMedium,
	},
	{
		id:      "sev-default-low",
		match:   func(in classifyInput) bool { return true },
		outcome: domain.SeverityLow,
	},
}

// tierRules derive the attempt/coverage axis of the tier. The issue-type
// axis is derived separately and the two are reconciled by taking the
// maximum. The final rule always matches.
var tierRules = []tierRule{
	{
		id:      "tier-platform-issue",
		match:   func(in classifyInput) bool { return in.signals.IssueType.IsPlatformIssue() },
		outcome: domain.Tier3,
	},
	{
		id:      "tier-multiple-users",
		match:   func(in classifyInput) bool { return in.signals.MultipleUsersAffected },
		outcome: domain.Tier2,
	},
	{
		id:      "tier-repeated-failure",
		match:   func(in classifyInput) bool { return in.failedBefore >= 1 },
		outcome: domain.Tier2,
	},
	{
		id:      "tier-no-coverage",
		match:   func(in classifyInput) bool { return !in.coverage },
		outcome: domain.Tier2,
	},
	{
		id: "tier-first-attempt-covered",
		match: func(in classifyInput) bool {
			return in.coverage && in.failedBefore == 0 && in.severity == domain.SeverityLow
		},
		outcome: domain.Tier0,
	},
	{
		id:      "tier-default",
		match:   func(in classifyInput) bool { return true },
		outcome: domain.Tier1,
	},
}

// ClassificationEngine maps a turn's signals to tier and severity via
// ordered rule evaluation. Identical input always yields an identical
// result: no randomness, no external calls.
type ClassificationEngine struct {
	logger *zap.Logger
}

func NewClassificationEngine(logger *zap.Logger) *ClassificationEngine {
	return &ClassificationEngine{logger: logger}
}

// Classify evaluates the severity axis, then the two tier axes, and
// reconciles tier to the most escalated of the two. Reasons record the
// fired rule ids in evaluation order.
func (c *ClassificationEngine) Classify(verdict domain.GuardrailVerdict, coverage bool, signals domain.IssueSignals, session *domain.SessionState) domain.ClassificationResult {
	in := classifyInput{
		verdict:  verdict,
		coverage: coverage,
		signals:  signals,
	}
	if session != nil {
		in.failedBefore = session.FailedAttempts(signals.IssueType)
	}

	var reasons []string

	severity, sevID := evalSeverity(in)
	reasons = append(reasons, sevID)
	in.severity = severity

	// Severity feeds back into the tier axis: HIGH/CRITICAL never stays
	// below TIER_2.
	ruleTier, tierID := evalTier(in)
	reasons = append(reasons, tierID)

	issueTier := domain.Tier1
	if t, ok := domain.IssueTierMap[signals.IssueType]; ok {
		issueTier = t
		reasons = append(reasons, "tier-issue-map:"+string(signals.IssueType))
	}

	tier := domain.MaxTier(ruleTier, issueTier)
	if severity.AtLeast(domain.SeverityHigh) && tier.Rank() < domain.Tier2.Rank() {
		tier = domain.Tier2
		reasons = append(reasons, "tier-severity-floor")
	}

	c.logger.Info("classification",
		zap.String("tier", string(tier)),
		zap.String("severity", string(severity)),
		zap.Bool("coverage", coverage),
		zap.String("issue_type", string(signals.IssueType)),
		zap.Strings("reasons", reasons))

	return domain.ClassificationResult{
		Tier:     tier,
		Severity: severity,
		Coverage: coverage,
		Reasons:  reasons,
	}
}

// evalSeverity walks the severity rules in order. Every axis ends in a
// catch-all rule; reaching the end without a match is a logic gap, not a
// recoverable condition.
func evalSeverity(in classifyInput) (domain.Severity, string) {
	for _, r := range severityRules {
		if r.match(in) {
			return r.outcome, r.id
		}
	}
	panic(fmt.Sprintf("severity rules have no default branch for input %+v", in))
}

func evalTier(in classifyInput) (domain.Tier, string) {
	for _, r := range tierRules {
		if r.match(in) {
			return r.outcome, r.id
		}
	}
	panic(fmt.Sprintf("tier rules have no default branch for input %+v", in))
}
