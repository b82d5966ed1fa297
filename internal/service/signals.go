package service

import (
	"strings"

	"github.com/cyberlab/helpdesk/internal/domain"
)

// issueKeywords maps keyword sets to issue types, evaluated in order so
// the most specific (platform-level) types win over generic ones.
var issueKeywords = []struct {
	issueType domain.IssueType
	keywords  []string
}{
	{domain.IssueKernelPanic, []string{"kernel panic", "kernel crash"}},
	{domain.IssueSystemicOutage, []string{"systemic", "all users", "entire platform"}},
	{domain.IssueLabCrash, []string{"lab crash", "vm crash", "lab froze", "vm froze"}},
	{domain.IssueContainerInit, []string{"container", "init failed", "startup.sh"}},
	{domain.IssueDNSFailure, []string{"dns", "resolve", "domain"}},
	{domain.IssueAuthenticationLoop, []string{"redirected", "login loop", "keep logging in"}},
	{domain.IssueEnvironmentMapping, []string{"wrong environment", "wrong lab", "incorrect environment"}},
	{domain.IssueTimeDrift, []string{"time drift", "clock", "time sync"}},
	{domain.IssueNetworkConnectivity, []string{"network", "connectivity", "can't connect"}},
	{domain.IssuePasswordReset, []string{"password", "reset password", "forgot password"}},
	{domain.IssueMFAReset, []string{"mfa", "multi-factor", "authenticator"}},
	{domain.IssueAccountLocked, []string{"locked out", "account locked"}},
	{domain.IssueBasicAccess, []string{"access", "can't access", "unable to access"}},
}

var multipleUserIndicators = []string{
	"everyone", "all users", "multiple users", "other users",
	"my team", "our team", "we all", "nobody can", "no one can",
}

var securityKeywords = []string{
	"disable logging", "bypass", "host access", "hypervisor",
	"privilege escalation", "root access", "unauthorized",
}

var dataLossKeywords = []string{
	"lost work", "lost progress", "lost data", "data loss",
	"deleted", "corrupted", "can't recover",
}

var resolutionFailedPhrases = []string{
	"didn't work", "not working", "still doesn't", "not resolved",
}

var noEscalationPhrases = []string{
	"don't escalate", "do not escalate", "no ticket", "don't create a ticket",
}

// SignalExtractor derives deterministic routing signals from request text.
// It is pure keyword matching; the same text always yields the same
// signals.
type SignalExtractor struct{}

func NewSignalExtractor() *SignalExtractor {
	return &SignalExtractor{}
}

// Extract computes all issue signals for one turn. Fragment texts are used
// only as a fallback hint for issue-type detection when the message itself
// is inconclusive.
func (e *SignalExtractor) Extract(message string, fragments []domain.FragmentWithScore) domain.IssueSignals {
	lower := strings.ToLower(message)

	signals := domain.IssueSignals{
		IssueType:             e.detectIssueType(lower, fragments),
		MultipleUsersAffected: containsAny(lower, multipleUserIndicators),
		SecuritySensitive:     containsAny(lower, securityKeywords),
		Blocking:              strings.Contains(lower, "can't") || strings.Contains(lower, "cannot") || strings.Contains(lower, "unable"),
		ResolutionFailed:      containsAny(lower, resolutionFailedPhrases),
		NoEscalationRequested: containsAny(lower, noEscalationPhrases),
	}

	signals.UsersAffected = 1
	if signals.MultipleUsersAffected {
		signals.UsersAffected = 10
	}

	signals.DataLossRisk = e.detectDataLossRisk(lower, signals.IssueType)

	return signals
}

func (e *SignalExtractor) detectIssueType(lower string, fragments []domain.FragmentWithScore) domain.IssueType {
	for _, entry := range issueKeywords {
		if containsAny(lower, entry.keywords) {
			return entry.issueType
		}
	}

	// Fragment text can hint at the issue when the message is vague.
	for _, f := range fragments {
		text := strings.ToLower(f.Text)
		if strings.Contains(text, "kernel panic") {
			return domain.IssueKernelPanic
		}
		if strings.Contains(text, "container") && strings.Contains(text, "init") {
			return domain.IssueContainerInit
		}
	}

	return domain.IssueGeneralQuestion
}

func (e *SignalExtractor) detectDataLossRisk(lower string, issueType domain.IssueType) bool {
	if containsAny(lower, dataLossKeywords) {
		return true
	}

	// Crash-class issues with a work/progress mention imply loss risk.
	switch issueType {
	case domain.IssueLabCrash, domain.IssueVMUnresponsive, domain.IssueKernelPanic:
		if containsAny(lower, []string{"work", "progress", "save"}) {
			return true
		}
	}

	return false
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
