package service

import (
	"regexp"
	"strings"

	"github.com/cyberlab/helpdesk/internal/domain"
	"go.uber.org/zap"
)

// patternGroup is one forbidden-action category. Groups are evaluated in
// declaration order against the normalized request text; when several
// groups match, the highest severity wins and declaration order breaks
// ties.
type patternGroup struct {
	trigger  domain.GuardrailTrigger
	severity domain.Severity
	message  string
	patterns []*regexp.Regexp
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// forbiddenGroups are matched for every role. Privilege never relaxes
// these: an admin asking for host access is blocked the same as a trainee.
var forbiddenGroups = []patternGroup{
	{
		trigger:  domain.TriggerHostAccess,
		severity: domain.SeverityHigh,
		message:  "Access to host machines or hypervisors is not permitted. This request has been logged.",
		patterns: compileAll(
			`access.*host.*machine`,
			`hypervisor.*access`,
			`ssh.*(?:to|into).*host`,
			`connect.*host.*system`,
			`host.*level.*access`,
			`escape.*(?:vm|container)`,
		),
	},
	{
		trigger:  domain.TriggerDisableLogging,
		severity: domain.SeverityHigh,
		message:  "Logging and monitoring cannot be disabled. This is a mandatory security control.",
		patterns: compileAll(
			`disable.*log(?:ging)?`,
			`turn off.*(?:log|monitor)`,
			`bypass.*log(?:ging)?`,
			`stop.*log(?:ging)?`,
			`hide.*activity`,
			`run.*quietly.*without.*log`,
			`suppress.*log`,
		),
	},
	{
		trigger:  domain.TriggerKernelDebug,
		severity: domain.SeverityHigh,
		message:  "Kernel-level debugging and driver modification are not permitted for your role.",
		patterns: compileAll(
			`kernel.*debug`,
			`driver.*modification`,
			`kernel.*module`,
			`modify.*kernel`,
			`kgdb`,
		),
	},
	{
		trigger:  domain.TriggerHostsFile,
		severity: domain.SeverityMedium,
		message:  "Modifying /etc/hosts is not permitted. Please contact support for DNS issues.",
		patterns: compileAll(
			`edit.*etc hosts`,
			`modify.*hosts.*file`,
			`change.*etc hosts`,
			`add.*(?:to|in).*etc hosts`,
			`update.*etc hosts`,
		),
	},
	{
		trigger:  domain.TriggerDestructive,
		severity: domain.SeverityCritical,
		message:  "Destructive system-wide operations are not permitted. Please contact your administrator.",
		patterns: compileAll(
			`reset.*all.*environment`,
			`delete.*all.*(?:lab|vm|environment)`,
			`destroy.*all`,
			`wipe.*all`,
			`remove.*all.*(?:user|lab)`,
		),
	},
}

// roleKeywords blocks OS-level command requests for non-privileged roles.
// Unlike forbiddenGroups, these depend on who is asking.
var roleKeywords = map[domain.UserRole][]string{
	domain.RoleTrainee: {
		"sudo", "root", "admin", "systemctl", "service",
		"iptables", "firewall", "selinux", "chmod 777",
	},
	domain.RoleInstructor: {
		"sudo", "root", "systemctl", "iptables", "firewall",
	},
}

var roleRestrictionMessages = map[domain.UserRole]string{
	domain.RoleTrainee:    "OS-level commands are not available for trainees. Please contact your instructor.",
	domain.RoleInstructor: "OS-level system commands are not available for instructors. Please contact support.",
}

var punctRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeText lowercases the input and collapses punctuation and
// whitespace runs to single spaces, so pattern matching tolerates
// variants like "host-machine" or "host,  machine".
func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// GuardrailEngine is a stateless pattern matcher that runs before any
// retrieval. It never returns an error: malformed or empty text
// normalizes to no-match.
type GuardrailEngine struct {
	logger *zap.Logger
}

func NewGuardrailEngine(logger *zap.Logger) *GuardrailEngine {
	return &GuardrailEngine{logger: logger}
}

// Evaluate checks the request text against the forbidden-action groups and
// then the role restrictions. The verdict is returned for the caller to
// log; emitting the audit event is not this engine's job.
func (g *GuardrailEngine) Evaluate(text string, role domain.UserRole) domain.GuardrailVerdict {
	normalized := normalizeText(text)
	if normalized == "" {
		return domain.GuardrailVerdict{Blocked: false}
	}

	var best *patternGroup
	var bestPattern string
	for i := range forbiddenGroups {
		grp := &forbiddenGroups[i]
		for _, p := range grp.patterns {
			if p.MatchString(normalized) {
				if best == nil || grp.severity.Rank() > best.severity.Rank() {
					best = grp
					bestPattern = p.String()
				}
				break
			}
		}
	}

	if best != nil {
		g.logger.Warn("guardrail triggered",
			zap.String("trigger_type", string(best.trigger)),
			zap.String("user_role", string(role)),
			zap.String("severity", string(best.severity)))
		return domain.GuardrailVerdict{
			Blocked:        true,
			TriggerType:    best.trigger,
			MatchedPattern: bestPattern,
			SeverityHint:   best.severity,
			Message:        best.message,
		}
	}

	if keywords, ok := roleKeywords[role]; ok {
		for _, kw := range keywords {
			// Word boundaries avoid false positives like "rooting for you"
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			if re.MatchString(normalized) {
				g.logger.Warn("role restriction triggered",
					zap.String("keyword", kw),
					zap.String("user_role", string(role)))
				return domain.GuardrailVerdict{
					Blocked:        true,
					TriggerType:    domain.TriggerRoleRestriction,
					MatchedPattern: kw,
					SeverityHint:   domain.SeverityMedium,
					Message:        roleRestrictionMessages[role],
				}
			}
		}
	}

	return domain.GuardrailVerdict{Blocked: false}
}
