package domain

// Tier is the support routing level, from fully automated self-service
// to platform engineering.
type Tier string

const (
	Tier0 Tier = "TIER_0" // self-service via KB
	Tier1 Tier = "TIER_1" // human generalist
	Tier2 Tier = "TIER_2" // support engineer
	Tier3 Tier = "TIER_3" // platform engineering
)

var tierRank = map[Tier]int{
	Tier0: 0,
	Tier1: 1,
	Tier2: 2,
	Tier3: 3,
}

// Rank returns the tier's position in the escalation order.
func (t Tier) Rank() int {
	return tierRank[t]
}

// MaxTier returns the more escalated of two tiers.
func MaxTier(a, b Tier) Tier {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

func ValidTier(t string) bool {
	_, ok := tierRank[Tier(t)]
	return ok
}

// Severity is the impact classification of an issue.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

func ValidSeverity(s string) bool {
	_, ok := severityRank[Severity(s)]
	return ok
}

// UserRole determines which knowledge fragments a requester may see.
// Roles are ordered by privilege; a more privileged role always sees a
// superset of a less privileged role's fragments.
type UserRole string

const (
	RoleTrainee         UserRole = "trainee"
	RoleInstructor      UserRole = "instructor"
	RoleOperator        UserRole = "operator"
	RoleSupportEngineer UserRole = "support_engineer"
	RoleAdmin           UserRole = "admin"
)

var rolePrivilege = map[UserRole]int{
	RoleTrainee:         0,
	RoleInstructor:      1,
	RoleOperator:        2,
	RoleSupportEngineer: 3,
	RoleAdmin:           4,
}

// Privilege returns the role's position in the privilege order.
func (r UserRole) Privilege() int {
	return rolePrivilege[r]
}

func ValidUserRole(r string) bool {
	_, ok := rolePrivilege[UserRole(r)]
	return ok
}

// IssueType is the deterministic issue taxonomy extracted from request text.
type IssueType string

const (
	// Self-service issues
	IssueGeneralQuestion IssueType = "general_question"
	IssueDocumentation   IssueType = "documentation_request"
	IssueHowTo           IssueType = "how_to"

	// Human-generalist issues
	IssuePasswordReset IssueType = "password_reset"
	IssueBasicAccess   IssueType = "basic_access"
	IssueAccountLocked IssueType = "account_locked"
	IssueMFAReset      IssueType = "mfa_reset"

	// Support-engineer issues
	IssueLabCrash            IssueType = "lab_crash"
	IssueVMUnresponsive      IssueType = "vm_unresponsive"
	IssueDNSFailure          IssueType = "dns_failure"
	IssueContainerInit       IssueType = "container_init_failure"
	IssueNetworkConnectivity IssueType = "network_connectivity"
	IssueEnvironmentMapping  IssueType = "environment_mapping"
	IssueAuthenticationLoop  IssueType = "authentication_loop"
	IssueTimeDrift           IssueType = "time_drift"

	// Platform-engineering issues
	IssueKernelPanic    IssueType = "kernel_panic"
	IssueImageBug       IssueType = "image_bug"
	IssueSystemicOutage IssueType = "systemic_outage"
	IssueInfraFailure   IssueType = "infrastructure_failure"
)

// IssueTierMap maps issue types to their baseline routing tier.
var IssueTierMap = map[IssueType]Tier{
	IssueGeneralQuestion: Tier0,
	IssueDocumentation:   Tier0,
	IssueHowTo:           Tier0,

	IssuePasswordReset: Tier1,
	IssueBasicAccess:   Tier1,
	IssueAccountLocked: Tier1,
	IssueMFAReset:      Tier1,

	IssueLabCrash:            Tier2,
	IssueVMUnresponsive:      Tier2,
	IssueDNSFailure:          Tier2,
	IssueContainerInit:       Tier2,
	IssueNetworkConnectivity: Tier2,
	IssueEnvironmentMapping:  Tier2,
	IssueAuthenticationLoop:  Tier2,
	IssueTimeDrift:           Tier2,

	IssueKernelPanic:    Tier3,
	IssueImageBug:       Tier3,
	IssueSystemicOutage: Tier3,
	IssueInfraFailure:   Tier3,
}

// IsPlatformIssue reports whether the issue type indicates a platform-level
// failure that bypasses attempt-count based routing.
func (t IssueType) IsPlatformIssue() bool {
	switch t {
	case IssueKernelPanic, IssueImageBug, IssueSystemicOutage, IssueInfraFailure:
		return true
	}
	return false
}

// IsSystemic reports whether the issue type indicates a system-wide outage.
func (t IssueType) IsSystemic() bool {
	return t == IssueSystemicOutage || t == IssueInfraFailure
}

// GuardrailTrigger categorizes which forbidden-action group matched.
type GuardrailTrigger string

const (
	TriggerNone            GuardrailTrigger = ""
	TriggerHostAccess      GuardrailTrigger = "host_access"
	TriggerDisableLogging  GuardrailTrigger = "disable_logging"
	TriggerKernelDebug     GuardrailTrigger = "kernel_debug"
	TriggerHostsFile       GuardrailTrigger = "hosts_file"
	TriggerDestructive     GuardrailTrigger = "destructive"
	TriggerRoleRestriction GuardrailTrigger = "role_restriction"
)

// GuardrailVerdict is the outcome of the pre-retrieval safety check.
// It is created fresh per request and never persisted by the core.
type GuardrailVerdict struct {
	Blocked        bool             `json:"blocked"`
	TriggerType    GuardrailTrigger `json:"trigger_type,omitempty"`
	MatchedPattern string           `json:"matched_pattern,omitempty"`
	SeverityHint   Severity         `json:"severity_hint,omitempty"`
	Message        string           `json:"message,omitempty"`
}

// IssueSignals are the deterministic signals extracted from request text.
type IssueSignals struct {
	IssueType             IssueType `json:"issue_type"`
	MultipleUsersAffected bool      `json:"multiple_users_affected"`
	UsersAffected         int       `json:"users_affected"`
	SecuritySensitive     bool      `json:"security_sensitive"`
	DataLossRisk          bool      `json:"data_loss_risk"`
	Blocking              bool      `json:"blocking"`
	ResolutionFailed      bool      `json:"resolution_failed"`
	NoEscalationRequested bool      `json:"no_escalation_requested"`
}

// ClassificationResult is the deterministic routing decision for one turn.
// Immutable once returned.
type ClassificationResult struct {
	Tier     Tier     `json:"tier"`
	Severity Severity `json:"severity"`
	Coverage bool     `json:"coverage"`
	Reasons  []string `json:"reasons"`
}
