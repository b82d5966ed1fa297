package service

import (
	"testing"

	"github.com/cyberlab/helpdesk/internal/domain"
)

func TestSignals_IssueTypeDetection(t *testing.T) {
	e := NewSignalExtractor()

	cases := []struct {
		message string
		want    domain.IssueType
	}{
		{"my vm is showing a kernel panic", domain.IssueKernelPanic},
		{"the entire platform seems down", domain.IssueSystemicOutage},
		{"my lab crashed and I lost my place", domain.IssueLabCrash},
		{"the container init failed when starting module 3", domain.IssueContainerInit},
		{"dns lookups fail inside my lab", domain.IssueDNSFailure},
		{"I keep getting redirected to the login page", domain.IssueAuthenticationLoop},
		{"I was dropped into the wrong environment", domain.IssueEnvironmentMapping},
		{"the clock in my vm is off by hours", domain.IssueTimeDrift},
		{"no network connectivity from my workstation", domain.IssueNetworkConnectivity},
		{"I forgot my password", domain.IssuePasswordReset},
		{"my authenticator app shows the wrong codes", domain.IssueMFAReset},
		{"I am locked out of my account", domain.IssueAccountLocked},
		{"thanks, just a quick question about the course", domain.IssueGeneralQuestion},
	}
	for _, c := range cases {
		sig := e.Extract(c.message, nil)
		if sig.IssueType != c.want {
			t.Errorf("Extract(%q).IssueType = %s, want %s", c.message, sig.IssueType, c.want)
		}
	}
}

// Specific platform types are declared before generic ones, so a message
// matching both resolves to the more specific type.
func TestSignals_KeywordOrderPrecedence(t *testing.T) {
	e := NewSignalExtractor()

	sig := e.Extract("kernel panic after I reset my password", nil)
	if sig.IssueType != domain.IssueKernelPanic {
		t.Fatalf("expected kernel_panic to win, got %s", sig.IssueType)
	}
}

func TestSignals_FragmentFallbackHint(t *testing.T) {
	e := NewSignalExtractor()

	frags := []domain.FragmentWithScore{
		{KnowledgeFragment: domain.KnowledgeFragment{
			ID:   "f1",
			Text: "When a kernel panic occurs in the lab VM, collect the trace.",
		}},
	}
	sig := e.Extract("my screen went black and nothing responds", frags)
	if sig.IssueType != domain.IssueKernelPanic {
		t.Fatalf("expected fragment hint to yield kernel_panic, got %s", sig.IssueType)
	}
}

func TestSignals_MultipleUsers(t *testing.T) {
	e := NewSignalExtractor()

	sig := e.Extract("nobody can log in, my team is stuck", nil)
	if !sig.MultipleUsersAffected {
		t.Fatal("expected multiple users detected")
	}
	if sig.UsersAffected != 10 {
		t.Fatalf("expected users affected estimate 10, got %d", sig.UsersAffected)
	}

	sig = e.Extract("I cannot log in", nil)
	if sig.MultipleUsersAffected || sig.UsersAffected != 1 {
		t.Fatalf("expected single user, got %+v", sig)
	}
}

func TestSignals_SecurityAndDataLoss(t *testing.T) {
	e := NewSignalExtractor()

	sig := e.Extract("someone got root access without authorization", nil)
	if !sig.SecuritySensitive {
		t.Fatal("expected security sensitive")
	}

	sig = e.Extract("the editor corrupted my files", nil)
	if !sig.DataLossRisk {
		t.Fatal("expected data loss risk from keyword")
	}

	// Crash-class issue plus a work mention implies loss risk.
	sig = e.Extract("my lab crashed in the middle of my work", nil)
	if sig.IssueType != domain.IssueLabCrash || !sig.DataLossRisk {
		t.Fatalf("expected lab crash with data loss risk, got %+v", sig)
	}
}

func TestSignals_BlockingAndResolutionFailed(t *testing.T) {
	e := NewSignalExtractor()

	sig := e.Extract("I can't continue the module", nil)
	if !sig.Blocking {
		t.Fatal("expected blocking")
	}

	sig = e.Extract("I tried restarting but it didn't work", nil)
	if !sig.ResolutionFailed {
		t.Fatal("expected resolution failed")
	}
}

func TestSignals_NoEscalationRequestDetected(t *testing.T) {
	e := NewSignalExtractor()

	sig := e.Extract("please don't escalate this, the dns still fails", nil)
	if !sig.NoEscalationRequested {
		t.Fatal("expected no-escalation request flag")
	}
	if sig.IssueType != domain.IssueDNSFailure {
		t.Fatalf("expected dns_failure, got %s", sig.IssueType)
	}
}
