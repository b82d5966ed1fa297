package buildconfig

// Build-time variables injected via ldflags:
//
//	-X github.com/cyberlab/helpdesk/internal/buildconfig.version=v1.2.3
//	-X github.com/cyberlab/helpdesk/internal/buildconfig.commit=abc1234
var (
	version = "dev"
	commit  = "unknown"
)

// Version returns the build version
func Version() string {
	return version
}

// Commit returns the git commit hash
func Commit() string {
	return commit
}

// String returns a single-line form for startup logs, e.g. "dev (unknown)".
func String() string {
	return version + " (" + commit + ")"
}

// VersionInfo returns full version information
func VersionInfo() map[string]string {
	return map[string]string{
		"version": version,
		"commit":  commit,
	}
}
