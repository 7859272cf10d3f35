package core

// Build metadata, set with -ldflags "-X nftgen/core.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// VersionInfo returns "version (commit)".
func VersionInfo() string {
	return Version + " (" + GitCommit + ")"
}
