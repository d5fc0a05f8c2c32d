// Package version exposes build-time metadata for fleetrelay binaries.
package version

var (
	// Version is the current application version, populated by the build
	// system (ldflags) or left at the development fallback.
	Version = "v0.1.0-dev"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)
