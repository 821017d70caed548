// Package version carries the build identity stamped in via ldflags. The
// values here are the fallbacks for plain `go build` runs.
package version

var (
	// Version is the release tag of this build.
	Version = "v1.3.0"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)
