package version

import "fmt"

var (
	// Version is the application version (set at build time)
	Version = "dev"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"
)

// String returns a formatted version string
func String() string {
	return fmt.Sprintf("v%s (commit: %s)", Version, Commit)
}
