// Package version holds knowbase build metadata injected via ldflags.
package version

import "fmt"

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String renders the build info as shown in startup logs.
func String() string {
	return fmt.Sprintf("knowbase %s (%s, built %s)", Version, Commit, Date)
}
