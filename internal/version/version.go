// Package version enables setting build-time version using ldflags.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// ProjectName is the canonical project name set by ldflags
	ProjectName = "foodmap"
	// ProjectURL is the canonical project url set by ldflags
	ProjectURL = "https://github.com/campus-foodmap/foodmap"
	// Version specifies Semantic versioning increment (MAJOR.MINOR.PATCH).
	Version = "v0.0.0"
	// GitCommit specifies the git commit sha, set by the compiler.
	GitCommit = ""
	// BuildMeta specifies release type (dev,rc1,beta,etc)
	BuildMeta = ""

	runtimeVersion = runtime.Version()
)

// FullVersion returns a version string.
func FullVersion() string {
	var sb strings.Builder
	sb.WriteString(Version)
	if BuildMeta != "" {
		sb.WriteString("-" + BuildMeta)
	}
	if GitCommit != "" {
		sb.WriteString("+" + GitCommit)
	}
	return sb.String()
}

// UserAgent returns the user-agent sent to the food-map API, as specified in
// RFC 2616:14.43.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (+%s; %s)", ProjectName, FullVersion(), ProjectURL, runtimeVersion)
}
