// Package version provides build and version information for recdex.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Version is the current version of recdex.
// Set via ldflags at build time:
//
//	-X github.com/Aman-CERP/recdex/pkg/version.Version=$(VERSION)
var Version = "dev"

// Build information set via ldflags at build time.
var (
	// Commit is the git commit hash.
	Commit = "unknown"

	// Date is the build date in RFC3339 format.
	Date = "unknown"

	// GoVersion is the Go version used to build the binary.
	GoVersion = runtime.Version()
)

// BuildInfo is structured version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Engine    string `json:"engine,omitempty"`
}

// engineModule is the search engine whose version is reported.
const engineModule = "github.com/blevesearch/bleve/v2"

// String returns a formatted version string with all build info.
func String() string {
	return fmt.Sprintf("recdex %s (commit: %s, built: %s, go: %s)",
		Version, Commit, Date, GoVersion)
}

// Short returns just the version string.
func Short() string {
	return Version
}

// GetInfo returns structured version information.
func GetInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Engine:    engineVersion(),
	}
}

// engineVersion reads the linked bleve version from the build info.
// Test binaries and builds without module info report "".
func engineVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range bi.Deps {
		if dep.Path == engineModule {
			if dep.Replace != nil {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return ""
}
