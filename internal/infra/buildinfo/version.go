package buildinfo

import (
	"runtime/debug"
	"sync"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"

	// GoVersion is the Go version used to build.
	GoVersion = "unknown"
)

var goVersionOnce sync.Once

// Info contains build information.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: goVersion(),
	}
}

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}

// UserAgent returns the User-Agent a program sends, e.g. "quota-cli/v1.2.0".
func UserAgent(program string) string {
	return program + "/" + Version
}

func goVersion() string {
	goVersionOnce.Do(func() {
		if GoVersion != "unknown" {
			return
		}
		if bi, ok := debug.ReadBuildInfo(); ok && bi.GoVersion != "" {
			GoVersion = bi.GoVersion
		}
	})
	return GoVersion
}
