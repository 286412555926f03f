package build

import "fmt"

// Build metadata injected at link time via -ldflags.
var (
	// Commit is the full git commit hash of the build.
	Commit string

	// GoVersion is the Go toolchain version used for the build.
	GoVersion string
)

const (
	// appMajor defines the major version of this binary.
	appMajor uint = 0

	// appMinor defines the minor version of this binary.
	appMinor uint = 2

	// appPatch defines the application patch for this binary.
	appPatch uint = 0

	// appPreRelease marks the pre-release identifier, empty for
	// tagged releases.
	appPreRelease = "beta"
)

// Version returns the application version as a properly formed string.
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
	if appPreRelease != "" {
		version = fmt.Sprintf("%s-%s", version, appPreRelease)
	}

	return version
}
