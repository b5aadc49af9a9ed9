// SPDX-License-Identifier: MIT

// Package build carries build-time metadata injected via -ldflags, e.g.
//
//	go build -ldflags "-X micscope/pkg/build.buildVersion=0.2.0 ..."
//
// Uninjected (development) builds fall back to "dev" placeholders so the
// binary still runs without the release tooling.
package build

// Flags holds the resolved build information.
type Flags struct {
	Name    string // Application name
	Time    string // Build timestamp (RFC3339)
	Commit  string // Git commit hash
	Version string // Semantic version
}

// Populated by -ldflags at link time; empty during development.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string

	flags = Flags{
		Name:    "micscope",
		Time:    "dev",
		Commit:  "dev",
		Version: "dev",
	}
)

// Initialize copies any injected ldflags values over the development
// defaults. Must run before GetFlags is first consulted.
func Initialize() {
	if buildName != "" {
		flags.Name = buildName
	}
	if buildTime != "" {
		flags.Time = buildTime
	}
	if buildCommit != "" {
		flags.Commit = buildCommit
	}
	if buildVersion != "" {
		flags.Version = buildVersion
	}
}

// GetFlags returns the current build information.
func GetFlags() Flags {
	return flags
}
