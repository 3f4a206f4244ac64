package version

import (
	"runtime/debug"
)

var version = "dev"

// Version returns the current version string, including the linked
// goldmark parser version when build info is available.
func Version() string {
	gmVersion := GoldmarkVersion()
	if gmVersion != "" {
		return version + " (goldmark " + gmVersion + ")"
	}
	return version
}

// RawVersion returns just the server's own version, without the
// goldmark suffix, for ServerInfo.Version.
func RawVersion() string {
	return version
}

// GoldmarkVersion returns the linked goldmark module version from build
// info, or "" if unavailable (e.g. a non-module build).
func GoldmarkVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, dep := range info.Deps {
		if dep.Path == "github.com/yuin/goldmark" {
			return dep.Version
		}
	}
	return ""
}
