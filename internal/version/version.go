// Package version reports the boomai release embedded at build time.
package version

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the current version, with whitespace trimmed
func Get() string {
	return strings.TrimSpace(versionContent)
}

// String returns the version prefixed for display, e.g. "boomai v0.1.0".
func String() string {
	return "boomai v" + Get()
}
