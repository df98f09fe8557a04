// Package version provides build and version information for stagehand.
package version

// Version is the current release version of stagehand.
// This can be overridden at build time using:
//
//	go build -ldflags "-X github.com/mverkaik/stagehand/internal/version.Version=x.y.z"
var Version = "1.0.0"
