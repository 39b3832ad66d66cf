// Package version holds build-time version information.
package version

// Version is the application version, overridable at build time via
// -ldflags "-X github.com/cryptofolio/backend/internal/version.Version=...".
var Version = "dev"
