// Package version carries build metadata injected at link time via
// -ldflags "-X github.com/bryokim/AirBnB-clone-v3/internal/version.Version=...".
package version

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)
