// Package version reports the build version of the binder binaries.
// Set it at build time:
//
//	go build -ldflags "-X github.com/ramonehamilton/mtg-binder/internal/version.Version=v0.3.0" ./cmd/...
package version

// Version defaults to "dev" for local builds.
var Version = "dev"

// Service names the API in status responses.
const Service = "mtg-binder-api"

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}
