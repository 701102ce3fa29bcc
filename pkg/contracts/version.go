// Package contracts holds the public API surface shared by the server and
// its clients.
package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version of the dashcli binaries
	Version = "1.0.0"

	// APIVersion is the version of the HTTP API contracts
	APIVersion = "v1"
)

// Set with -ldflags "-X dashcli/pkg/contracts.GitCommit=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is the payload of GET /api/version
type VersionInfo struct {
	Version      string `json:"version"`
	APIVersion   string `json:"api_version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// GetVersionInfo returns the build information of the running binary
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		APIVersion:   APIVersion,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// VersionString is the one-line form printed by --version
func VersionString() string {
	return fmt.Sprintf("%s (api %s, commit %s, %s/%s)", Version, APIVersion, GitCommit, runtime.GOOS, runtime.GOARCH)
}
