package contracts

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

const (
	Version = "1.0.0"

	// DataFormatVersion changes whenever the fact table columns change
	DataFormatVersion = "v1"

	// APIVersion is the prefix of the HTTP routes and the websocket protocol
	APIVersion = "v1"
)

// Set with -ldflags "-X tradecohort/pkg/contracts.BuildTime=... -X ...GitCommit=..."
var (
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// VersionInfo is served by /api/v1/version
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
	DataFormat   string `json:"data_format"`
	APIVersion   string `json:"api_version"`
}

// GetVersionInfo reports the ldflags values, falling back to the VCS stamp the go tool
// embeds when the binary was built without them.
func GetVersionInfo() VersionInfo {
	info := VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		DataFormat:   DataFormatVersion,
		APIVersion:   APIVersion,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch {
			case s.Key == "vcs.revision" && info.GitCommit == "unknown":
				info.GitCommit = s.Value
			case s.Key == "vcs.time" && info.BuildTime == "unknown":
				info.BuildTime = s.Value
			}
		}
	}
	return info
}

// GetFullVersionString is the one-line form printed by `cohort version`
func GetFullVersionString() string {
	info := GetVersionInfo()
	return fmt.Sprintf("tradecohort v%s (data %s, built %s, commit %s, %s %s/%s)",
		info.Version, info.DataFormat, info.BuildTime, info.GitCommit, info.GoVersion, info.OS, info.Architecture)
}
