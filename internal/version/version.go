// Package version reports build information for the tracklist binary.
//
// Values set through -ldflags take precedence; otherwise they are read from
// the module build info embedded by the Go toolchain.
package version

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set with -ldflags "-X github.com/tesh254/tracklist/internal/version.Version=v1.2.3".
var (
	Version   = ""
	GitCommit = ""
	BuildDate = ""
)

const devVersion = "v0.0.0-dev"

// BuildInfo is the information printed by the buildinfo command.
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	GitTag     string `json:"git_tag"`
	BuildDate  string `json:"build_date"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Compiler   string `json:"compiler"`
	IsModified bool   `json:"is_modified"`
	ModulePath string `json:"module_path,omitempty"`
	ModuleSum  string `json:"module_sum,omitempty"`
}

// GetBuildInfo collects build information from ldflags and the runtime.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		GitTag:    "unknown",
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Compiler:  runtime.Compiler,
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		info.ModulePath = bi.Main.Path
		info.ModuleSum = bi.Main.Sum
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.time":
				if info.BuildDate == "" {
					info.BuildDate = s.Value
				}
			case "vcs.modified":
				info.IsModified = s.Value == "true"
			}
		}
	}

	if info.Version == "" {
		info.Version = devVersion
	} else if IsRelease() || strings.HasPrefix(info.Version, "v") {
		info.GitTag = info.Version
	}
	if info.GitCommit == "" {
		info.GitCommit = "unknown"
	}
	if info.BuildDate == "" {
		info.BuildDate = "unknown"
	}
	return info
}

// GetVersion returns the semantic version, always prefixed with "v".
func GetVersion() string {
	v := GetBuildInfo().Version
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// GetShortVersion returns the version without build metadata.
func GetShortVersion() string {
	v := GetVersion()
	if i := strings.IndexAny(v, "+"); i >= 0 {
		v = v[:i]
	}
	return v
}

// GetVersionWithCommit returns the version and the abbreviated commit.
func GetVersionWithCommit() string {
	info := GetBuildInfo()
	commit := info.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s (%s)", GetVersion(), commit)
}

// GetDetailedVersion returns a multi-line human readable description.
func GetDetailedVersion() string {
	info := GetBuildInfo()
	return fmt.Sprintf("tracklist %s\ncommit: %s\nbuilt: %s\ngo: %s %s",
		GetVersion(), info.GitCommit, info.BuildDate, info.GoVersion, info.Platform)
}

// GetJSONVersion returns the build info as indented JSON.
func GetJSONVersion() string {
	b, err := json.MarshalIndent(GetBuildInfo(), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// IsDevelopment reports whether the binary was built without a release version.
func IsDevelopment() bool {
	return !IsRelease()
}

// IsRelease reports whether a release version was stamped in at link time.
func IsRelease() bool {
	return Version != "" && !strings.Contains(Version, "dev")
}
