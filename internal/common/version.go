package common

import "fmt"

// Populated at build time via -ldflags.
var (
	version   = "v0.0.1"
	gitCommit = "none"
	buildDate = "unknown"
)

// BuildInfo holds the versioning data baked into the binary.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

func Get() BuildInfo {
	return BuildInfo{
		Version:   version,
		GitCommit: gitCommit,
		BuildDate: buildDate,
	}
}

func GetVersion() string {
	return version
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", b.Version, b.GitCommit, b.BuildDate)
}
