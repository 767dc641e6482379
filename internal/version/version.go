// Package version reports the relay's build identity. The release build stamps
// the variables below; the values show up in the startup log and on GET /health.
//
//	go build -ldflags "-X github.com/rickgao/cryptodash/internal/version.Version=$(git describe --tags) \
//	                   -X github.com/rickgao/cryptodash/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/rickgao/cryptodash/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/relay
package version

import "log/slog"

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build identity of the running relay.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

// Get returns the stamped build identity.
func Get() Info {
	return Info{Version: Version, Commit: Commit, BuildTime: BuildTime}
}

func (i Info) String() string {
	return i.Version + " (" + i.Commit + ") built " + i.BuildTime
}

// LogValue logs the build as a group.
func (i Info) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("version", i.Version),
		slog.String("commit", i.Commit),
		slog.String("build_time", i.BuildTime),
	)
}

// String returns the one-line form reported by /health.
func String() string {
	return Get().String()
}
