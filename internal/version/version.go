// Package version identifies the remoteconfigd and remoteconfig builds.
//
// The values end up in the /json/version document, the mDNS TXT record of
// the node and the 'version' commands. Release builds set them with ldflags:
//
//	go build -ldflags="-X github.com/vanvught/rpidmx512-sub012/internal/version.Version=v1.4.2 \
//	                   -X github.com/vanvught/rpidmx512-sub012/internal/version.Commit=abc1234"
//
// Other builds take the commit from the VCS stamp of the binary and report a
// dev version.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

var (
	// Version is the release of the build, or dev-YYYYMMDD.
	Version = ""
	// Commit is the short git hash, suffixed with -dirty for modified trees.
	Commit = ""
)

const shortHashLen = 7

func init() {
	if Version == "" || Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			fromSettings(info.Settings)
		}
	}

	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fromSettings fills the unset variables from the vcs.* build settings.
func fromSettings(settings []debug.BuildSetting) {
	var revision, vcsTime string
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.time":
			vcsTime = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}

	if Commit == "" && revision != "" {
		if len(revision) > shortHashLen {
			revision = revision[:shortHashLen]
		}
		Commit = revision
		if dirty {
			Commit += "-dirty"
		}
	}

	// Build info carries no tags.
	if Version == "" && vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			Version = "dev-" + t.Format("20060102")
		}
	}
}

// Full returns "<version> (commit: <hash>)" as printed by the version commands.
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
