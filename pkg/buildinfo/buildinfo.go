// Package buildinfo resolves the version of the litemove binary, from
// -ldflags when the release build sets them and from the VCS settings
// embedded by the Go toolchain otherwise.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Info holds the resolved build metadata.
type Info struct {
	Version  string // "v1.2.3", or "dev"
	Commit   string // full git commit hash, or "unknown"
	Date     string // RFC3339, or "unknown"
	Modified bool   // the working tree had uncommitted changes
	GoVer    string
}

var (
	ldflagsVersion string
	ldflagsCommit  string
	ldflagsDate    string

	once   sync.Once
	cached Info
)

// Set stores the values injected into main with -ldflags, e.g.
//
//	go build -ldflags "-X main.version=v1.2.3 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Call it from main() before Get.
func Set(version, commit, date string) {
	ldflagsVersion = version
	ldflagsCommit = commit
	ldflagsDate = date
}

// Get returns the resolved build info. It is computed once.
func Get() Info {
	once.Do(func() {
		cached = resolve()
	})
	return cached
}

func resolve() Info {
	info := Info{
		Version: "dev",
		Commit:  "unknown",
		Date:    "unknown",
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVer = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.Commit = s.Value
			case "vcs.time":
				info.Date = s.Value
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
		if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
	}
	if ldflagsVersion != "" {
		info.Version = ldflagsVersion
	}
	if ldflagsCommit != "" {
		info.Commit = ldflagsCommit
	}
	if ldflagsDate != "" {
		info.Date = ldflagsDate
	}
	return info
}

// ShortCommit is the first 12 characters of the commit.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 12 {
		return i.Commit[:12]
	}
	return i.Commit
}

func (i Info) String() string {
	dirty := ""
	if i.Modified {
		dirty = "-dirty"
	}
	return fmt.Sprintf("litemove %s (commit %s%s, built %s, %s)", i.Version, i.ShortCommit(), dirty, i.Date, i.GoVer)
}
