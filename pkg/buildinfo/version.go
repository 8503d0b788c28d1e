// Package buildinfo reports the taskmap build.
//
// Release builds stamp the variables through ldflags:
//
//	go build -ldflags "-X github.com/matzehuels/taskmap/pkg/buildinfo.Version=v0.3.0 \
//	    -X github.com/matzehuels/taskmap/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/taskmap/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Binaries from "go install" carry no ldflags; [Read] then falls back to the
// module version and VCS settings embedded by the toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

// Stamped by ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info describes one build.
type Info struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Modified  bool // built from a dirty tree
}

// Read returns the stamped build info, completed from the embedded module
// data where the stamp is missing.
func Read() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fill(&info, bi)
	}
	return info
}

func fill(info *Info, bi *debug.BuildInfo) {
	info.GoVersion = bi.GoVersion
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "none" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "unknown" {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += " (modified)"
	}
	s := fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", i.Version, commit, i.Date)
	if i.GoVersion != "" {
		s += "\ngo: " + i.GoVersion
	}
	return s
}

// String is Read().String().
func String() string {
	return Read().String()
}

// Template is the cobra version template.
func Template() string {
	i := Read()
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", i.Version, i.Commit, i.Date)
}
