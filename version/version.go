// Package version reports what build of flowrun is running.
package version

import (
	"cmp"
	"runtime/debug"
	"strings"
	"sync"
)

// Overridden at link time, e.g.
//
//	go build -ldflags "-X github.com/kbukum/flowrun/version.Version=v1.2.0"
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

const shortCommit = 7

// Info is the build description served on /info.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	IsRelease bool   `json:"is_release"`
	IsDirty   bool   `json:"is_dirty"`
}

type vcs struct {
	goVersion, revision, time string
	modified                  bool
}

var readVCS = sync.OnceValue(func() vcs {
	var v vcs
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	v.goVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.time":
			v.time = s.Value
		case "vcs.modified":
			v.modified = s.Value == "true"
		}
	}
	return v
})

// GetVersionInfo combines the link-time variables with the VCS stamp the
// toolchain embeds. Link-time values win.
func GetVersionInfo() *Info {
	v := readVCS()
	info := &Info{
		Version:   Version,
		GitCommit: cmp.Or(GitCommit, v.revision),
		BuildTime: cmp.Or(BuildTime, v.time),
		GoVersion: v.goVersion,
		IsDirty:   v.modified,
	}
	info.IsRelease = Version != "dev" && !strings.Contains(Version, "dirty")
	if len(info.GitCommit) > shortCommit {
		info.GitCommit = info.GitCommit[:shortCommit]
	}
	return info
}

// GetShortVersion joins version, commit and a dirty marker with dashes,
// e.g. "v1.2.0-a1b2c3d-dirty".
func GetShortVersion() string {
	info := GetVersionInfo()
	parts := []string{info.Version}
	if info.GitCommit != "" {
		parts = append(parts, info.GitCommit)
	}
	if info.IsDirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, "-")
}

