// Package version provides the version and build information.
package version

import (
	"os"
	"path"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
)

// Info is the version and build information of the current binary.
type Info struct {
	Name    string `json:"name"` // base name of the binary
	Version string `json:"version"`
	Commit  string `json:"commit"`   // BuildInfo's vcs.revision
	BuiltAt string `json:"built_at"` // BuildInfo's vcs.date
	Go      string `json:"go"`       // BuildInfo's Go version
	OS      string `json:"os"`       // GOOS
	Arch    string `json:"arch"`     // GOARCH
}

// String implements the fmt.Stringer interface.
func (i Info) String() string {
	var sb strings.Builder

	sb.WriteString(i.Name + " " + i.Version + " (" + i.Go + ", " + i.OS + "/" + i.Arch + ")" + "\n")
	if i.Commit != "" && i.BuiltAt != "" {
		sb.WriteString("commit " + i.Commit + "\n")
		sb.WriteString("built at " + i.BuiltAt + "\n")
	}

	return sb.String()
}

var (
	loadFunc = debug.ReadBuildInfo // replaced in tests

	once sync.Once
	info Info
)

// Version returns the version and build information of the current binary.
func Version() Info {
	once.Do(func() { info = loadInfo(loadFunc) })
	return info
}

// CmdName returns the base name of the current binary.
func CmdName() string { return Version().Name }

// UserAgent returns a user agent string by combining the version information
// and a URL leading to the project page.
func UserAgent() string { return userAgent(Version()) }

func userAgent(i Info) string {
	ver := i.Version
	if ver == "devel" && i.Commit != "" {
		ver = i.Commit
	}
	return i.Name + "/" + ver + " (+https://github.com/mvasnetsov/pressbot)"
}

func loadInfo(f func() (*debug.BuildInfo, bool)) Info {
	i := Info{Name: "cmd"}

	bi, ok := f()
	if !ok {
		return i
	}

	if bi.Path != "" {
		i.Name = path.Base(bi.Path)
	} else if exe, err := os.Executable(); err == nil {
		i.Name = filepath.Base(exe)
	}

	i.Version = bi.Main.Version
	if i.Version == "(devel)" {
		i.Version = "devel"
	}
	i.Go = bi.GoVersion

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			i.Commit = s.Value
		case "vcs.time":
			i.BuiltAt = s.Value
		case "GOOS":
			i.OS = s.Value
		case "GOARCH":
			i.Arch = s.Value
		}
	}

	return i
}
