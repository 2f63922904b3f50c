package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/0xa1bed0/omd/internal/version.Version=v1.2.3 -X github.com/0xa1bed0/omd/internal/version.Commit=abc123"
var (
	Version = ""
	Commit  = ""
)

// Get returns the release version, falling back to the module version the
// binary was built from.
func Get() string {
	if Version != "" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

// String is the long form printed by `omd version`.
func String() string {
	s := fmt.Sprintf("omd %s", Get())
	if Commit != "" {
		s += fmt.Sprintf(" (%s)", Commit)
	}
	return fmt.Sprintf("%s %s/%s %s", s, runtime.GOOS, runtime.GOARCH, runtime.Version())
}
