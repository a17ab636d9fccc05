// Package version carries build metadata stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// ProtocolRevision identifies the launcher wire protocol spoken by this build.
const ProtocolRevision = "kdeinit5"

// String renders version info under the name the binary was invoked as.
func String(name string) string {
	if name == "" {
		name = "kwrapper"
	}
	return fmt.Sprintf("%s %s (protocol=%s, commit=%s, date=%s, go=%s)",
		name, Version, ProtocolRevision, Commit, Date, runtime.Version())
}
