package config

import (
	"github.com/peterhoeg/kinit/internal/ipc"
	"github.com/peterhoeg/kinit/internal/launch"
)

// Config is the fully materialized runtime configuration.
type Config struct {
	Socket       SocketConfig
	StartupIDEnv string
	SymlinkMode  launch.Mode
	FallbackExec bool
	LogLevel     string
}

// SocketConfig controls how the launcher socket path is derived.
type SocketConfig struct {
	// Path, when set, is used verbatim and skips derivation.
	Path            string
	RuntimeDir      string
	Prefix          string
	DisplayEnv      string
	DisplayRequired bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}

// SocketOptions converts the socket settings for path resolution. A
// non-empty override replaces the configured socket_path.
func (s SocketConfig) SocketOptions(override string) ipc.SocketOptions {
	path := s.Path
	if override != "" {
		path = override
	}
	return ipc.SocketOptions{
		Path:            path,
		RuntimeDir:      s.RuntimeDir,
		Prefix:          s.Prefix,
		DisplayEnv:      s.DisplayEnv,
		DisplayRequired: s.DisplayRequired,
	}
}
