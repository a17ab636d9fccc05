package config

import "github.com/peterhoeg/kinit/internal/launch"

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Socket: SocketConfig{
			Prefix:          "kdeinit5_",
			DisplayEnv:      "DISPLAY",
			DisplayRequired: true,
		},
		StartupIDEnv: launch.DefaultStartupIDEnv,
		SymlinkMode:  launch.ModeDetach,
		FallbackExec: true,
		LogLevel:     "info",
	}
}
