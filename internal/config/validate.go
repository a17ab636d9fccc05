package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/peterhoeg/kinit/internal/launch"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if cfg.Socket.Path != "" && !filepath.IsAbs(cfg.Socket.Path) {
		return nil, fmt.Errorf("socket_path must be absolute")
	}
	if cfg.Socket.RuntimeDir != "" && !filepath.IsAbs(cfg.Socket.RuntimeDir) {
		return nil, fmt.Errorf("runtime_dir must be absolute")
	}
	if strings.Contains(cfg.Socket.Prefix, "/") {
		return nil, fmt.Errorf("socket_prefix must not contain '/'")
	}
	if cfg.Socket.Path == "" && strings.TrimSpace(cfg.Socket.DisplayEnv) == "" {
		return nil, fmt.Errorf("display_env must not be empty when socket_path is unset")
	}
	if strings.TrimSpace(cfg.StartupIDEnv) == "" {
		return nil, fmt.Errorf("startup_id_env must not be empty")
	}
	if _, err := launch.ParseMode(string(cfg.SymlinkMode)); err != nil {
		return nil, fmt.Errorf("symlink_mode: %w", err)
	}
	if !logLevels[cfg.LogLevel] {
		return nil, fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	if cfg.Socket.Prefix == "" {
		warnings = append(warnings, Warning{Message: "socket_prefix is empty; socket name is the display alone"})
	}

	return warnings, nil
}
