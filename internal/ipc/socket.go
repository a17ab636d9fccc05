package ipc

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// SocketOptions control where the daemon socket is looked up.
type SocketOptions struct {
	// Path, when set, is used verbatim.
	Path string
	// RuntimeDir overrides $XDG_RUNTIME_DIR.
	RuntimeDir string
	// Prefix is the socket file name before the display suffix.
	Prefix string
	// DisplayEnv names the variable holding the X display.
	DisplayEnv string
	// DisplayRequired fails resolution when DisplayEnv is unset.
	DisplayRequired bool
}

// ResolveSocketPath applies override/runtime-dir/display rules. The error
// wraps ErrNotAvailable.
func ResolveSocketPath(opts SocketOptions) (string, error) {
	if p := strings.TrimSpace(opts.Path); p != "" {
		return p, nil
	}

	display := ""
	if opts.DisplayEnv != "" {
		display = strings.TrimSpace(os.Getenv(opts.DisplayEnv))
	}
	if display == "" && opts.DisplayRequired {
		return "", fmt.Errorf("%w: could not determine $%s", ErrNotAvailable, opts.DisplayEnv)
	}

	runtimeDir, err := resolveRuntimeDir(opts.RuntimeDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotAvailable, err)
	}
	return filepath.Join(runtimeDir, opts.Prefix+displaySuffix(display)), nil
}

// displaySuffix drops the screen number and makes the display name usable
// in a file name: ":0.1" becomes "_0".
func displaySuffix(display string) string {
	if i := strings.LastIndexByte(display, '.'); i >= 0 && i > strings.LastIndexByte(display, ':') {
		display = display[:i]
	}
	display = strings.ReplaceAll(display, ":", "_")
	return strings.ReplaceAll(display, "/", "_")
}

func resolveRuntimeDir(explicit string) (string, error) {
	if dir := strings.TrimSpace(explicit); dir != "" {
		return dir, nil
	}
	if dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")); dir != "" {
		return dir, nil
	}
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("resolve runtime dir: %w", err)
	}
	return filepath.Join(os.TempDir(), "runtime-"+u.Username), nil
}
