// Package doctor runs readiness diagnostics for config, session, and the
// launcher socket.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/peterhoeg/kinit/internal/config"
	"github.com/peterhoeg/kinit/internal/ipc"
	"golang.org/x/term"
)

// DaemonBinary is the launcher daemon looked up in PATH.
const DaemonBinary = "kdeinit5"

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config/session/launcher checks. socketOverride is the
// --socket flag value, if any.
func Run(ctx context.Context, cfg config.Loaded, socketOverride string) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	opts := cfg.Config.Socket.SocketOptions(socketOverride)
	if opts.Path == "" && opts.DisplayRequired {
		checks = append(checks, checkEnv(opts.DisplayEnv, func(v string) bool {
			return strings.TrimSpace(v) != ""
		}, "display is set", fmt.Sprintf("%s is empty; the launcher socket cannot be located", opts.DisplayEnv)))
	}

	checks = append(checks, checkLauncher(ctx, opts)...)
	checks = append(checks, checkBinary(DaemonBinary, "launcher daemon"))
	checks = append(checks, checkTerminal(int(os.Stdout.Fd())))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkLauncher resolves the socket path and probes it.
func checkLauncher(ctx context.Context, opts ipc.SocketOptions) []Check {
	path, err := ipc.ResolveSocketPath(opts)
	if err != nil {
		return []Check{{Name: "launcher.socket", Pass: false, Message: err.Error()}}
	}
	checks := []Check{{Name: "launcher.socket", Pass: true, Message: path}}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if !ipc.Probe(probeCtx, path) {
		return append(checks, Check{Name: "launcher.ready", Pass: false, Message: fmt.Sprintf("no launcher listening at %s", path)})
	}
	return append(checks, Check{Name: "launcher.ready", Pass: true, Message: "accepting connections"})
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkTerminal is informational: supervised launches only forward a tty
// name when attached to one.
func checkTerminal(fd int) Check {
	if term.IsTerminal(fd) {
		return Check{Name: "terminal", Pass: true, Message: "stdout is a terminal; supervised launches pass its name"}
	}
	return Check{Name: "terminal", Pass: true, Message: "stdout is not a terminal; supervised launches pass no tty"}
}
