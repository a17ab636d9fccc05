// Package launch builds launcher requests and interprets daemon replies.
package launch

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/peterhoeg/kinit/internal/ipc"
	"github.com/peterhoeg/kinit/internal/logging"
)

// Mode selects which request kind is sent.
type Mode string

const (
	ModeDetach     Mode = "detach"
	ModeShell      Mode = "shell"
	ModeSupervised Mode = "supervised"
)

// ParseMode accepts the mode names used in configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDetach, ModeShell, ModeSupervised:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown launch mode %q", s)
	}
}

// DefaultStartupIDEnv carries the desktop startup notification id.
const DefaultStartupIDEnv = "DESKTOP_STARTUP_ID"

// Spec describes one launch.
type Spec struct {
	Mode    Mode
	Program string
	Args    []string
	// AvoidLoops marks a launch that arrived through an alias of the
	// wrapper itself.
	AvoidLoops bool
	// StartupIDEnv defaults to DefaultStartupIDEnv.
	StartupIDEnv string
}

var ErrNoProgram = errors.New("no program to launch")

// Builder turns a Spec into the matching request message.
type Builder struct {
	Env    Env
	Logger *slog.Logger
}

// Build reads only the state the selected mode needs. Unreadable optional
// fields become empty strings.
func (b Builder) Build(spec Spec) (ipc.Message, error) {
	if spec.Program == "" {
		return nil, ErrNoProgram
	}

	argv := make([]string, 0, 1+len(spec.Args))
	argv = append(argv, spec.Program)
	argv = append(argv, spec.Args...)

	var avoid int64
	if spec.AvoidLoops {
		avoid = 1
	}

	if spec.Mode == ModeDetach {
		return ipc.ExecNewRequest{Argv: argv, AvoidLoops: avoid}, nil
	}
	if spec.Mode != ModeShell && spec.Mode != ModeSupervised {
		return nil, fmt.Errorf("unknown launch mode %q", spec.Mode)
	}

	cwd, err := b.Env.Getwd()
	if err != nil {
		b.logger().Warn("working directory unreadable; sending empty cwd", "error", err.Error())
		cwd = ""
	}
	env := b.Env.Environ()
	if env == nil {
		env = []string{}
	}

	startupEnv := spec.StartupIDEnv
	if startupEnv == "" {
		startupEnv = DefaultStartupIDEnv
	}
	startupID, _ := b.Env.LookupEnv(startupEnv)

	if spec.Mode == ModeShell {
		return ipc.ShellRequest{
			Argv:       argv,
			Cwd:        cwd,
			Env:        env,
			AvoidLoops: avoid,
			StartupID:  startupID,
		}, nil
	}

	return ipc.KWrapperRequest{
		Argv:       argv,
		Cwd:        cwd,
		Env:        env,
		TTY:        b.Env.TTYName(),
		AvoidLoops: avoid,
		StartupID:  startupID,
	}, nil
}

func (b Builder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(logging.DiscardHandler)
	}
	return b.Logger
}
