// Package app wires invocation parsing, configuration, and the launcher
// protocol into one command run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterhoeg/kinit/internal/cli"
	"github.com/peterhoeg/kinit/internal/config"
	"github.com/peterhoeg/kinit/internal/doctor"
	"github.com/peterhoeg/kinit/internal/ipc"
	"github.com/peterhoeg/kinit/internal/launch"
	"github.com/peterhoeg/kinit/internal/logging"
	"github.com/peterhoeg/kinit/internal/supervise"
	"github.com/peterhoeg/kinit/internal/version"
	"golang.org/x/sys/unix"
)

const (
	exitOK      = 0
	exitUsage   = 2
	exitFailure = supervise.FailureStatus
)

// ExecFunc replaces the current process image. It only returns on failure.
type ExecFunc func(argv0 string, argv []string, envv []string) error

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
	// Env defaults to the current process.
	Env launch.Env
	// Exec defaults to unix.Exec.
	Exec ExecFunc
	// Self is this binary's path, skipped when a symlinked program is
	// looked up in PATH. Defaults to os.Executable.
	Self string
	// SuperviseOptions are appended to the supervisor's options.
	SuperviseOptions []supervise.Option
}

// Execute runs one invocation. args includes the invocation name.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	name := cli.NameWrapper
	if len(args) > 0 {
		name = filepath.Base(args[0])
	}

	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(name))
		return exitUsage
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(name))
		return exitOK
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String(name))
		return exitOK
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return exitFailure
	}

	logger := r.Logger
	if logger == nil {
		level, _ := logging.ParseLevel(cfgLoaded.Config.LogLevel)
		logRuntime, err := logging.New(level)
		if err != nil {
			logRuntime = logging.Discard()
		}
		defer func() { _ = logRuntime.Close() }()
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Debug("command start",
		"command", parsed.Command,
		"name", parsed.Name,
		"config", cfgLoaded.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded, parsed.SocketPath)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return exitOK
		}
		return 1
	case cli.CommandShutdown:
		return r.commandShutdown(ctx, cfgLoaded.Config, parsed, logger)
	case cli.CommandLaunch:
		return r.commandLaunch(ctx, cfgLoaded.Config, parsed, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return exitUsage
	}
}

func (r Runner) commandShutdown(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	conn, socketPath, err := connect(ctx, cfg, parsed)
	if err != nil {
		logger.Error("launcher unavailable", "socket", socketPath, "error", err.Error())
		fmt.Fprintln(r.Stderr, "Error: Can not contact kdeinit5!")
		return exitFailure
	}
	defer func() { _ = conn.Close() }()

	if err := launch.Shutdown(conn); err != nil {
		fmt.Fprintf(r.Stderr, "Error: Communication error with launcher: %v\n", err)
		return exitFailure
	}
	logger.Info("launcher shutdown requested", "socket", socketPath)
	return exitOK
}

func (r Runner) commandLaunch(ctx context.Context, cfg config.Config, parsed cli.Parsed, logger *slog.Logger) int {
	mode := parsed.Mode
	if parsed.Symlinked {
		mode = cfg.SymlinkMode
	}

	conn, socketPath, err := connect(ctx, cfg, parsed)
	if err != nil {
		if errors.Is(err, ipc.ErrNotAvailable) && cfg.FallbackExec {
			logger.Warn("launcher unavailable; executing directly",
				"socket", socketPath,
				"program", parsed.Program,
				"error", err.Error(),
			)
			return r.execDirect(parsed, logger)
		}
		logger.Error("launcher unavailable", "socket", socketPath, "error", err.Error())
		fmt.Fprintln(r.Stderr, "Error: Can not contact kdeinit5!")
		return exitFailure
	}
	defer func() { _ = conn.Close() }()

	builder := launch.Builder{Env: r.env(), Logger: logger}
	req, err := builder.Build(launch.Spec{
		Mode:         mode,
		Program:      parsed.Program,
		Args:         parsed.Args,
		AvoidLoops:   parsed.Symlinked,
		StartupIDEnv: cfg.StartupIDEnv,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "Error: %v\n", err)
		return exitFailure
	}

	logger.Info("launch requested",
		"mode", mode,
		"program", parsed.Program,
		"command", req.Command().String(),
		"socket", socketPath,
	)

	pid, err := launch.Send(conn, req)
	if err != nil {
		r.reportSendError(parsed.Program, err, logger)
		return exitFailure
	}
	logger.Info("launched", "program", parsed.Program, "pid", pid)

	if mode != launch.ModeSupervised {
		fmt.Fprintf(r.Stdout, "Launched ok, pid = %d\n", pid)
		return exitOK
	}

	opts := append([]supervise.Option{supervise.WithLogger(logger)}, r.SuperviseOptions...)
	status, err := supervise.New(pid, conn, opts...).Run()
	if err != nil {
		r.reportSuperviseError(err)
	}
	return status
}

func (r Runner) reportSendError(program string, err error, logger *slog.Logger) {
	logger.Error("launch failed", "program", program, "error", err.Error())

	switch {
	case errors.Is(err, launch.ErrLaunchFailed):
		fmt.Fprintf(r.Stderr, "Error: launcher could not launch '%s'\n", program)
	case errors.Is(err, launch.ErrProtocol):
		fmt.Fprintf(r.Stderr, "Error: %v\n", err)
	case errors.Is(err, ipc.ErrMalformedHeader), errors.Is(err, ipc.ErrMalformedPayload):
		fmt.Fprintf(r.Stderr, "Error: protocol error: %v\n", err)
	default:
		fmt.Fprintf(r.Stderr, "Error: Communication error with launcher: %v\n", err)
	}
}

func (r Runner) reportSuperviseError(err error) {
	switch {
	case errors.Is(err, supervise.ErrUnexpectedNotice), errors.Is(err, supervise.ErrPIDMismatch):
		fmt.Fprintf(r.Stderr, "Error: %v\n", err)
	case errors.Is(err, ipc.ErrMalformedHeader), errors.Is(err, ipc.ErrMalformedPayload):
		fmt.Fprintf(r.Stderr, "Error: protocol error: %v\n", err)
	default:
		fmt.Fprintf(r.Stderr, "Error: Communication error with launcher: %v\n", err)
	}
}

// execDirect runs the program in place of this process when no launcher
// is reachable.
func (r Runner) execDirect(parsed cli.Parsed, logger *slog.Logger) int {
	path, err := lookProgram(parsed.Program, r.self(parsed.Symlinked))
	if err != nil {
		fmt.Fprintf(r.Stderr, "Error: Can not contact kdeinit5 and %v\n", err)
		return exitFailure
	}

	argv := make([]string, 0, 1+len(parsed.Args))
	argv = append(argv, parsed.Program)
	argv = append(argv, parsed.Args...)

	execFn := r.Exec
	if execFn == nil {
		execFn = unix.Exec
	}
	logger.Debug("exec", "path", path, "argv", argv)
	if err := execFn(path, argv, r.env().Environ()); err != nil {
		fmt.Fprintf(r.Stderr, "Error: exec %s: %v\n", path, err)
		return exitFailure
	}
	return exitOK
}

func (r Runner) env() launch.Env {
	if r.Env == nil {
		return launch.OSEnv{}
	}
	return r.Env
}

// self returns the binary to skip during PATH lookup, or "" when nothing
// needs skipping.
func (r Runner) self(symlinked bool) string {
	if !symlinked {
		return ""
	}
	if r.Self != "" {
		return r.Self
	}
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	return path
}

func connect(ctx context.Context, cfg config.Config, parsed cli.Parsed) (*net.UnixConn, string, error) {
	socketPath, err := ipc.ResolveSocketPath(cfg.Socket.SocketOptions(parsed.SocketPath))
	if err != nil {
		return nil, "", err
	}
	conn, err := ipc.Connect(ctx, socketPath)
	if err != nil {
		return nil, socketPath, err
	}
	return conn, socketPath, nil
}

// lookProgram finds program in PATH, skipping any candidate that is the
// same file as self so a symlink never re-executes the wrapper.
func lookProgram(program string, self string) (string, error) {
	var selfInfo os.FileInfo
	if self != "" {
		selfInfo, _ = os.Stat(self)
	}
	isSelf := func(candidate os.FileInfo) bool {
		return selfInfo != nil && os.SameFile(selfInfo, candidate)
	}

	if strings.Contains(program, "/") {
		info, err := executable(program)
		if err != nil {
			return "", err
		}
		if isSelf(info) {
			return "", fmt.Errorf("%s resolves to this wrapper", program)
		}
		return program, nil
	}

	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			dir = "."
		}
		candidate := filepath.Join(dir, program)
		info, err := executable(candidate)
		if err != nil || isSelf(info) {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("%s was not found in PATH", program)
}

func executable(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return nil, fmt.Errorf("%s is not executable", path)
	}
	return info, nil
}
