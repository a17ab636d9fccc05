// Package cli decides what an invocation asks for from the name it was
// called by and its arguments.
package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/peterhoeg/kinit/internal/launch"
	"github.com/spf13/pflag"
)

type Command string

const (
	CommandLaunch   Command = "launch"
	CommandShutdown Command = "shutdown"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// Invocation names with a fixed meaning. Any other name means the binary
// was reached through a symlink named after the program to launch.
const (
	NameWrapper  = "kwrapper"
	NameExec     = "kdeinit5_wrapper"
	NameShell    = "kshell5"
	NameKWrapper = "kwrapper5"
	NameShutdown = "kdeinit5_shutdown"
)

var aliasModes = map[string]launch.Mode{
	NameExec:     launch.ModeDetach,
	NameShell:    launch.ModeShell,
	NameKWrapper: launch.ModeSupervised,
}

var subcommandModes = map[string]launch.Mode{
	"exec":  launch.ModeDetach,
	"shell": launch.ModeShell,
	"run":   launch.ModeSupervised,
}

type Parsed struct {
	Name       string
	Command    Command
	Mode       launch.Mode
	Program    string
	Args       []string
	Symlinked  bool
	ConfigPath string
	SocketPath string
	ShowHelp   bool
}

// Parse interprets argv, including argv[0].
func Parse(argv []string) (Parsed, error) {
	if len(argv) == 0 {
		return Parsed{}, errors.New("empty argument vector")
	}
	name := filepath.Base(argv[0])

	mode, isAlias := aliasModes[name]
	if !isAlias && name != NameWrapper && name != NameShutdown {
		// Flags belong to the program, not to us.
		return Parsed{
			Name:      name,
			Command:   CommandLaunch,
			Program:   name,
			Args:      argv[1:],
			Symlinked: true,
		}, nil
	}

	parsed := Parsed{Name: name}
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&parsed.ConfigPath, "config", "", "config file path")
	flagSet.StringVar(&parsed.SocketPath, "socket", "", "launcher socket path")
	showHelp := flagSet.BoolP("help", "h", false, "show help")
	showVersion := flagSet.Bool("version", false, "show version")

	if err := flagSet.Parse(argv[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return Parsed{Name: name, Command: CommandHelp, ShowHelp: true}, nil
		}
		return Parsed{}, err
	}
	if *showHelp {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
		return parsed, nil
	}
	if *showVersion {
		parsed.Command = CommandVersion
		return parsed, nil
	}

	rest := flagSet.Args()

	switch {
	case name == NameShutdown:
		if len(rest) > 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments: %s takes no arguments", name)
		}
		parsed.Command = CommandShutdown
		return parsed, nil
	case isAlias:
		parsed.Command = CommandLaunch
		parsed.Mode = mode
		return withProgram(parsed, rest)
	}

	if len(rest) == 0 {
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
		return parsed, nil
	}

	sub, rest := rest[0], rest[1:]
	if mode, ok := subcommandModes[sub]; ok {
		parsed.Command = CommandLaunch
		parsed.Mode = mode
		return withProgram(parsed, rest)
	}

	switch Command(sub) {
	case CommandShutdown, CommandDoctor, CommandVersion:
		if len(rest) > 0 {
			return Parsed{}, fmt.Errorf("unexpected arguments after command %q", sub)
		}
		parsed.Command = Command(sub)
		return parsed, nil
	case CommandHelp:
		parsed.Command = CommandHelp
		parsed.ShowHelp = true
		return parsed, nil
	default:
		return Parsed{}, fmt.Errorf("unknown command: %s", sub)
	}
}

func withProgram(parsed Parsed, rest []string) (Parsed, error) {
	if len(rest) == 0 {
		return Parsed{}, errors.New("missing application to launch")
	}
	parsed.Program = rest[0]
	parsed.Args = rest[1:]
	return parsed, nil
}

// HelpText renders usage for the invocation name.
func HelpText(name string) string {
	switch name {
	case NameShutdown:
		return fmt.Sprintf(`Usage:
  %[1]s

Shuts down the kdeinit5 launcher and terminates all processes spawned from it.
`, name)
	case NameExec, NameShell, NameKWrapper:
		return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--socket PATH] <application> [<args>]

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/kinit/config.jsonc)
  --socket PATH   Launcher socket path (default: $XDG_RUNTIME_DIR/kdeinit5_<display>)
  -h, --help      Show help
  --version       Show version
`, name)
	}

	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--socket PATH] <command> [<application> [<args>]]

Commands:
  exec      Launch an application through kdeinit5 and return immediately
  shell     Launch with the current environment and working directory
  run       Launch, relay signals, and exit with the application's status
  shutdown  Terminate kdeinit5 and everything it spawned
  doctor    Check launcher socket and environment
  version   Print version information
  help      Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/kinit/config.jsonc)
  --socket PATH   Launcher socket path (default: $XDG_RUNTIME_DIR/kdeinit5_<display>)
  -h, --help      Show help
  --version       Show version
`, name)
}
