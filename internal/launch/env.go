package launch

import (
	"os"

	"golang.org/x/term"
)

// Env is the slice of process state a launch request carries.
type Env interface {
	Getwd() (string, error)
	Environ() []string
	LookupEnv(key string) (string, bool)
	// TTYName returns the controlling terminal name, or "" when there is
	// none worth forwarding.
	TTYName() string
}

// OSEnv reads the current process.
type OSEnv struct{}

func (OSEnv) Getwd() (string, error)              { return os.Getwd() }
func (OSEnv) Environ() []string                   { return os.Environ() }
func (OSEnv) LookupEnv(key string) (string, bool) { return os.LookupEnv(key) }

// TTYName names the terminal on stdout, but only when stderr is a terminal
// too.
func (OSEnv) TTYName() string {
	if !term.IsTerminal(int(os.Stdout.Fd())) || !term.IsTerminal(int(os.Stderr.Fd())) {
		return ""
	}
	name, err := os.Readlink("/proc/self/fd/1")
	if err != nil {
		return ""
	}
	return name
}
