package supervise

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Forwarded is every signal relayed to the supervised process. SIGKILL and
// SIGSTOP cannot be caught and are absent.
var Forwarded = []syscall.Signal{
	unix.SIGHUP,
	unix.SIGINT,
	unix.SIGQUIT,
	unix.SIGILL,
	unix.SIGABRT,
	unix.SIGFPE,
	unix.SIGSEGV,
	unix.SIGPIPE,
	unix.SIGALRM,
	unix.SIGTERM,
	unix.SIGUSR1,
	unix.SIGUSR2,
	unix.SIGCHLD,
	unix.SIGCONT,
	unix.SIGTSTP,
	unix.SIGTTIN,
	unix.SIGTTOU,
}

// Notifier installs and removes signal relays.
type Notifier interface {
	Notify(c chan<- os.Signal, sigs ...os.Signal)
	Reset(sigs ...os.Signal)
	Stop(c chan<- os.Signal)
}

// Process is how the supervisor acts on processes.
type Process interface {
	// Kill delivers sig to pid.
	Kill(pid int, sig syscall.Signal) error
	// Raise gives sig its default effect on the current process. It
	// returns only if the process is still running afterwards, as it is
	// after a stop.
	Raise(sig syscall.Signal)
}

type osNotifier struct{}

func (osNotifier) Notify(c chan<- os.Signal, sigs ...os.Signal) { signal.Notify(c, sigs...) }
func (osNotifier) Reset(sigs ...os.Signal)                      { signal.Reset(sigs...) }
func (osNotifier) Stop(c chan<- os.Signal)                      { signal.Stop(c) }

// raiseGrace is how long Raise waits for a self-delivered signal to
// terminate the process before exiting explicitly.
const raiseGrace = 200 * time.Millisecond

type osProcess struct{}

func (osProcess) Kill(pid int, sig syscall.Signal) error {
	return unix.Kill(pid, sig)
}

// Raise stops the process for job-control signals. Signals the Go runtime
// turns into a signal death once unhandled are re-delivered to self; the
// rest, which the runtime would ignore or turn into a crash dump, exit
// with the shell convention 128+signo.
func (osProcess) Raise(sig syscall.Signal) {
	switch sig {
	case unix.SIGTSTP, unix.SIGTTIN, unix.SIGTTOU:
		_ = unix.Kill(unix.Getpid(), unix.SIGSTOP)
		return
	case unix.SIGCHLD, unix.SIGCONT:
		return
	case unix.SIGHUP, unix.SIGINT, unix.SIGTERM, unix.SIGALRM, unix.SIGUSR1, unix.SIGUSR2:
		_ = unix.Kill(unix.Getpid(), sig)
		time.Sleep(raiseGrace)
	}
	os.Exit(128 + int(sig))
}

func toOSSignals(sigs []syscall.Signal) []os.Signal {
	out := make([]os.Signal, 0, len(sigs))
	for _, sig := range sigs {
		out = append(out, sig)
	}
	return out
}
