// Package supervise keeps the client alive for the lifetime of a process
// launched through the daemon, relaying signals to it and adopting its exit
// status.
package supervise

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/peterhoeg/kinit/internal/fsm"
	"github.com/peterhoeg/kinit/internal/ipc"
	"github.com/peterhoeg/kinit/internal/logging"
	"golang.org/x/sys/unix"
)

// FailureStatus is returned for every protocol or I/O failure.
const FailureStatus = 255

var (
	ErrUnexpectedNotice = errors.New("unexpected response from launcher")
	ErrPIDMismatch      = errors.New("unexpected child death notice from launcher")
)

// Supervisor relays signals to PID until the daemon reports its death.
type Supervisor struct {
	pid     int
	conn    io.Reader
	process Process
	signals Notifier
	logger  *slog.Logger
	state   fsm.State
}

// Option customizes a Supervisor.
type Option func(*Supervisor)

// WithProcess replaces the process collaborator.
func WithProcess(p Process) Option {
	return func(s *Supervisor) { s.process = p }
}

// WithNotifier replaces the signal installation collaborator.
func WithNotifier(n Notifier) Option {
	return func(s *Supervisor) { s.signals = n }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Supervisor) { s.logger = logger }
}

// New supervises pid, reading the death notice from conn. The pid is fixed
// here, before any relay is installed.
func New(pid int, conn io.Reader, opts ...Option) *Supervisor {
	s := &Supervisor{
		pid:     pid,
		conn:    conn,
		process: osProcess{},
		signals: osNotifier{},
		logger:  slog.New(logging.DiscardHandler),
		state:   fsm.StateInstalling,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current state.
func (s *Supervisor) State() fsm.State {
	return s.state
}

type frame struct {
	header  ipc.Header
	payload []byte
	err     error
}

// Run blocks until the death notice arrives and returns the remote exit
// status. Any error is fatal and comes with FailureStatus.
func (s *Supervisor) Run() (int, error) {
	sigCh := make(chan os.Signal, 2*len(Forwarded))
	frames := make(chan frame, 1)

	s.install(sigCh)

	go func() {
		header, payload, err := ipc.ReadFrame(s.conn)
		frames <- frame{header: header, payload: payload, err: err}
	}()

	for {
		// Queued signals go before the notice.
		select {
		case sig := <-sigCh:
			if err := s.handle(sig, sigCh); err != nil {
				return s.fail(err)
			}
			continue
		default:
		}

		select {
		case sig := <-sigCh:
			if err := s.handle(sig, sigCh); err != nil {
				return s.fail(err)
			}
		case f := <-frames:
			if err := s.step(fsm.EventNotice); err != nil {
				return s.fail(err)
			}
			s.signals.Stop(sigCh)
			s.drain(sigCh)
			return s.finish(f)
		}
	}
}

func (s *Supervisor) install(sigCh chan os.Signal) {
	s.signals.Notify(sigCh, toOSSignals(Forwarded)...)
	_ = s.step(fsm.EventInstalled)
}

func (s *Supervisor) handle(raw os.Signal, sigCh chan os.Signal) error {
	if err := s.step(fsm.EventSignal); err != nil {
		return err
	}
	if s.forward(raw) {
		if err := s.step(fsm.EventReinstall); err != nil {
			return err
		}
		s.install(sigCh)
		return nil
	}
	return s.step(fsm.EventRelayed)
}

// forward relays one signal and applies its local effect. It reports
// whether the relays must be reinstalled.
func (s *Supervisor) forward(raw os.Signal) bool {
	sig, ok := raw.(syscall.Signal)
	if !ok {
		return false
	}

	relay := sig
	if sig == unix.SIGTSTP {
		relay = unix.SIGSTOP
	}
	if err := s.process.Kill(s.pid, relay); err != nil {
		s.logger.Debug("relay signal failed", "pid", s.pid, "signal", relay.String(), "error", err.Error())
	} else {
		s.logger.Debug("relayed signal", "pid", s.pid, "signal", relay.String())
	}

	switch sig {
	case unix.SIGCONT:
		return true
	case unix.SIGCHLD:
		return false
	default:
		s.signals.Reset(sig)
		s.process.Raise(sig)
		return false
	}
}

// drain relays signals that were already queued when the notice arrived.
func (s *Supervisor) drain(sigCh chan os.Signal) {
	for {
		select {
		case sig := <-sigCh:
			_ = s.step(fsm.EventSignal)
			s.forward(sig)
		default:
			return
		}
	}
}

func (s *Supervisor) finish(f frame) (int, error) {
	if f.err != nil {
		return s.fail(fmt.Errorf("wait for child death: %w", f.err))
	}
	if f.header.Command != ipc.CommandChildDied {
		return s.fail(fmt.Errorf("%w (response = %d)", ErrUnexpectedNotice, int64(f.header.Command)))
	}

	msg, err := ipc.DecodeReply(f.header.Command, f.payload)
	if err != nil {
		return s.fail(fmt.Errorf("decode child death: %w", err))
	}
	notice := msg.(ipc.ChildDiedNotice)
	if notice.PID != s.pid {
		return s.fail(fmt.Errorf("%w - pid = %d, supervising %d", ErrPIDMismatch, notice.PID, s.pid))
	}

	if err := s.step(fsm.EventExit); err != nil {
		return s.fail(err)
	}
	s.logger.Info("supervised process exited", "pid", s.pid, "status", notice.Status)
	return notice.Status, nil
}

func (s *Supervisor) fail(err error) (int, error) {
	_ = s.step(fsm.EventFail)
	s.logger.Error("supervision failed", "pid", s.pid, "error", err.Error())
	return FailureStatus, err
}

func (s *Supervisor) step(event fsm.Event) error {
	next, err := fsm.Transition(s.state, event)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}
