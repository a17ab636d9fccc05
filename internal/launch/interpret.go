package launch

import (
	"errors"
	"fmt"

	"github.com/peterhoeg/kinit/internal/ipc"
)

// Outcome classifies a daemon reply.
type Outcome int

const (
	OutcomeLaunched Outcome = iota
	OutcomeFailed
	OutcomeProtocolError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLaunched:
		return "launched"
	case OutcomeFailed:
		return "launch_failed"
	case OutcomeProtocolError:
		return "protocol_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is one interpreted reply. PID is set for OutcomeLaunched and
// Observed for OutcomeProtocolError.
type Result struct {
	Outcome  Outcome
	PID      int
	Observed ipc.Command
}

var (
	ErrLaunchFailed = errors.New("launcher rejected the launch")
	ErrProtocol     = errors.New("unexpected response from launcher")
)

// ProtocolError carries the reply code that was not expected.
type ProtocolError struct {
	Observed ipc.Command
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%v (response = %d)", ErrProtocol, int64(e.Observed))
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocol
}

// Interpret classifies a launch reply. Only an OK reply too short to hold a
// pid is an error; everything else is a Result.
func Interpret(header ipc.Header, payload []byte) (Result, error) {
	switch header.Command {
	case ipc.CommandOK:
		reply, err := ipc.DecodeReply(header.Command, payload)
		if err != nil {
			return Result{}, fmt.Errorf("decode ok reply: %w", err)
		}
		return Result{Outcome: OutcomeLaunched, PID: reply.(ipc.OKReply).PID}, nil
	case ipc.CommandError:
		return Result{Outcome: OutcomeFailed}, nil
	default:
		return Result{Outcome: OutcomeProtocolError, Observed: header.Command}, nil
	}
}

// Err converts a non-launched result into its error.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeLaunched:
		return nil
	case OutcomeFailed:
		return ErrLaunchFailed
	default:
		return &ProtocolError{Observed: r.Observed}
	}
}
