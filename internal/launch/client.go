package launch

import (
	"fmt"
	"io"

	"github.com/peterhoeg/kinit/internal/ipc"
)

// Send writes req and waits for the single launch reply. It returns the
// remote pid on success.
func Send(rw io.ReadWriter, req ipc.Message) (int, error) {
	if err := ipc.WriteMessage(rw, req); err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}

	header, payload, err := ipc.ReadFrame(rw)
	if err != nil {
		return 0, fmt.Errorf("receive reply: %w", err)
	}

	result, err := Interpret(header, payload)
	if err != nil {
		return 0, err
	}
	if err := result.Err(); err != nil {
		return 0, err
	}
	return result.PID, nil
}

// Shutdown asks the daemon to terminate everything and waits until it
// closes the connection.
func Shutdown(rw io.ReadWriter) error {
	if err := ipc.WriteMessage(rw, ipc.TerminateRequest{}); err != nil {
		return fmt.Errorf("send terminate: %w", err)
	}
	_, _ = ipc.RecvAll(rw, 1)
	return nil
}
