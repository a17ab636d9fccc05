package launch

import (
	"encoding/binary"
	"testing"

	"github.com/peterhoeg/kinit/internal/ipc"
	"github.com/stretchr/testify/require"
)

func TestInterpretLaunched(t *testing.T) {
	payload := binary.NativeEndian.AppendUint64(nil, 999)
	result, err := Interpret(ipc.Header{Command: ipc.CommandOK, Length: 8}, payload)
	require.NoError(t, err)
	require.Equal(t, Result{Outcome: OutcomeLaunched, PID: 999}, result)
	require.NoError(t, result.Err())
}

func TestInterpretShortOKPayloadIsMalformed(t *testing.T) {
	_, err := Interpret(ipc.Header{Command: ipc.CommandOK, Length: 4}, []byte{1, 2, 3, 4})
	require.ErrorIs(t, err, ipc.ErrMalformedPayload)
}

func TestInterpretErrorIsLaunchFailedForAnyPayload(t *testing.T) {
	for _, payload := range [][]byte{nil, {}, {1}, make([]byte, 64)} {
		result, err := Interpret(ipc.Header{Command: ipc.CommandError, Length: int64(len(payload))}, payload)
		require.NoError(t, err)
		require.Equal(t, OutcomeFailed, result.Outcome)
		require.ErrorIs(t, result.Err(), ErrLaunchFailed)
	}
}

func TestInterpretOtherCodesAreProtocolErrors(t *testing.T) {
	for _, cmd := range []ipc.Command{ipc.CommandChildDied, ipc.CommandShell, ipc.CommandExec, ipc.CommandExecNew} {
		result, err := Interpret(ipc.Header{Command: cmd}, nil)
		require.NoError(t, err)
		require.Equal(t, Result{Outcome: OutcomeProtocolError, Observed: cmd}, result)

		resultErr := result.Err()
		require.ErrorIs(t, resultErr, ErrProtocol)
		var protocolErr *ProtocolError
		require.ErrorAs(t, resultErr, &protocolErr)
		require.Equal(t, cmd, protocolErr.Observed)
	}
}

func TestOutcomeString(t *testing.T) {
	require.Equal(t, "launched", OutcomeLaunched.String())
	require.Equal(t, "launch_failed", OutcomeFailed.String())
	require.Equal(t, "protocol_error", OutcomeProtocolError.String())
}
