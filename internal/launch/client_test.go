package launch

import (
	"context"
	"net"
	"path/filepath"
	"testing"

	"github.com/peterhoeg/kinit/internal/ipc"
	"github.com/stretchr/testify/require"
)

func dialFakeLauncher(t *testing.T, handler ipc.HandlerFunc) net.Conn {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "kdeinit5__0")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- ipc.Serve(ctx, listener, handler)
	}()

	conn, err := ipc.Connect(context.Background(), socketPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		require.NoError(t, <-serveDone)
	})
	return conn
}

func TestSendReturnsPID(t *testing.T) {
	conn := dialFakeLauncher(t, func(_ context.Context, req ipc.Message) []ipc.Message {
		require.Equal(t, ipc.ExecNewRequest{Argv: []string{"ls", "-l"}}, req)
		return []ipc.Message{ipc.OKReply{PID: 1234}}
	})

	pid, err := Send(conn, ipc.ExecNewRequest{Argv: []string{"ls", "-l"}})
	require.NoError(t, err)
	require.Equal(t, 1234, pid)
}

func TestSendLaunchFailed(t *testing.T) {
	conn := dialFakeLauncher(t, func(context.Context, ipc.Message) []ipc.Message {
		return []ipc.Message{ipc.ErrorReply{}}
	})

	_, err := Send(conn, ipc.ExecNewRequest{Argv: []string{"nope"}})
	require.ErrorIs(t, err, ErrLaunchFailed)
}

func TestSendUnexpectedReply(t *testing.T) {
	conn := dialFakeLauncher(t, func(context.Context, ipc.Message) []ipc.Message {
		return []ipc.Message{ipc.ChildDiedNotice{PID: 1, Status: 0}}
	})

	_, err := Send(conn, ipc.ExecNewRequest{Argv: []string{"x"}})
	require.ErrorIs(t, err, ErrProtocol)
}

func TestSendConnectionClosedBeforeReply(t *testing.T) {
	conn := dialFakeLauncher(t, func(context.Context, ipc.Message) []ipc.Message {
		return nil
	})

	_, err := Send(conn, ipc.ExecNewRequest{Argv: []string{"x"}})
	require.ErrorIs(t, err, ipc.ErrConnectionClosed)
	require.Contains(t, err.Error(), "receive reply")
}

func TestShutdownWaitsForClose(t *testing.T) {
	got := make(chan ipc.Message, 1)
	conn := dialFakeLauncher(t, func(_ context.Context, req ipc.Message) []ipc.Message {
		got <- req
		return nil
	})

	require.NoError(t, Shutdown(conn))
	require.Equal(t, ipc.TerminateRequest{}, <-got)
}
