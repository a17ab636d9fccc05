// Package ipc implements the launcher daemon wire protocol: the fixed
// header, the positional payload codec, and full-buffer socket transport.
package ipc

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Command is the header command code. Values are fixed by the daemon build.
type Command int64

const (
	CommandExec            Command = 0
	CommandSetEnv          Command = 1
	CommandChildDied       Command = 2
	CommandOK              Command = 3
	CommandError           Command = 4
	CommandShell           Command = 5
	CommandTerminate       Command = 6
	CommandTerminateDaemon Command = 7
	CommandDebugWait       Command = 8
	CommandExtExec         Command = 9
	CommandKWrapper        Command = 10
	CommandExecNew         Command = 11
)

var commandNames = map[Command]string{
	CommandExec:            "exec",
	CommandSetEnv:          "setenv",
	CommandChildDied:       "child_died",
	CommandOK:              "ok",
	CommandError:           "error",
	CommandShell:           "shell",
	CommandTerminate:       "terminate",
	CommandTerminateDaemon: "terminate_daemon",
	CommandDebugWait:       "debug_wait",
	CommandExtExec:         "ext_exec",
	CommandKWrapper:        "kwrapper",
	CommandExecNew:         "exec_new",
}

// Known reports whether c is a command code the daemon can emit or accept.
func (c Command) Known() bool {
	_, ok := commandNames[c]
	return ok
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int64(c))
}

// Width of every integer on the wire: header fields, counts, pids, statuses.
const intSize = 8

// HeaderSize is the encoded size of Header.
const HeaderSize = 2 * intSize

// MaxPayload bounds the payload length accepted by ReadFrame.
const MaxPayload = 64 << 20

var (
	ErrNotAvailable     = errors.New("launcher not available")
	ErrConnectionClosed = errors.New("connection closed by peer")
	ErrMalformedHeader  = errors.New("malformed header")
	ErrMalformedPayload = errors.New("malformed payload")
	ErrSizeMismatch     = errors.New("payload size mismatch")
)

// Header precedes every message on the socket.
type Header struct {
	Command Command
	Length  int64
}

// EncodeHeader lays out cmd and length in host byte order.
func EncodeHeader(cmd Command, length int64) [HeaderSize]byte {
	var b [HeaderSize]byte
	binary.NativeEndian.PutUint64(b[0:intSize], uint64(cmd))
	binary.NativeEndian.PutUint64(b[intSize:HeaderSize], uint64(length))
	return b
}

// DecodeHeader parses a raw header and rejects unknown command codes.
func DecodeHeader(b [HeaderSize]byte) (Header, error) {
	h := Header{
		Command: Command(int64(binary.NativeEndian.Uint64(b[0:intSize]))),
		Length:  int64(binary.NativeEndian.Uint64(b[intSize:HeaderSize])),
	}
	if !h.Command.Known() {
		return Header{}, fmt.Errorf("%w: unrecognized command code %d", ErrMalformedHeader, int64(h.Command))
	}
	if h.Length < 0 {
		return Header{}, fmt.Errorf("%w: negative payload length %d", ErrMalformedHeader, h.Length)
	}
	return h, nil
}
