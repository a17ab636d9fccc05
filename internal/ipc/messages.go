package ipc

import "fmt"

// ExecNewRequest asks the daemon for a plain detached launch. The daemon
// expects an environment block, which is always empty for this command.
type ExecNewRequest struct {
	Argv       []string
	AvoidLoops int64
}

func (ExecNewRequest) Command() Command { return CommandExecNew }

func (r ExecNewRequest) Size() int {
	return stringsSize(r.Argv) + intSize + intSize
}

func (r ExecNewRequest) Place(e *Encoder) {
	e.PutStrings(r.Argv)
	e.PutInt(0)
	e.PutInt(r.AvoidLoops)
}

// ShellRequest launches with the caller's working directory and environment.
type ShellRequest struct {
	Argv       []string
	Cwd        string
	Env        []string
	AvoidLoops int64
	StartupID  string
}

func (ShellRequest) Command() Command { return CommandShell }

func (r ShellRequest) Size() int {
	return stringsSize(r.Argv) + stringSize(r.Cwd) + stringsSize(r.Env) + intSize + stringSize(r.StartupID)
}

func (r ShellRequest) Place(e *Encoder) {
	e.PutStrings(r.Argv)
	e.PutString(r.Cwd)
	e.PutStrings(r.Env)
	e.PutInt(r.AvoidLoops)
	e.PutString(r.StartupID)
}

// KWrapperRequest is ShellRequest plus the controlling terminal name. The
// daemon keeps the connection open and later reports the child's death.
type KWrapperRequest struct {
	Argv       []string
	Cwd        string
	Env        []string
	TTY        string
	AvoidLoops int64
	StartupID  string
}

func (KWrapperRequest) Command() Command { return CommandKWrapper }

func (r KWrapperRequest) Size() int {
	return stringsSize(r.Argv) + stringSize(r.Cwd) + stringsSize(r.Env) + stringSize(r.TTY) + intSize + stringSize(r.StartupID)
}

func (r KWrapperRequest) Place(e *Encoder) {
	e.PutStrings(r.Argv)
	e.PutString(r.Cwd)
	e.PutStrings(r.Env)
	e.PutString(r.TTY)
	e.PutInt(r.AvoidLoops)
	e.PutString(r.StartupID)
}

// TerminateRequest asks the daemon to shut down everything it spawned.
type TerminateRequest struct{}

func (TerminateRequest) Command() Command { return CommandTerminate }
func (TerminateRequest) Size() int        { return 0 }
func (TerminateRequest) Place(*Encoder)   {}

// OKReply reports a successful launch.
type OKReply struct {
	PID int
}

func (OKReply) Command() Command { return CommandOK }
func (OKReply) Size() int        { return intSize }
func (r OKReply) Place(e *Encoder) {
	e.PutInt(int64(r.PID))
}

// ErrorReply reports a rejected launch.
type ErrorReply struct{}

func (ErrorReply) Command() Command { return CommandError }
func (ErrorReply) Size() int        { return 0 }
func (ErrorReply) Place(*Encoder)   {}

// ChildDiedNotice reports that a supervised process exited.
type ChildDiedNotice struct {
	PID    int
	Status int
}

func (ChildDiedNotice) Command() Command { return CommandChildDied }
func (ChildDiedNotice) Size() int        { return 2 * intSize }
func (r ChildDiedNotice) Place(e *Encoder) {
	e.PutInt(int64(r.PID))
	e.PutInt(int64(r.Status))
}

// DecodeRequest rebuilds a launch or terminate request from its payload.
// The payload must be consumed exactly.
func DecodeRequest(cmd Command, payload []byte) (Message, error) {
	d := NewDecoder(payload)
	var msg Message

	switch cmd {
	case CommandExecNew:
		argv, err := d.CStrings()
		if err != nil {
			return nil, err
		}
		envc, err := d.Int()
		if err != nil {
			return nil, err
		}
		if envc != 0 {
			return nil, fmt.Errorf("%w: exec_new carries %d environment entries", ErrMalformedPayload, envc)
		}
		avoid, err := d.Int()
		if err != nil {
			return nil, err
		}
		msg = ExecNewRequest{Argv: argv, AvoidLoops: avoid}
	case CommandShell, CommandKWrapper:
		argv, err := d.CStrings()
		if err != nil {
			return nil, err
		}
		cwd, err := d.CString()
		if err != nil {
			return nil, err
		}
		env, err := d.CStrings()
		if err != nil {
			return nil, err
		}
		var tty string
		if cmd == CommandKWrapper {
			if tty, err = d.CString(); err != nil {
				return nil, err
			}
		}
		avoid, err := d.Int()
		if err != nil {
			return nil, err
		}
		startupID, err := d.CString()
		if err != nil {
			return nil, err
		}
		if cmd == CommandKWrapper {
			msg = KWrapperRequest{Argv: argv, Cwd: cwd, Env: env, TTY: tty, AvoidLoops: avoid, StartupID: startupID}
		} else {
			msg = ShellRequest{Argv: argv, Cwd: cwd, Env: env, AvoidLoops: avoid, StartupID: startupID}
		}
	case CommandTerminate:
		msg = TerminateRequest{}
	default:
		return nil, fmt.Errorf("%w: %s is not a request", ErrMalformedHeader, cmd)
	}

	if err := d.Finish(); err != nil {
		return nil, err
	}
	return msg, nil
}

// DecodeReply rebuilds a daemon reply. Replies may carry trailing bytes;
// only the leading fields are interpreted. Error replies ignore the payload.
func DecodeReply(cmd Command, payload []byte) (Message, error) {
	d := NewDecoder(payload)

	switch cmd {
	case CommandOK:
		pid, err := d.Int()
		if err != nil {
			return nil, err
		}
		return OKReply{PID: int(pid)}, nil
	case CommandError:
		return ErrorReply{}, nil
	case CommandChildDied:
		pid, err := d.Int()
		if err != nil {
			return nil, err
		}
		status, err := d.Int()
		if err != nil {
			return nil, err
		}
		return ChildDiedNotice{PID: int(pid), Status: int(status)}, nil
	default:
		return nil, fmt.Errorf("%w: %s is not a reply", ErrMalformedHeader, cmd)
	}
}
