// Package fsm defines the supervised-launch state machine.
package fsm

import "fmt"

type State string

type Event string

const (
	StateInstalling State = "installing"
	StateArmed      State = "armed"
	StateForwarding State = "forwarding"
	StateWaiting    State = "waiting"
	StateDone       State = "done"
)

const (
	EventInstalled Event = "installed"
	EventSignal    Event = "signal"
	EventRelayed   Event = "relayed"
	EventReinstall Event = "reinstall"
	EventNotice    Event = "notice"
	EventExit      Event = "exit"
	EventFail      Event = "fail"
)

func Transition(current State, event Event) (State, error) {
	if event == EventFail {
		return StateDone, nil
	}

	switch current {
	case StateInstalling:
		switch event {
		case EventInstalled:
			return StateArmed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateArmed:
		switch event {
		case EventSignal:
			return StateForwarding, nil
		case EventNotice:
			return StateWaiting, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateForwarding:
		switch event {
		case EventRelayed:
			return StateArmed, nil
		case EventReinstall:
			return StateInstalling, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateWaiting:
		switch event {
		case EventSignal:
			return StateWaiting, nil
		case EventExit:
			return StateDone, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateDone:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
