package link

import (
	"fmt"

	"github.com/mupfdev/CANopenTerm/pkg/can"
)

type State uint32

const (
	Uninitialized State = 0
	Connected     State = 1
	Faulted       State = 2 // Adapter was removed while connected
)

var StateDescriptionMap = map[State]string{
	Uninitialized: "UNINITIALIZED",
	Connected:     "CONNECTED",
	Faulted:       "FAULTED",
}

func (state State) String() string {
	if description, ok := StateDescriptionMap[state]; ok {
		return description
	}
	return fmt.Sprintf("UNKNOWN (%d)", uint32(state))
}

// Event is emitted on every link state transition
type Event struct {
	From    State
	To      State
	Status  can.Status // Status that caused the transition
	BitRate can.BitRate
}

func (event Event) String() string {
	return fmt.Sprintf("%v -> %v (%v, status %v)", event.From, event.To, event.BitRate, event.Status)
}

// Listener is notified of link state transitions.
// Handle is called from the supervisor goroutine or from the caller of
// [Supervisor.SetBitRate] / [Supervisor.Uninitialize] and must not block.
type Listener interface {
	Handle(event Event)
}

type ListenerFunc func(event Event)

func (f ListenerFunc) Handle(event Event) {
	f(event)
}
