package supervisor

import "fmt"

// eventType names a concrete Event for logging and, potentially,
// decoding. Named the same way cronmon.Event.Type() names its events.
type eventType = string

const (
	eventWarning         eventType = "warning"
	eventServiceStarted  eventType = "service started"
	eventServiceSpawnErr eventType = "service spawn error"
	eventServiceExited   eventType = "service exited"
	eventServiceRemoved  eventType = "service removed"
	eventReloadStarted   eventType = "reload started"
	eventReloadFailed    eventType = "reload failed"
	eventControlDropped  eventType = "control frame dropped"
	eventControlUnknown  eventType = "control id unknown"
	eventShutdown        eventType = "shutdown requested"
)

// Event is anything the supervisor can journal.
type Event interface {
	Type() string
	fmt.Stringer
}

// EventWarning is emitted for any non-fatal error the loop swallows.
type EventWarning struct {
	Component string
	Err       error
}

func (e EventWarning) Type() string { return eventWarning }
func (e EventWarning) String() string {
	return fmt.Sprintf("warning[%s]: %v", e.Component, e.Err)
}

// EventServiceStarted is emitted every time a service transitions into
// Running, whether from an initial start, a restart, or on_exit=Restart.
type EventServiceStarted struct {
	Name string
	ID   ServiceID
	PID  int
}

func (e EventServiceStarted) Type() string { return eventServiceStarted }
func (e EventServiceStarted) String() string {
	return fmt.Sprintf("service %q (id %d) started, pid %d", e.Name, e.ID, e.PID)
}

// EventServiceSpawnError is emitted when launching a service's process
// fails.
type EventServiceSpawnError struct {
	Name string
	ID   ServiceID
	Err  error
}

func (e EventServiceSpawnError) Type() string { return eventServiceSpawnErr }
func (e EventServiceSpawnError) String() string {
	return fmt.Sprintf("service %q (id %d) failed to start: %v", e.Name, e.ID, e.Err)
}

// EventServiceExited is emitted when a Running service's process exits
// on its own, before its on_exit policy is applied. The exit of a
// process the supervisor was already stopping is not reported with this
// event.
type EventServiceExited struct {
	Name   string
	ID     ServiceID
	Reason StopReason
	Crash  bool // true if Reason is KilledBySignal with a crash signal
}

func (e EventServiceExited) Type() string { return eventServiceExited }
func (e EventServiceExited) String() string {
	if e.Crash {
		return fmt.Sprintf("service %q (id %d) crashed: %s", e.Name, e.ID, e.Reason)
	}
	return fmt.Sprintf("service %q (id %d) exited: %s", e.Name, e.ID, e.Reason)
}

// EventServiceRemoved is emitted when a service record is deleted,
// whether by on_exit=Remove, a reload removal, or a pending removal.
type EventServiceRemoved struct {
	Name string
	ID   ServiceID
}

func (e EventServiceRemoved) Type() string { return eventServiceRemoved }
func (e EventServiceRemoved) String() string {
	return fmt.Sprintf("service %q (id %d) removed", e.Name, e.ID)
}

// EventReloadStarted is emitted on receipt of SIGHUP, before the
// reconciler runs.
type EventReloadStarted struct{}

func (e EventReloadStarted) Type() string   { return eventReloadStarted }
func (e EventReloadStarted) String() string { return "reload requested" }

// EventReloadFailed is emitted when the new configuration fails to
// parse; the current state is preserved.
type EventReloadFailed struct {
	Err error
}

func (e EventReloadFailed) Type() string { return eventReloadFailed }
func (e EventReloadFailed) String() string {
	return fmt.Sprintf("reload failed, keeping current configuration: %v", e.Err)
}

// EventControlDropped is emitted for a malformed control frame.
type EventControlDropped struct {
	Err error
}

func (e EventControlDropped) Type() string { return eventControlDropped }
func (e EventControlDropped) String() string {
	return fmt.Sprintf("dropped malformed control frame: %v", e.Err)
}

// EventControlUnknown is emitted when a control command names a
// ServiceID the registry doesn't recognize.
type EventControlUnknown struct {
	ID ServiceID
	Op ControlOp
}

func (e EventControlUnknown) Type() string { return eventControlUnknown }
func (e EventControlUnknown) String() string {
	return fmt.Sprintf("control command %s for unknown id %d ignored", e.Op, e.ID)
}

// EventShutdown is emitted the first time TERM/INT is observed.
type EventShutdown struct{}

func (e EventShutdown) Type() string   { return eventShutdown }
func (e EventShutdown) String() string { return "shutdown requested, stopping all services" }

// Journaler describes an event sink. Like cronmon's Journaler, the core
// only ever writes to this interface; concrete sinks (human-readable,
// structured, multiplexed) live outside the core.
type Journaler interface {
	Write(Event)
}

// NopJournaler discards every event. Useful as a default and in tests
// that don't care about log output.
type NopJournaler struct{}

func (NopJournaler) Write(Event) {}
