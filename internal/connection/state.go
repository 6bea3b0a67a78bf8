package connection

// State represents the lifecycle state of a device connection.
//
// Transitions are driven by the session manager:
//
//	disconnected --Connect()--> connecting --success--> connected
//	connected --liveness failure--> reconnecting --success--> connected
//	reconnecting --attempts exhausted--> failed
//	any state --Disconnect()--> disconnected
type State string

// Connection states.
const (
	// StateDisconnected is the initial state and the result of Disconnect().
	StateDisconnected State = "disconnected"

	// StateConnecting is the transitional state during an initial connect.
	StateConnecting State = "connecting"

	// StateConnected is the only state in which messages may be sent.
	StateConnected State = "connected"

	// StateReconnecting is the transitional state during automatic recovery.
	StateReconnecting State = "reconnecting"

	// StateFailed is entered when reconnect attempts are exhausted.
	StateFailed State = "failed"

	// StateSuspended is entered when the link is deliberately paused
	// (e.g. low-power mode) and may resume without a full reconnect.
	StateSuspended State = "suspended"
)

// AllStates returns every defined connection state.
func AllStates() []State {
	return []State{
		StateDisconnected,
		StateConnecting,
		StateConnected,
		StateReconnecting,
		StateFailed,
		StateSuspended,
	}
}

// IsValid reports whether s is one of the defined states.
func (s State) IsValid() bool {
	switch s {
	case StateDisconnected, StateConnecting, StateConnected,
		StateReconnecting, StateFailed, StateSuspended:
		return true
	default:
		return false
	}
}

// IsTransitional reports whether s is an in-between state that should
// resolve to connected, failed or disconnected on its own.
func (s State) IsTransitional() bool {
	return s == StateConnecting || s == StateReconnecting
}

// CanSend reports whether messages may be sent in this state.
// Only StateConnected permits sending.
func (s State) CanSend() bool {
	return s == StateConnected
}

// IsActive reports whether the state refreshes the link's last-active
// timestamp when entered.
func (s State) IsActive() bool {
	return s == StateConnected || s == StateConnecting
}

// String returns the state name.
func (s State) String() string {
	return string(s)
}
