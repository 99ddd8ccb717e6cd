package nexori

// ConnectionState represents the current state of the event connection.
type ConnectionState int

const (
	// StateDisconnected means the client is not connected, either because it
	// never connected or because Disconnect was called.
	StateDisconnected ConnectionState = iota

	// StateConnecting means a connection attempt started by Connect is in flight.
	StateConnecting

	// StateConnected means the handshake completed and events are flowing.
	StateConnected

	// StateReconnecting means the transport dropped and automatic attempts are scheduled.
	StateReconnecting

	// StateFailed means the last attempt failed and no automatic attempt is pending.
	StateFailed
)

// String returns the string representation of a ConnectionState.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateEvent represents a state change event.
type StateEvent struct {
	OldState ConnectionState
	NewState ConnectionState
	Error    error // Optional error that caused the state change
}
