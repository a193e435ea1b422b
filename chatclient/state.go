package chatclient

// State is the connection state of a Client.
type State int

const (
	// StateDisconnected means no socket is open.
	StateDisconnected State = iota

	// StateConnecting means the socket is being dialled or the join is pending.
	StateConnecting

	// StateJoined means the server accepted the join.
	StateJoined
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateJoined:
		return "joined"
	default:
		return "unknown"
	}
}
