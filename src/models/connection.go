package models

// MConnectionState is the lifecycle state of the streaming connection.
type MConnectionState int

const (
	StateDisconnected MConnectionState = iota
	StateConnecting
	StateConnected
	StateRetrying
)

func (s MConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRetrying:
		return "retrying"
	default:
		return "disconnected"
	}
}

func (s MConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MStreamStats counts connection lifecycle events.
type MStreamStats struct {
	State         MConnectionState `json:"state"`
	Connects      int              `json:"connects"`
	Reconnects    int              `json:"reconnects"`
	TicksApplied  int              `json:"ticks_applied"`
	Ignored       int              `json:"ignored_messages"`
	LastError     string           `json:"last_error,omitempty"`
	LastConnected int64            `json:"last_connected,omitempty"`
}
