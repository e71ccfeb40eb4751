package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomMessage carries a broadcast room message.
	EventRoomMessage EventKind = iota
	// EventPrivateMessage carries a private message to one user's devices.
	EventPrivateMessage
	// EventError notifies a single connection that its event was refused.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventRoomMessage:
		return "message"
	case EventPrivateMessage:
		return "private_message"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
// Every recipient receives its own copy.
type Event struct {
	Kind     EventKind
	Username string
	Text     string
}
