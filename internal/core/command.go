package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin binds the connection to a user.
	CommandJoin CommandKind = iota
	// CommandSendMessage broadcasts a message to the global room.
	CommandSendMessage
	// CommandPrivateMessage sends a message to one user's connections.
	CommandPrivateMessage
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoin:
		return "join"
	case CommandSendMessage:
		return "send_message"
	case CommandPrivateMessage:
		return "private_message"
	default:
		return "unknown"
	}
}

// Command represents an inbound event decoded from a connection.
// Fields not used by Kind are ignored.
type Command struct {
	Kind        CommandKind
	UserID      string
	SenderID    string
	RecipientID string
	Text        string
}
