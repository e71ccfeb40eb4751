package proto

import "encoding/json"

// Inbound is the envelope for named events coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	InboundEventJoin           = "join"
	InboundEventSendMessage    = "send_message"
	InboundEventPrivateMessage = "private_message"

	OutboundEventMessage        = "message"
	OutboundEventPrivateMessage = "private_message"
	OutboundEventError          = "error"
)

// JoinData binds the connection to a user.
type JoinData struct {
	UserID string `json:"user_id" validate:"required"`
}

// SendMessageData is a room message from the client.
type SendMessageData struct {
	SenderID string `json:"sender_id"`
	Message  string `json:"message" validate:"required"`
}

// PrivateMessageData is a one-to-one message from the client.
type PrivateMessageData struct {
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id" validate:"required"`
	Message     string `json:"message" validate:"required"`
}

// Outbound is the envelope for named events sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// ChatMessage is the payload of both message and private_message events.
type ChatMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// ErrorData tells a single connection why its event was refused.
type ErrorData struct {
	Message string `json:"message"`
}
