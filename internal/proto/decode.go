package proto

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrUnknownEvent is returned for event names the server does not handle.
var ErrUnknownEvent = errors.New("unknown event")

// ErrInvalidPayload wraps decoding and validation failures.
var ErrInvalidPayload = errors.New("invalid payload")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses the payload of inbound into the struct matching its event
// name and validates required fields. It returns *JoinData,
// *SendMessageData or *PrivateMessageData.
func Decode(inbound Inbound) (any, error) {
	var target any
	switch inbound.Event {
	case InboundEventJoin:
		target = &JoinData{}
	case InboundEventSendMessage:
		target = &SendMessageData{}
	case InboundEventPrivateMessage:
		target = &PrivateMessageData{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, inbound.Event)
	}

	if len(inbound.Data) == 0 {
		return nil, fmt.Errorf("%w: %s: missing data", ErrInvalidPayload, inbound.Event)
	}
	if err := json.Unmarshal(inbound.Data, target); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, inbound.Event, err)
	}
	if err := validate.Struct(target); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, inbound.Event, err)
	}
	return target, nil
}
