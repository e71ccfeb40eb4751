package http

import (
	"fmt"

	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (core.Command, error) {
	payload, err := proto.Decode(inbound)
	if err != nil {
		return core.Command{}, err
	}

	switch data := payload.(type) {
	case *proto.JoinData:
		return core.Command{
			Kind:   core.CommandJoin,
			UserID: data.UserID,
		}, nil
	case *proto.SendMessageData:
		return core.Command{
			Kind:     core.CommandSendMessage,
			SenderID: data.SenderID,
			Text:     data.Message,
		}, nil
	case *proto.PrivateMessageData:
		return core.Command{
			Kind:        core.CommandPrivateMessage,
			SenderID:    data.SenderID,
			RecipientID: data.RecipientID,
			Text:        data.Message,
		}, nil
	default:
		return core.Command{}, fmt.Errorf("%w: %T", proto.ErrUnknownEvent, payload)
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomMessage:
		return proto.Outbound{
			Event: proto.OutboundEventMessage,
			Data:  proto.ChatMessage{Username: event.Username, Message: event.Text},
		}
	case core.EventPrivateMessage:
		return proto.Outbound{
			Event: proto.OutboundEventPrivateMessage,
			Data:  proto.ChatMessage{Username: event.Username, Message: event.Text},
		}
	case core.EventError:
		return proto.Outbound{
			Event: proto.OutboundEventError,
			Data:  proto.ErrorData{Message: event.Text},
		}
	default:
		return proto.Outbound{Event: proto.OutboundEventError, Data: proto.ErrorData{Message: "unknown event"}}
	}
}
