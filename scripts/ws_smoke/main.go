package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

type outbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

// run connects two users, sends one broadcast and one private message and
// checks that both arrive where expected.
func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	from := flag.String("from", "smoke-alice", "sending user id")
	to := flag.String("to", "smoke-bob", "receiving user id")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sender, err := connect(ctx, *addr, *from)
	if err != nil {
		return err
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	receiver, err := connect(ctx, *addr, *to)
	if err != nil {
		return err
	}
	defer receiver.Close(websocket.StatusNormalClosure, "bye")

	// Joins are processed asynchronously; give the relay a moment.
	time.Sleep(100 * time.Millisecond)

	if err := send(ctx, sender, proto.InboundEventSendMessage, proto.SendMessageData{SenderID: *from, Message: *text}); err != nil {
		return err
	}
	if err := expect(ctx, receiver, proto.OutboundEventMessage, *text); err != nil {
		return err
	}

	private := *text + " (private)"
	if err := send(ctx, sender, proto.InboundEventPrivateMessage, proto.PrivateMessageData{
		SenderID:    *from,
		RecipientID: *to,
		Message:     private,
	}); err != nil {
		return err
	}
	if err := expect(ctx, receiver, proto.OutboundEventPrivateMessage, private); err != nil {
		return err
	}

	fmt.Println("smoke test passed")
	return nil
}

func connect(ctx context.Context, addr, userID string) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if err := send(ctx, conn, proto.InboundEventJoin, proto.JoinData{UserID: userID}); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "join failed")
		return nil, err
	}
	return conn, nil
}

func send(ctx context.Context, conn *websocket.Conn, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// expect reads until an event of the given kind arrives and checks its text.
func expect(ctx context.Context, conn *websocket.Conn, event, text string) error {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}
		fmt.Printf("Received event=%s data=%s\n", out.Event, string(out.Data))

		if out.Event == proto.OutboundEventError {
			return fmt.Errorf("server error: %s", string(out.Data))
		}
		if out.Event != event {
			continue
		}

		var msg proto.ChatMessage
		if err := json.Unmarshal(out.Data, &msg); err != nil {
			return fmt.Errorf("unmarshal %s: %w", event, err)
		}
		if msg.Message != text {
			return fmt.Errorf("%s: got %q, want %q", event, msg.Message, text)
		}
		return nil
	}
}
