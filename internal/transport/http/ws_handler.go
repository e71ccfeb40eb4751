package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

// frameOverhead covers the envelope, field names and ids around the message
// text of one inbound frame.
const frameOverhead = 4 << 10

// wsReadLimit sizes the largest accepted inbound frame for message texts of
// up to maxMessageLength runes. Text is counted after sanitizing, so raw input
// may carry tags and JSON escapes; each rune is budgeted at 16 bytes.
// Frames above the limit close the connection with StatusMessageTooBig.
func wsReadLimit(maxMessageLength int) int64 {
	if maxMessageLength <= 0 {
		maxMessageLength = core.DefaultMaxMessageLength
	}
	return frameOverhead + int64(maxMessageLength)*16
}

// limits holds one limiter per inbound command kind.
type limits map[core.CommandKind]*rateLimiter

func (l limits) allow(kind core.CommandKind, key string) bool {
	return l[kind].allow(key)
}

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub    *core.Hub
	auth   *auth.Service
	limits    limits
	buffer    int
	readLimit int64
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. authService may be nil to
// accept anonymous connections.
func NewWSHandler(hub *core.Hub, authService *auth.Service, lim limits, buffer int, readLimit int64, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		auth:      authService,
		limits:    lim,
		buffer:    buffer,
		readLimit: readLimit,
		log:       logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	identity := ""
	if h.auth != nil {
		claims, err := h.auth.ValidateToken(tokenFromRequest(r))
		if err != nil {
			h.log.Debug().Err(err).Msg("ws handshake rejected")
			stdhttp.Error(w, "unauthorized", stdhttp.StatusUnauthorized)
			return
		}
		identity = claims.Subject
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")
	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(utils.NewID(), identity, h.buffer)
	defer h.hub.Dispatcher.Disconnect(client)

	h.log.Debug().Str("client_id", client.ID).Str("identity", identity).Msg("ws connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop handles inbound events one at a time, preserving the order the
// connection sent them in. Bad frames are skipped, never fatal.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		if typ != websocket.MessageText {
			h.log.Debug().Str("client_id", client.ID).Msg("ignoring binary frame")
			continue
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Debug().Err(err).Str("client_id", client.ID).Msg("ignoring malformed frame")
			continue
		}

		h.handleInbound(ctx, client, inbound)
	}
}

func (h *WSHandler) handleInbound(ctx context.Context, client *core.Client, inbound proto.Inbound) {
	cmd, err := inboundToCommand(inbound)
	if err != nil {
		h.log.Debug().Err(err).Str("client_id", client.ID).Str("event", inbound.Event).Msg("dropping inbound event")
		return
	}

	if !h.limits.allow(cmd.Kind, h.limitKey(client)) {
		h.log.Info().Str("client_id", client.ID).Str("event", inbound.Event).Msg("rate limited")
		client.Deliver(&core.Event{Kind: core.EventError, Text: rateLimitMessage})
		return
	}

	if _, err := h.hub.Dispatcher.Dispatch(ctx, client, cmd); err != nil {
		ev := h.log.Warn()
		if core.IsValidation(err) {
			ev = h.log.Debug()
		}
		ev.Err(err).Str("client_id", client.ID).Str("event", inbound.Event).Msg("dropping inbound event")
	}
}

// limitKey identifies who is charged for an event: the authenticated or
// joined user, or the bare connection before join.
func (h *WSHandler) limitKey(client *core.Client) string {
	if client.Identity != "" {
		return "user:" + client.Identity
	}
	if owner, ok := h.hub.Registry.OwnerOf(client); ok {
		return "user:" + owner
	}
	return "conn:" + client.ID
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event := <-client.Events():
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
