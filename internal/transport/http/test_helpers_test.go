package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

type testEnv struct {
	server *httptest.Server
	hub    *core.Hub
	auth   *auth.Service
	wsURL  string
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.ReadHeaderTimeout = time.Second
	cfg.ShutdownTimeout = time.Second
	return cfg
}

func startTestServer(t *testing.T, cfg config.Config) *testEnv {
	t.Helper()

	logger := zerolog.Nop()
	hub := core.NewHub(nil, cfg.CoreOptions(), &logger)

	var authService *auth.Service
	if cfg.AuthEnabled() {
		authService = auth.NewService(&auth.JWTConfig{
			Secret:   []byte(cfg.JWTSecret),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			TTL:      time.Hour,
		})
	}

	server := NewServer(hub, authService, &cfg, &logger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{
		server: ts,
		hub:    hub,
		auth:   authService,
		wsURL:  strings.Replace(ts.URL, "http", "ws", 1) + "/ws",
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, query string) *websocket.Conn {
	t.Helper()

	url := e.wsURL
	if query != "" {
		url += "?" + query
	}
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// join connects a fresh socket as userID and waits until it is registered.
func (e *testEnv) join(t *testing.T, ctx context.Context, userID string) *websocket.Conn {
	t.Helper()

	before := len(e.hub.Registry.ConnectionsFor(userID))
	conn := e.dial(t, ctx, "")
	send(t, ctx, conn, proto.InboundEventJoin, proto.JoinData{UserID: userID})
	require.Eventually(t, func() bool {
		return len(e.hub.Registry.ConnectionsFor(userID)) == before+1
	}, 2*time.Second, 10*time.Millisecond, "join %s not registered", userID)
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(ctx, conn, proto.Inbound{Event: event, Data: payload}))
}

type received struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) received {
	t.Helper()

	var out received
	require.NoError(t, wsjson.Read(ctx, conn, &out))
	return out
}

func readChat(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) proto.ChatMessage {
	t.Helper()

	out := readEvent(t, ctx, conn)
	require.Equal(t, event, out.Event)

	var msg proto.ChatMessage
	require.NoError(t, json.Unmarshal(out.Data, &msg))
	return msg
}
