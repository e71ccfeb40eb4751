package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJoinAndBroadcast(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(DefaultOptions())
	c1 := NewClient("c1", "", 0)
	other := NewClient("c9", "", 0)

	require.NoError(t, hub.Dispatcher.Join(c1, "alice"))
	require.NoError(t, hub.Dispatcher.Join(other, "dave"))

	d, err := hub.Dispatcher.SendMessage(ctx, c1, "alice", "hi")
	require.NoError(t, err)
	require.Equal(t, Delivery{Attempted: 2, Delivered: 2}, d)

	for _, c := range []*Client{c1, other} {
		ev := mustEvent(t, c, EventRoomMessage)
		require.Equal(t, "alice", ev.Username)
		require.Equal(t, "hi", ev.Text)
	}
}

func TestPrivateFanOutToAllDevices(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(DefaultOptions())
	alice := NewClient("c1", "", 0)
	bobA, bobB := NewClient("c2a", "", 0), NewClient("c2b", "", 0)
	carol := NewClient("c3", "", 0)

	require.NoError(t, hub.Dispatcher.Join(alice, "alice"))
	require.NoError(t, hub.Dispatcher.Join(bobA, "bob"))
	require.NoError(t, hub.Dispatcher.Join(bobB, "bob"))
	require.NoError(t, hub.Dispatcher.Join(carol, "carol"))

	d, err := hub.Dispatcher.PrivateMessage(ctx, alice, "alice", "bob", "hey")
	require.NoError(t, err)
	require.Equal(t, Delivery{Attempted: 2, Delivered: 2}, d)

	for _, c := range []*Client{bobA, bobB} {
		ev := mustEvent(t, c, EventPrivateMessage)
		require.Equal(t, "alice", ev.Username)
		require.Equal(t, "hey", ev.Text)
	}
	mustNoEvent(t, alice)
	mustNoEvent(t, carol)
}

func TestWhitespaceMessageIsDropped(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(DefaultOptions())
	c1 := NewClient("c1", "", 0)
	require.NoError(t, hub.Dispatcher.Join(c1, "alice"))

	d, err := hub.Dispatcher.SendMessage(ctx, c1, "alice", "   ")
	require.ErrorIs(t, err, ErrEmptyMessage)
	require.True(t, IsValidation(err))
	require.Zero(t, d.Attempted)
	mustNoEvent(t, c1)
}

func TestPrivateToUnknownRecipient(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	c1 := NewClient("c1", "", 0)
	require.NoError(t, hub.Dispatcher.Join(c1, "alice"))

	d, err := hub.Dispatcher.PrivateMessage(context.Background(), c1, "alice", "carol", "anyone?")
	require.NoError(t, err)
	require.Equal(t, Delivery{}, d)
	mustNoEvent(t, c1)
}

func TestDisconnectStopsDelivery(t *testing.T) {
	ctx := context.Background()
	hub := newTestHub(DefaultOptions())
	c1, c2 := NewClient("c1", "", 0), NewClient("c2", "", 0)
	require.NoError(t, hub.Dispatcher.Join(c1, "alice"))
	require.NoError(t, hub.Dispatcher.Join(c2, "bob"))

	hub.Dispatcher.Disconnect(c1)
	require.NotContains(t, hub.Registry.ConnectionsFor("alice"), c1)

	d, err := hub.Dispatcher.SendMessage(ctx, c2, "bob", "still here?")
	require.NoError(t, err)
	require.Equal(t, Delivery{Attempted: 1, Delivered: 1}, d)
	mustNoEvent(t, c1)
	mustEvent(t, c2, EventRoomMessage)
}

func TestBroadcastAttemptsEveryConnectionOnce(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	var clients []*Client
	for i := 0; i < 7; i++ {
		c := NewClient(fmt.Sprintf("c%d", i), "", 0)
		// Seven connections spread over three users.
		require.NoError(t, hub.Dispatcher.Join(c, fmt.Sprintf("u%d", i%3)))
		clients = append(clients, c)
	}

	d := hub.Room.Broadcast(context.Background(), RoomMessage{SenderID: "u0", Text: "all"})
	require.Equal(t, 7, d.Attempted)
	require.Equal(t, 7, d.Delivered)
	for _, c := range clients {
		mustEvent(t, c, EventRoomMessage)
		mustNoEvent(t, c)
	}
}

func TestSendBeforeJoinUsesSuppliedSender(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	listener := NewClient("c1", "", 0)
	require.NoError(t, hub.Dispatcher.Join(listener, "alice"))
	anon := NewClient("c2", "", 0)

	_, err := hub.Dispatcher.SendMessage(context.Background(), anon, "zoe", "early bird")
	require.NoError(t, err)

	ev := mustEvent(t, listener, EventRoomMessage)
	require.Equal(t, "zoe", ev.Username)
	mustNoEvent(t, anon)
}

func TestSendWithoutAnySenderIsDropped(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	anon := NewClient("c1", "", 0)

	_, err := hub.Dispatcher.SendMessage(context.Background(), anon, "", "who am i")
	require.ErrorIs(t, err, ErrEmptySenderID)
}

func TestSenderPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy SenderPolicy
		want   string
	}{
		{name: "bound ignores supplied sender", policy: SenderPolicyBound, want: "alice"},
		{name: "trust keeps supplied sender", policy: SenderPolicyTrust, want: "mallory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.SenderPolicy = tt.policy
			hub := newTestHub(opts)
			alice, bob := NewClient("c1", "", 0), NewClient("c2", "", 0)
			require.NoError(t, hub.Dispatcher.Join(alice, "alice"))
			require.NoError(t, hub.Dispatcher.Join(bob, "bob"))

			_, err := hub.Dispatcher.PrivateMessage(context.Background(), alice, "mallory", "bob", "psst")
			require.NoError(t, err)
			require.Equal(t, tt.want, mustEvent(t, bob, EventPrivateMessage).Username)
		})
	}
}

func TestSelfMessageReachesOtherDevicesOnly(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	phone, laptop := NewClient("phone", "", 0), NewClient("laptop", "", 0)
	require.NoError(t, hub.Dispatcher.Join(phone, "alice"))
	require.NoError(t, hub.Dispatcher.Join(laptop, "alice"))

	d, err := hub.Dispatcher.PrivateMessage(context.Background(), phone, "alice", "alice", "note to self")
	require.NoError(t, err)
	require.Equal(t, 1, d.Attempted)
	mustEvent(t, laptop, EventPrivateMessage)
	mustNoEvent(t, phone)
}

func TestEchoPrivateToSender(t *testing.T) {
	opts := DefaultOptions()
	opts.EchoPrivateToSender = true
	hub := newTestHub(opts)
	alice, bob := NewClient("c1", "", 0), NewClient("c2", "", 0)
	require.NoError(t, hub.Dispatcher.Join(alice, "alice"))
	require.NoError(t, hub.Dispatcher.Join(bob, "bob"))

	d, err := hub.Dispatcher.PrivateMessage(context.Background(), alice, "alice", "bob", "hello")
	require.NoError(t, err)
	require.Equal(t, 2, d.Attempted)
	require.Equal(t, "hello", mustEvent(t, alice, EventPrivateMessage).Text)
	require.Equal(t, "hello", mustEvent(t, bob, EventPrivateMessage).Text)
}

func TestPrivateMessageValidation(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	c := NewClient("c1", "", 0)
	ctx := context.Background()

	_, err := hub.Dispatcher.PrivateMessage(ctx, c, "alice", "", "hi")
	require.ErrorIs(t, err, ErrEmptyRecipientID)

	_, err = hub.Dispatcher.PrivateMessage(ctx, c, "", "bob", "hi")
	require.ErrorIs(t, err, ErrEmptySenderID)

	_, err = hub.Dispatcher.PrivateMessage(ctx, c, "alice", "bob", "\t\n")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestJoinValidation(t *testing.T) {
	hub := newTestHub(DefaultOptions())

	require.ErrorIs(t, hub.Dispatcher.Join(NewClient("c1", "", 0), ""), ErrEmptyUserID)

	authed := NewClient("c2", "alice", 0)
	require.ErrorIs(t, hub.Dispatcher.Join(authed, "bob"), ErrIdentityMismatch)
	require.Empty(t, hub.Registry.ConnectionsFor("bob"))
	require.NoError(t, hub.Dispatcher.Join(authed, "alice"))
}

func TestAuthenticatedIdentitySpeaksBeforeJoin(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	listener := NewClient("c1", "", 0)
	require.NoError(t, hub.Dispatcher.Join(listener, "bob"))
	authed := NewClient("c2", "alice", 0)

	_, err := hub.Dispatcher.SendMessage(context.Background(), authed, "mallory", "hi")
	require.NoError(t, err)
	require.Equal(t, "alice", mustEvent(t, listener, EventRoomMessage).Username)
}

func TestMessageTooLong(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxMessageLength = 5
	hub := newTestHub(opts)
	c := NewClient("c1", "", 0)
	require.NoError(t, hub.Dispatcher.Join(c, "alice"))

	_, err := hub.Dispatcher.SendMessage(context.Background(), c, "alice", "toolong")
	require.ErrorIs(t, err, ErrMessageTooLong)

	_, err = hub.Dispatcher.SendMessage(context.Background(), c, "alice", "héllo")
	require.NoError(t, err)
}

func TestMessageTextIsSanitized(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	c := NewClient("c1", "", 0)
	require.NoError(t, hub.Dispatcher.Join(c, "alice"))

	_, err := hub.Dispatcher.SendMessage(context.Background(), c, "alice", "  <b>hi</b> & bye ")
	require.NoError(t, err)
	require.Equal(t, "hi &amp; bye", mustEvent(t, c, EventRoomMessage).Text)

	_, err = hub.Dispatcher.SendMessage(context.Background(), c, "alice", "<script></script>")
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSlowConsumerDoesNotStallOthers(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	slow := NewClient("slow", "", 1)
	fast := NewClient("fast", "", 4)
	require.NoError(t, hub.Dispatcher.Join(slow, "slow"))
	require.NoError(t, hub.Dispatcher.Join(fast, "fast"))

	for i := 0; i < 3; i++ {
		d, err := hub.Dispatcher.SendMessage(context.Background(), fast, "fast", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		require.Equal(t, 2, d.Attempted)
	}

	for i := 0; i < 3; i++ {
		require.Equal(t, fmt.Sprintf("m%d", i), mustEvent(t, fast, EventRoomMessage).Text)
	}
	require.Equal(t, "m0", mustEvent(t, slow, EventRoomMessage).Text)
	mustNoEvent(t, slow)
}

func TestClosedClientIsSkipped(t *testing.T) {
	hub := newTestHub(DefaultOptions())
	gone, live := NewClient("gone", "", 0), NewClient("live", "", 0)
	require.NoError(t, hub.Dispatcher.Join(gone, "bob"))
	require.NoError(t, hub.Dispatcher.Join(live, "bob"))

	alice := NewClient("c3", "", 0)
	require.NoError(t, hub.Dispatcher.Join(alice, "alice"))

	// Closed but not yet unregistered: the transport is mid-teardown.
	gone.Close()

	d, err := hub.Dispatcher.PrivateMessage(context.Background(), alice, "alice", "bob", "hi")
	require.NoError(t, err)
	require.Equal(t, Delivery{Attempted: 2, Delivered: 1, Dropped: 1}, d)
	mustEvent(t, live, EventPrivateMessage)
}

func TestUsernameResolvedFromDirectory(t *testing.T) {
	dir := mapDirectory{"u-1": "Alice"}
	hub := NewHub(dir, DefaultOptions(), nil)
	alice, bob := NewClient("c1", "", 0), NewClient("c2", "", 0)
	require.NoError(t, hub.Dispatcher.Join(alice, "u-1"))
	require.NoError(t, hub.Dispatcher.Join(bob, "u-2"))

	_, err := hub.Dispatcher.SendMessage(context.Background(), alice, "u-1", "hi")
	require.NoError(t, err)
	require.Equal(t, "Alice", mustEvent(t, bob, EventRoomMessage).Username)
	// The sender's own connection receives the broadcast as well.
	require.Equal(t, "Alice", mustEvent(t, alice, EventRoomMessage).Username)

	// Unknown users fall back to the raw id.
	_, err = hub.Dispatcher.PrivateMessage(context.Background(), bob, "u-2", "u-1", "yo")
	require.NoError(t, err)
	require.Equal(t, "u-2", mustEvent(t, alice, EventPrivateMessage).Username)
}

type panickyDirectory struct{}

func (panickyDirectory) DisplayName(context.Context, string) (string, error) {
	panic("directory exploded")
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	hub := NewHub(panickyDirectory{}, DefaultOptions(), nil)
	c := NewClient("c1", "", 0)

	_, err := hub.Dispatcher.Dispatch(context.Background(), c, Command{Kind: CommandJoin, UserID: "alice"})
	require.NoError(t, err)

	_, err = hub.Dispatcher.Dispatch(context.Background(), c, Command{Kind: CommandSendMessage, Text: "boom"})
	require.ErrorIs(t, err, ErrHandlerPanic)
	require.True(t, strings.Contains(err.Error(), "send_message"))

	_, err = hub.Dispatcher.Dispatch(context.Background(), c, Command{Kind: CommandKind(99)})
	require.True(t, errors.Is(err, ErrUnknownCommand))
}
