package core

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SenderPolicy decides which identity speaks for a connection.
type SenderPolicy string

const (
	// SenderPolicyBound makes a joined connection speak as its joined user,
	// ignoring the sender_id it supplies. Unjoined connections fall back to
	// the supplied sender_id.
	SenderPolicyBound SenderPolicy = "bound"
	// SenderPolicyTrust uses the supplied sender_id as is.
	SenderPolicyTrust SenderPolicy = "trust"
)

// Valid reports whether p is a known policy.
func (p SenderPolicy) Valid() bool {
	return p == SenderPolicyBound || p == SenderPolicyTrust
}

// Options tune dispatcher behavior.
type Options struct {
	SenderPolicy        SenderPolicy
	MaxMessageLength    int
	EchoPrivateToSender bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		SenderPolicy:     SenderPolicyBound,
		MaxMessageLength: DefaultMaxMessageLength,
	}
}

// Dispatcher routes inbound commands from any connection to the room or
// the private router. A connection is JOINED once it is registered.
type Dispatcher struct {
	registry *Registry
	room     *Room
	router   *Router
	opts     Options
	log      *zerolog.Logger
	now      func() time.Time
}

// NewDispatcher wires a dispatcher over already constructed components.
func NewDispatcher(registry *Registry, room *Room, router *Router, opts Options, logger *zerolog.Logger) *Dispatcher {
	if !opts.SenderPolicy.Valid() {
		opts.SenderPolicy = SenderPolicyBound
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Dispatcher{
		registry: registry,
		room:     room,
		router:   router,
		opts:     opts,
		log:      logger,
		now:      time.Now,
	}
}

// Dispatch handles one command. A panic inside a handler is recovered and
// reported as ErrHandlerPanic so the connection can keep reading.
func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, cmd Command) (delivery Delivery, err error) {
	defer func() {
		if r := recover(); r != nil {
			delivery = Delivery{}
			err = fmt.Errorf("%w: %s: %v", ErrHandlerPanic, cmd.Kind, r)
		}
	}()

	switch cmd.Kind {
	case CommandJoin:
		return Delivery{}, d.Join(c, cmd.UserID)
	case CommandSendMessage:
		return d.SendMessage(ctx, c, cmd.SenderID, cmd.Text)
	case CommandPrivateMessage:
		return d.PrivateMessage(ctx, c, cmd.SenderID, cmd.RecipientID, cmd.Text)
	default:
		return Delivery{}, fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
	}
}

// Join binds c to userID. Joining again with another id moves the
// connection to that user.
func (d *Dispatcher) Join(c *Client, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}
	if c.Identity != "" && userID != c.Identity {
		return ErrIdentityMismatch
	}

	online := d.registry.Register(userID, c)
	d.log.Debug().
		Str("client_id", c.ID).
		Str("user_id", userID).
		Bool("came_online", online).
		Msg("client joined")
	return nil
}

// SendMessage broadcasts text to the global room on behalf of the sender.
func (d *Dispatcher) SendMessage(ctx context.Context, c *Client, senderID, text string) (Delivery, error) {
	clean, err := cleanText(text, d.opts.MaxMessageLength)
	if err != nil {
		return Delivery{}, err
	}
	sender, err := d.resolveSender(c, senderID)
	if err != nil {
		return Delivery{}, err
	}

	delivery := d.room.Broadcast(ctx, RoomMessage{
		SenderID:  sender,
		Text:      clean,
		CreatedAt: d.now(),
	})
	d.log.Debug().
		Str("client_id", c.ID).
		Str("sender_id", sender).
		Int("attempted", delivery.Attempted).
		Int("dropped", delivery.Dropped).
		Msg("room message broadcast")
	return delivery, nil
}

// PrivateMessage routes text to recipientID. Joining is not required.
func (d *Dispatcher) PrivateMessage(ctx context.Context, c *Client, senderID, recipientID, text string) (Delivery, error) {
	if recipientID == "" {
		return Delivery{}, ErrEmptyRecipientID
	}
	clean, err := cleanText(text, d.opts.MaxMessageLength)
	if err != nil {
		return Delivery{}, err
	}
	sender, err := d.resolveSender(c, senderID)
	if err != nil {
		return Delivery{}, err
	}

	delivery, err := d.router.Route(ctx, PrivateMessage{
		SenderID:    sender,
		RecipientID: recipientID,
		Text:        clean,
		CreatedAt:   d.now(),
	}, c)
	if err != nil {
		return Delivery{}, err
	}
	d.log.Debug().
		Str("client_id", c.ID).
		Str("sender_id", sender).
		Str("recipient_id", recipientID).
		Int("attempted", delivery.Attempted).
		Int("dropped", delivery.Dropped).
		Msg("private message routed")
	return delivery, nil
}

// Disconnect closes c and removes it from the registry. Presence goes
// offline when c was the owner's last connection.
func (d *Dispatcher) Disconnect(c *Client) {
	c.Close()
	userID, last := d.registry.Unregister(c)
	if userID == "" {
		return
	}
	d.log.Debug().
		Str("client_id", c.ID).
		Str("user_id", userID).
		Bool("went_offline", last).
		Msg("client disconnected")
}

// resolveSender picks the identity that speaks for c.
func (d *Dispatcher) resolveSender(c *Client, supplied string) (string, error) {
	bound := c.Identity
	if bound == "" {
		bound, _ = d.registry.OwnerOf(c)
	}

	if d.opts.SenderPolicy == SenderPolicyBound && bound != "" {
		if supplied != "" && supplied != bound {
			d.log.Warn().
				Str("client_id", c.ID).
				Str("bound_user", bound).
				Str("supplied_sender", supplied).
				Msg("ignoring sender_id that does not match joined user")
		}
		return bound, nil
	}

	if supplied != "" {
		return supplied, nil
	}
	if bound != "" {
		return bound, nil
	}
	return "", ErrEmptySenderID
}
