package core

import "sync"

// DefaultOutboundBuffer is the event buffer size used when none is configured.
const DefaultOutboundBuffer = 16

// Client is one live transport connection as seen by the core layer.
// A Client is owned by at most one user for its lifetime.
type Client struct {
	ID string
	// Identity is the authenticated user bound at handshake time, empty for
	// anonymous connections.
	Identity string

	events    chan *Event
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a client with an outbound buffer of the given size.
func NewClient(id, identity string, buffer int) *Client {
	if buffer <= 0 {
		buffer = DefaultOutboundBuffer
	}
	return &Client{
		ID:       id,
		Identity: identity,
		events:   make(chan *Event, buffer),
		done:     make(chan struct{}),
	}
}

// Events returns the outbound event stream drained by the transport writer.
// The channel is never closed; use Done to detect shutdown.
func (c *Client) Events() <-chan *Event {
	return c.events
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close marks the client as gone. Pending and future deliveries are dropped.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Deliver enqueues an event without blocking. It reports false when the
// client is closed or its buffer is full.
func (c *Client) Deliver(ev *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}
