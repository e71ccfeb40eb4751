package core

import "context"

// Router delivers private messages to the connections of one recipient.
type Router struct {
	registry  *Registry
	directory Directory
	// echo also copies the message to the sender's connections.
	echo bool
}

// NewRouter constructs a private message router.
func NewRouter(registry *Registry, directory Directory, echoToSender bool) *Router {
	return &Router{
		registry:  registry,
		directory: directory,
		echo:      echoToSender,
	}
}

// Route delivers msg to every connection of msg.RecipientID. A recipient
// without connections yields an empty Delivery. origin is the connection the
// message came from and may be nil; a self-message skips it so only the
// sender's other devices receive it.
func (r *Router) Route(ctx context.Context, msg PrivateMessage, origin *Client) (Delivery, error) {
	if msg.SenderID == "" {
		return Delivery{}, ErrEmptySenderID
	}
	if msg.RecipientID == "" {
		return Delivery{}, ErrEmptyRecipientID
	}

	self := msg.SenderID == msg.RecipientID
	targets := r.registry.ConnectionsFor(msg.RecipientID)
	if r.echo && !self {
		targets = append(targets, r.registry.ConnectionsFor(msg.SenderID)...)
	}

	var d Delivery
	if len(targets) == 0 {
		return d, nil
	}

	event := Event{
		Kind:     EventPrivateMessage,
		Username: displayName(ctx, r.directory, msg.SenderID),
		Text:     msg.Text,
	}

	seen := make(map[*Client]struct{}, len(targets))
	for _, client := range targets {
		if self && client == origin {
			continue
		}
		if _, dup := seen[client]; dup {
			continue
		}
		seen[client] = struct{}{}

		ev := event
		d.record(client.Deliver(&ev))
	}
	return d, nil
}
