package core

import "context"

// GlobalRoom names the single broadcast scope.
const GlobalRoom = "global"

// Directory resolves a user id to the name shown to other users.
type Directory interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Room broadcasts messages to every registered connection.
type Room struct {
	Name      string
	registry  *Registry
	directory Directory
}

// NewRoom constructs the broadcaster for the global room. directory may be
// nil, in which case sender ids are shown verbatim.
func NewRoom(registry *Registry, directory Directory) *Room {
	return &Room{
		Name:      GlobalRoom,
		registry:  registry,
		directory: directory,
	}
}

// Broadcast delivers msg to every registered client, the sender's own
// connections included. Order across recipients is unspecified.
func (r *Room) Broadcast(ctx context.Context, msg RoomMessage) Delivery {
	event := Event{
		Kind:     EventRoomMessage,
		Username: displayName(ctx, r.directory, msg.SenderID),
		Text:     msg.Text,
	}

	var d Delivery
	for _, client := range r.registry.All() {
		ev := event
		d.record(client.Deliver(&ev))
	}
	return d
}

func displayName(ctx context.Context, dir Directory, userID string) string {
	if dir == nil {
		return userID
	}
	name, err := dir.DisplayName(ctx, userID)
	if err != nil || name == "" {
		return userID
	}
	return name
}
