package core

import "time"

// RoomMessage is a chat message broadcast to the global room.
type RoomMessage struct {
	SenderID  string
	Text      string
	CreatedAt time.Time
}

// PrivateMessage is a one-to-one message addressed to a single user.
type PrivateMessage struct {
	SenderID    string
	RecipientID string
	Text        string
	CreatedAt   time.Time
}

// Delivery summarizes one fan-out call. It is never reported to the sender.
type Delivery struct {
	// Attempted counts distinct recipient connections selected.
	Attempted int
	// Delivered counts events enqueued into a recipient buffer.
	Delivered int
	// Dropped counts recipients that were closed or too slow.
	Dropped int
}

func (d *Delivery) record(ok bool) {
	d.Attempted++
	if ok {
		d.Delivered++
	} else {
		d.Dropped++
	}
}
