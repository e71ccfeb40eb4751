package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func mustEvent(t *testing.T, c *Client, kind EventKind) *Event {
	t.Helper()

	select {
	case ev := <-c.Events():
		if ev.Kind != kind {
			t.Fatalf("client %s: expected %v event, got %v", c.ID, kind, ev.Kind)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("client %s: expected event kind %v not received", c.ID, kind)
		return nil
	}
}

func mustNoEvent(t *testing.T, c *Client) {
	t.Helper()

	select {
	case ev := <-c.Events():
		t.Fatalf("client %s: unexpected event %+v", c.ID, ev)
	default:
	}
}

// recordingPresence captures transitions reported by the registry.
type recordingPresence struct {
	joined []string
	left   []string
}

func (p *recordingPresence) MarkJoined(userID string) { p.joined = append(p.joined, userID) }
func (p *recordingPresence) MarkLeft(userID string)   { p.left = append(p.left, userID) }

type mapDirectory map[string]string

func (m mapDirectory) DisplayName(_ context.Context, userID string) (string, error) {
	name, ok := m[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return name, nil
}

func newTestHub(opts Options) *Hub {
	return NewHub(nil, opts, nil)
}
