package core

import (
	"sync"

	"github.com/samber/lo"
)

// PresenceSink receives online/offline transitions from the Registry.
// Implementations must not block.
type PresenceSink interface {
	MarkJoined(userID string)
	MarkLeft(userID string)
}

// Stats is a point-in-time size of the registry.
type Stats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

// Registry maps users to their live connections. It is the only owner of
// that mapping; every read and write goes through its methods.
type Registry struct {
	mu       sync.RWMutex
	byUser   map[string]map[*Client]struct{}
	byClient map[*Client]string
	presence PresenceSink
}

// NewRegistry creates an empty registry. presence may be nil.
func NewRegistry(presence PresenceSink) *Registry {
	return &Registry{
		byUser:   make(map[string]map[*Client]struct{}),
		byClient: make(map[*Client]string),
		presence: presence,
	}
}

// Register adds c under userID. Registering the same pair twice is a no-op.
// A client owned by another user is moved. Returns true if userID went
// from offline to online.
func (r *Registry) Register(userID string, c *Client) bool {
	if userID == "" || c == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.byClient[c]; ok {
		if owner == userID {
			return false
		}
		r.removeLocked(owner, c)
	}

	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.byUser[userID] = set
	}
	set[c] = struct{}{}
	r.byClient[c] = userID

	if !ok {
		if r.presence != nil {
			r.presence.MarkJoined(userID)
		}
		return true
	}
	return false
}

// Unregister removes c from whichever user owns it. Unknown clients are
// ignored. It returns the previous owner and whether c was its last
// connection.
func (r *Registry) Unregister(c *Client) (userID string, last bool) {
	if c == nil {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.byClient[c]
	if !ok {
		return "", false
	}
	return owner, r.removeLocked(owner, c)
}

func (r *Registry) removeLocked(owner string, c *Client) bool {
	delete(r.byClient, c)

	set := r.byUser[owner]
	delete(set, c)
	if len(set) > 0 {
		return false
	}

	delete(r.byUser, owner)
	if r.presence != nil {
		r.presence.MarkLeft(owner)
	}
	return true
}

// ConnectionsFor returns a snapshot of the clients registered to userID.
func (r *Registry) ConnectionsFor(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	return lo.Keys(set)
}

// All returns a snapshot of every registered client.
func (r *Registry) All() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Keys(r.byClient)
}

// OwnerOf returns the user c is registered to.
func (r *Registry) OwnerOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.byClient[c]
	return owner, ok
}

// Stats reports how many users and connections are registered.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Stats{Users: len(r.byUser), Connections: len(r.byClient)}
}
