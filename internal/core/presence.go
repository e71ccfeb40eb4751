package core

import (
	"sort"
	"sync"
	"time"
)

// PresenceEvent describes a user going online or offline.
type PresenceEvent struct {
	UserID string
	Online bool
	At     time.Time
}

// Presence tracks which users have at least one live connection.
// Transitions are fed by the Registry; observers may subscribe to them.
type Presence struct {
	mu     sync.RWMutex
	online map[string]time.Time
	subs   map[int]chan PresenceEvent
	nextID int
	now    func() time.Time
}

// NewPresence creates an empty tracker.
func NewPresence() *Presence {
	return &Presence{
		online: make(map[string]time.Time),
		subs:   make(map[int]chan PresenceEvent),
		now:    time.Now,
	}
}

// MarkJoined records userID as online.
func (p *Presence) MarkJoined(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.online[userID]; ok {
		return
	}
	at := p.now()
	p.online[userID] = at
	p.publishLocked(PresenceEvent{UserID: userID, Online: true, At: at})
}

// MarkLeft records userID as offline.
func (p *Presence) MarkLeft(userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.online[userID]; !ok {
		return
	}
	delete(p.online, userID)
	p.publishLocked(PresenceEvent{UserID: userID, Online: false, At: p.now()})
}

// IsOnline reports whether userID has a live connection.
func (p *Presence) IsOnline(userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, ok := p.online[userID]
	return ok
}

// Since returns when userID came online.
func (p *Presence) Since(userID string) (time.Time, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	at, ok := p.online[userID]
	return at, ok
}

// Online lists online users in lexical order.
func (p *Presence) Online() []string {
	p.mu.RLock()
	users := make([]string, 0, len(p.online))
	for id := range p.online {
		users = append(users, id)
	}
	p.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Subscribe returns a stream of presence transitions. Events are dropped for
// a subscriber whose buffer is full. cancel releases the subscription.
func (p *Presence) Subscribe(buffer int) (events <-chan PresenceEvent, cancel func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan PresenceEvent, buffer)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = ch
	p.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
			close(ch)
		})
	}
}

func (p *Presence) publishLocked(ev PresenceEvent) {
	for _, ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
