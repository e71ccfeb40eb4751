package http

import (
	"sync"
	"time"
)

// rateLimitMessage is sent to a connection whose events exceed its limit.
const rateLimitMessage = "Too many messages, please slow down."

// rateLimiter is a sliding window limiter keyed by identity.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 || window <= 0 {
		return &rateLimiter{limit: 0}
	}
	return &rateLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.limit <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	log := pruneBefore(r.hits[key], now.Add(-r.window))
	if len(log) >= r.limit {
		r.hits[key] = log
		return false
	}
	r.hits[key] = append(log, now)
	return true
}

// sweep drops keys without hits inside the window.
func (r *rateLimiter) sweep() {
	if r == nil || r.limit <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.window)
	for key, log := range r.hits {
		if log = pruneBefore(log, cutoff); len(log) == 0 {
			delete(r.hits, key)
		} else {
			r.hits[key] = log
		}
	}
}

func (r *rateLimiter) startSweep(stop <-chan struct{}) {
	if r == nil || r.limit <= 0 {
		return
	}
	ticker := time.NewTicker(r.window)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.sweep()
			case <-stop:
				return
			}
		}
	}()
}

func pruneBefore(log []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(log) && !log[i].After(cutoff) {
		i++
	}
	return log[i:]
}
