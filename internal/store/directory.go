package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// directoryCacheEntries bounds how many names the directory keeps in memory.
const directoryCacheEntries = 10_000

// Directory resolves display names from a UserStore. Names, and misses, are
// cached for a TTL so senders do not queue on the database for every message.
type Directory struct {
	users UserStore
	cache *ristretto.Cache[string, string]
	ttl   time.Duration
}

// NewDirectory wraps users as a name directory. ttl <= 0 disables caching.
func NewDirectory(users UserStore, ttl time.Duration) (*Directory, error) {
	d := &Directory{users: users, ttl: ttl}
	if ttl <= 0 {
		return d, nil
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, string]{
		NumCounters: directoryCacheEntries * 10,
		MaxCost:     directoryCacheEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init directory cache: %w", err)
	}
	d.cache = cache
	return d, nil
}

// DisplayName returns the stored username for userID. An empty cached name
// records a user without a profile.
func (d *Directory) DisplayName(ctx context.Context, userID string) (string, error) {
	if d.cache != nil {
		if name, ok := d.cache.Get(userID); ok {
			if name == "" {
				return "", fmt.Errorf("lookup %s: %w", userID, ErrUserNotFound)
			}
			return name, nil
		}
	}

	user, err := d.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			d.remember(userID, "")
		}
		return "", fmt.Errorf("lookup %s: %w", userID, err)
	}
	d.remember(userID, user.Username)
	return user.Username, nil
}

// Forget drops any cached name for userID.
func (d *Directory) Forget(userID string) {
	if d.cache != nil {
		d.cache.Del(userID)
	}
}

// Close releases the cache.
func (d *Directory) Close() {
	if d.cache != nil {
		d.cache.Close()
	}
}

func (d *Directory) remember(userID, name string) {
	if d.cache != nil {
		d.cache.SetWithTTL(userID, name, 1, d.ttl)
	}
}
