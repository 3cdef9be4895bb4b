package domain

import "time"

// CacheEntry is one persisted resource snapshot. Payload holds the JSON
// encoding of the cached value.
type CacheEntry struct {
	Key         string
	Payload     []byte
	RefreshedAt time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the entry is past its expiry at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}
