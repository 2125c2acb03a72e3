// package services defines the upstream HTTP clients behind the dashboard cards
//
// News, quotes (cached), Spotify (per-session token)
package services

import (
	"context"
	"time"
)

// Cache stores raw upstream response bodies for a bounded window.
//
// Get returns [shared.ErrCacheMiss] when key is absent or expired.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, body []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
