package cache

import (
	"context"
	"net/http"
	"time"
)

// Entry is a cached backend response.
type Entry struct {
	Key        string      `json:"key"`
	StatusCode int         `json:"statusCode"`
	Header     http.Header `json:"header,omitempty"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"storedAt"`
	ExpiresAt  time.Time   `json:"expiresAt"`
}

// Expired reports whether the entry is stale at now.
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store is a pluggable key-value backend for cache entries. Implementations
// must be safe for concurrent use. Get may return expired entries; the Layer
// decides freshness.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool, error)
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) error
	// DeletePrefix removes every entry whose key starts with prefix and
	// returns how many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}
