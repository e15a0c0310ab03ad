package db

import "time"

// CacheEntry represents a row in the http_cache_entries table.
type CacheEntry struct {
	Key        string    `json:"cache_key"`
	StatusCode int       `json:"status_code"`
	Header     []byte    `json:"header"`
	Body       []byte    `json:"body"`
	StoredAt   time.Time `json:"stored_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
