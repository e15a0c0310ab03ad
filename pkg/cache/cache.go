// Package cache stores successful GET responses in a pluggable key-value
// store so repeated reads within a time-to-live skip the network.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kenchiwar/fe-invetory/pkg/transport"
)

const logPrefix = "cache:cache"

// Defaults used when Options leaves fields empty.
const (
	DefaultPrefix = "my-cache:"
	DefaultTTL    = 120 * time.Minute
)

// Options configures a Layer.
type Options struct {
	Prefix string
	TTL    time.Duration
	// IgnoreHeaders disables Cache-Control/Expires interpretation so every
	// stored entry uses TTL.
	IgnoreHeaders bool
}

// FetchFunc performs the real request on a miss.
type FetchFunc func(ctx context.Context) (*transport.Response, error)

// Layer is a read-through cache for GET requests. Concurrent misses for the
// same key are not coalesced; each one reaches fetch.
type Layer struct {
	store         Store
	prefix        string
	ttl           time.Duration
	ignoreHeaders bool
	now           func() time.Time
}

// New creates a Layer over store.
func New(store Store, opts Options) *Layer {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	return &Layer{
		store:         store,
		prefix:        opts.Prefix,
		ttl:           opts.TTL,
		ignoreHeaders: opts.IgnoreHeaders,
		now:           time.Now,
	}
}

// Prefix returns the key namespace of this layer.
func (l *Layer) Prefix() string { return l.prefix }

// TTL returns the default time-to-live.
func (l *Layer) TTL() time.Duration { return l.ttl }

// Key derives the cache key for a request. Parameter order never affects the key.
func (l *Layer) Key(method, path string, params url.Values) string {
	p, q := splitPath(path)
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	key := l.prefix + strings.ToUpper(method) + " " + p
	if enc := q.Encode(); enc != "" {
		key += "?" + enc
	}
	return key
}

// Do returns a fresh cached response for a GET or calls fetch and stores the
// result when it is cacheable. Other methods always call fetch. hit reports
// whether fetch was skipped.
func (l *Layer) Do(ctx context.Context, method, path string, params url.Values, fetch FetchFunc) (resp *transport.Response, hit bool, err error) {
	if strings.ToUpper(method) != http.MethodGet {
		resp, err = fetch(ctx)
		return resp, false, err
	}

	key := l.Key(method, path, params)
	entry, ok, err := l.store.Get(ctx, key)
	if err != nil {
		slog.Warn(fmt.Sprintf("%s - Read of %s failed, treating as miss: %v", logPrefix, key, err))
	}
	now := l.now()
	if ok && entry != nil {
		if !entry.Expired(now) {
			slog.Debug(fmt.Sprintf("%s - Hit %s", logPrefix, key))
			return &transport.Response{
				StatusCode: entry.StatusCode,
				Header:     entry.Header.Clone(),
				Body:       entry.Body,
			}, true, nil
		}
		if err := l.store.Delete(ctx, key); err != nil {
			slog.Warn(fmt.Sprintf("%s - Delete of expired %s failed: %v", logPrefix, key, err))
		}
	}

	resp, err = fetch(ctx)
	if err != nil {
		return resp, false, err
	}
	l.store2xx(ctx, key, resp, now)
	return resp, false, nil
}

func (l *Layer) store2xx(ctx context.Context, key string, resp *transport.Response, now time.Time) {
	if resp == nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		return
	}
	ttl, store := l.ttl, true
	if !l.ignoreHeaders {
		ttl, store, _ = ttlFromHeaders(resp.Header, now, l.ttl)
	}
	if !store {
		slog.Debug(fmt.Sprintf("%s - Server forbids caching %s", logPrefix, key))
		return
	}
	entry := &Entry{
		Key:        key,
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       resp.Body,
		StoredAt:   now,
		ExpiresAt:  now.Add(ttl),
	}
	if err := l.store.Set(ctx, entry); err != nil {
		slog.Warn(fmt.Sprintf("%s - Write of %s failed: %v", logPrefix, key, err))
	}
}

// Invalidate drops cached GETs of path itself, of path with any query, and of
// every sub-path below it.
func (l *Layer) Invalidate(ctx context.Context, path string) (int, error) {
	p, _ := splitPath(path)
	p = strings.TrimRight(p, "/")
	base := l.prefix + http.MethodGet + " " + p

	if err := l.store.Delete(ctx, base); err != nil {
		return 0, fmt.Errorf("%s - invalidate %s: %w", logPrefix, path, err)
	}
	total := 0
	for _, prefix := range []string{base + "?", base + "/"} {
		n, err := l.store.DeletePrefix(ctx, prefix)
		if err != nil {
			return total, fmt.Errorf("%s - invalidate %s: %w", logPrefix, path, err)
		}
		total += n
	}
	slog.Debug(fmt.Sprintf("%s - Invalidated entries under %s (%d by prefix)", logPrefix, path, total))
	return total, nil
}

// Clear drops every entry in this layer's namespace.
func (l *Layer) Clear(ctx context.Context) (int, error) {
	n, err := l.store.DeletePrefix(ctx, l.prefix)
	if err != nil {
		return 0, fmt.Errorf("%s - clear: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Cleared %d entries", logPrefix, n))
	return n, nil
}

func splitPath(path string) (string, url.Values) {
	p, rawQuery, _ := strings.Cut(path, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		q = url.Values{}
	}
	return p, q
}
