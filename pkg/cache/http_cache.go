package cache

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// directives holds the Cache-Control fields the layer honours.
type directives struct {
	NoStore bool
	NoCache bool
	MaxAge  *time.Duration
}

func parseCacheControl(header string) directives {
	var d directives
	for _, part := range strings.Split(header, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, "=")
		key = strings.TrimSpace(key)
		if !hasValue {
			switch key {
			case "no-store":
				d.NoStore = true
			case "no-cache":
				d.NoCache = true
			}
			continue
		}
		if key == "max-age" {
			if seconds, err := strconv.Atoi(strings.Trim(strings.TrimSpace(value), `"`)); err == nil {
				maxAge := time.Duration(seconds) * time.Second
				d.MaxAge = &maxAge
			}
		}
	}
	return d
}

func parseHTTPDate(header string) (time.Time, bool) {
	if header == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{http.TimeFormat, time.RFC1123, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, header); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ttlFromHeaders decides how long a response may be cached.
//
// store is false when the server forbids caching. headerTTL is true when the
// returned ttl came from the response rather than fallback. max-age wins over
// Expires and is reduced by Age.
func ttlFromHeaders(h http.Header, now time.Time, fallback time.Duration) (ttl time.Duration, store bool, headerTTL bool) {
	cc := h.Get("Cache-Control")
	if cc != "" {
		d := parseCacheControl(cc)
		if d.NoStore || d.NoCache {
			return 0, false, true
		}
		if d.MaxAge != nil {
			ttl = *d.MaxAge
			if age, err := strconv.Atoi(strings.TrimSpace(h.Get("Age"))); err == nil && age > 0 {
				ttl -= time.Duration(age) * time.Second
			}
			if ttl <= 0 {
				return 0, false, true
			}
			return ttl, true, true
		}
	}
	if expires, ok := parseHTTPDate(h.Get("Expires")); ok {
		base := now
		if date, ok := parseHTTPDate(h.Get("Date")); ok {
			base = date
		}
		ttl = expires.Sub(base)
		if ttl <= 0 {
			return 0, false, true
		}
		return ttl, true, true
	}
	return fallback, true, false
}
