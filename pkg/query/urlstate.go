package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
)

const urlStateLogPrefix = "query:urlstate"

// EncodeState serializes v into a compact URL-safe token so a whole filter
// state can travel in a single query parameter.
func EncodeState(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%s - failed to encode state: %w", urlStateLogPrefix, err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeState reverses EncodeState into v.
func DecodeState(token string, v any) error {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("%s - invalid state token: %w", urlStateLogPrefix, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s - failed to decode state: %w", urlStateLogPrefix, err)
	}
	return nil
}

// SetState stores v under key in values. A nil v removes the key.
func SetState(values url.Values, key string, v any) error {
	if isNil(v) {
		values.Del(key)
		return nil
	}
	token, err := EncodeState(v)
	if err != nil {
		return err
	}
	values.Set(key, token)
	return nil
}

// State reads the value stored under key. ok is false when the key is absent
// or holds a token that cannot be decoded into T.
func State[T any](values url.Values, key string) (T, bool) {
	var out T
	token := values.Get(key)
	if token == "" {
		return out, false
	}
	if err := DecodeState(token, &out); err != nil {
		return out, false
	}
	return out, true
}
