package dispatcher

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Envelope is the wrapper every backend response carries. Only Data is handed
// back to callers; Message, Code and Sent are diagnostics.
type Envelope[T any] struct {
	Message string    `json:"message"`
	Code    string    `json:"code"`
	Sent    time.Time `json:"sent"`
	Data    T         `json:"data"`
}

// NewEnvelope wraps data with the given code and message, stamped now.
func NewEnvelope[T any](code, message string, data T) Envelope[T] {
	return Envelope[T]{Message: message, Code: code, Sent: time.Now().UTC(), Data: data}
}

// ErrNotEnvelope is returned when a response body lacks the envelope shape.
var ErrNotEnvelope = errors.New("response is not an envelope")

// errMissingData marks an envelope object that carries no data member.
var errMissingData = errors.New("missing data")

type rawEnvelope struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
	Sent    string          `json:"sent"`
	Data    json.RawMessage `json:"data"`
}

// Backends emit sent with and without a zone.
var sentLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// DecodeEnvelope parses body as an Envelope. A body that is not a JSON object
// with a data member fails with ErrNotEnvelope. An unparsable sent stamp is
// left zero.
func DecodeEnvelope[T any](body []byte) (*Envelope[T], error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, ErrNotEnvelope
	}
	var raw rawEnvelope
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEnvelope, err)
	}
	if raw.Data == nil {
		return nil, fmt.Errorf("%w: %w", ErrNotEnvelope, errMissingData)
	}

	env := &Envelope[T]{Message: raw.Message, Code: decodeCode(raw.Code), Sent: parseSent(raw.Sent)}
	if err := json.Unmarshal(raw.Data, &env.Data); err != nil {
		return nil, fmt.Errorf("decode envelope data: %w", err)
	}
	return env, nil
}

// decodeCode accepts code as a string or a bare number.
func decodeCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func parseSent(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range sentLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
