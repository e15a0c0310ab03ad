package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind classifies a transport failure.
type Kind int

const (
	// KindServer means a response arrived with a non-2xx status.
	KindServer Kind = iota + 1
	// KindNoResponse means the request was sent but no response arrived.
	KindNoResponse
	// KindRequest means the request could not be built or sent.
	KindRequest
)

func (k Kind) String() string {
	switch k {
	case KindServer:
		return "server"
	case KindNoResponse:
		return "no_response"
	case KindRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Error is returned by Client.Send for every failed request.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	Body       []byte
	Cause      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		return fmt.Sprintf("%s %s: server responded with status %d", e.Method, e.Path, e.StatusCode)
	case KindNoResponse:
		return fmt.Sprintf("%s %s: no response received: %v", e.Method, e.Path, e.Cause)
	default:
		return fmt.Sprintf("%s %s: request setup failed: %v", e.Method, e.Path, e.Cause)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Timeout reports whether the failure was caused by the client timeout or a context deadline.
func (e *Error) Timeout() bool {
	if e.Kind != KindNoResponse || e.Cause == nil {
		return false
	}
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Cause, &netErr) && netErr.Timeout()
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a server error.
func StatusCode(err error) int {
	var te *Error
	if errors.As(err, &te) && te.Kind == KindServer {
		return te.StatusCode
	}
	return 0
}

// IsKind reports whether err is a transport Error of kind k.
func IsKind(err error, k Kind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == k
}
