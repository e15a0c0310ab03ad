package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RequestHook may rewrite the outgoing body. It is only invoked for POST, PUT and PATCH.
type RequestHook func(ctx context.Context, method string, body any) (any, error)

// WrappedBody is the body shape produced by WrapBody.
type WrappedBody struct {
	User   string `json:"user"`
	Client string `json:"client"`
	Data   any    `json:"data"`
}

// WrapBody returns a hook that wraps every mutating body as {user, client, data}.
func WrapBody(user, client string) RequestHook {
	return func(_ context.Context, _ string, body any) (any, error) {
		return WrappedBody{User: user, Client: client, Data: body}, nil
	}
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// TokenSigner issues short-lived HS256 bearer tokens for the backend.
type TokenSigner struct {
	secret  []byte
	subject string
	ttl     time.Duration
	now     func() time.Time
}

// NewTokenSigner creates a signer. A non-positive ttl defaults to 5 minutes.
func NewTokenSigner(secret, subject string, ttl time.Duration) *TokenSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TokenSigner{secret: []byte(secret), subject: subject, ttl: ttl, now: time.Now}
}

// Sign returns a signed token with sub, iat and exp claims.
func (s *TokenSigner) Sign() (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   s.subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("transport:hooks - failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken parses a token produced by a TokenSigner with the same secret
// and returns its subject.
func VerifyToken(secret, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("transport:hooks - invalid token: %w", err)
	}
	return claims.Subject, nil
}
