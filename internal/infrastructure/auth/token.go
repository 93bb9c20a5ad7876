// Package auth supplies bearer tokens for the admin API. Sources are injected
// into the HTTP client; nothing here reads ambient global state.
package auth

import (
	"context"
	"errors"
	"time"
)

// ErrNoToken is returned when a source cannot produce a token.
var ErrNoToken = errors.New("no token available")

// TokenSource yields the bearer token for outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Session is an authenticated admin session.
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// Valid reports whether the session can still be used at now, keeping a
// refresh margin before expiry.
func (s Session) Valid(now time.Time) bool {
	if s.Token == "" {
		return false
	}
	if s.ExpiresAt.IsZero() {
		return true
	}
	return now.Add(refreshBuffer).Before(s.ExpiresAt)
}

// TTL returns how long the session stays valid after now.
func (s Session) TTL(now time.Time) time.Duration {
	if s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Sub(now) - refreshBuffer
}

// SessionSource produces sessions with known expiry.
type SessionSource interface {
	Session(ctx context.Context) (Session, error)
}

// refreshBuffer is the time before token expiry at which a new login is made
const refreshBuffer = 30 * time.Second

// StaticToken is a fixed bearer token.
type StaticToken string

// Token implements TokenSource
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// None sends requests unauthenticated.
type None struct{}

// Token implements TokenSource
func (None) Token(context.Context) (string, error) {
	return "", nil
}
