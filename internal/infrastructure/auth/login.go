package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/erp/console/internal/domain/shared"
	"github.com/erp/console/internal/infrastructure/client"
)

// Credentials identify an admin account.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// LoginSource obtains a token by logging in and keeps it in memory until it
// is about to expire.
type LoginSource struct {
	client     *client.Client
	path       string
	creds      Credentials
	defaultTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	session Session
}

// LoginOption configures a LoginSource.
type LoginOption func(*LoginSource)

// WithClock overrides the clock used for expiry checks.
func WithClock(now func() time.Time) LoginOption {
	return func(s *LoginSource) { s.now = now }
}

// WithLoginLogger sets the logger.
func WithLoginLogger(l *zap.Logger) LoginOption {
	return func(s *LoginSource) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewLoginSource creates a source that logs in at path with creds. c must not
// itself be configured with this source. defaultTTL bounds tokens that carry
// no exp claim.
func NewLoginSource(c *client.Client, path string, creds Credentials, defaultTTL time.Duration, opts ...LoginOption) *LoginSource {
	s := &LoginSource{
		client:     c,
		path:       path,
		creds:      creds,
		defaultTTL: defaultTTL,
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token implements TokenSource
func (s *LoginSource) Token(ctx context.Context) (string, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Session returns the cached session, logging in again when it is missing or
// about to expire.
func (s *LoginSource) Session(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session.Valid(s.now()) {
		return s.session, nil
	}

	sess, err := s.login(ctx)
	if err != nil {
		return Session{}, err
	}
	s.session = sess
	return sess, nil
}

// Invalidate forgets the cached session.
func (s *LoginSource) Invalidate(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
	return nil
}

func (s *LoginSource) login(ctx context.Context) (Session, error) {
	if s.creds.Email == "" || s.creds.Password == "" {
		return Session{}, shared.NewValidationError("credentials", "email and password are required")
	}

	resp, err := s.client.Post(ctx, s.path, client.JSON(s.creds))
	if err != nil {
		return Session{}, fmt.Errorf("login failed: %w", err)
	}

	var body loginResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return Session{}, fmt.Errorf("parsing login response: %w", err)
	}
	if body.Token == "" {
		return Session{}, fmt.Errorf("login failed: %w", ErrNoToken)
	}

	sess := Session{
		Token:     body.Token,
		Username:  body.Username,
		ExpiresAt: s.expiry(body.Token),
	}

	s.logger.Info("logged in",
		zap.String("username", sess.Username),
		zap.Time("expires_at", sess.ExpiresAt),
	)
	return sess, nil
}

// expiry reads the exp claim without verifying the signature; the console
// never holds the signing key, it only needs to know when to log in again.
func (s *LoginSource) expiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return s.now().Add(s.defaultTTL)
}
