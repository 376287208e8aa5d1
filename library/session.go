package library

import (
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Session is the authenticated state of one user. It is created by
// LibraryManager.Login, handed to every component that talks to the API and
// destroyed by Close on logout. It implements api.TokenSource.
type Session struct {
	Username    string
	AccessToken string
	TokenType   string
	IssuedAt    time.Time
	ExpiresAt   time.Time

	mu     sync.RWMutex
	closed bool
}

// NewSession builds a session around token. When the token is a JWT its
// iat/exp claims are read (without verifying the signature, which is the
// backend's job) so the client can drop stale sessions early.
func NewSession(username, token, tokenType string, now time.Time) *Session {
	s := &Session{
		Username:    username,
		AccessToken: token,
		TokenType:   tokenType,
		IssuedAt:    now,
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		if claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
		if claims.IssuedAt != nil {
			s.IssuedAt = claims.IssuedAt.Time
		}
		if s.Username == "" {
			s.Username = claims.Subject
		}
	}
	if s.TokenType == "" {
		s.TokenType = "bearer"
	}
	return s
}

// Token returns the bearer token, or "" once the session is closed.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ""
	}
	return s.AccessToken
}

// Expired reports whether the token carried an exp claim that has passed.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Valid is true for an open, unexpired session with a token.
func (s *Session) Valid(now time.Time) bool {
	return s != nil && strings.TrimSpace(s.Token()) != "" && !s.Expired(now)
}

// Close ends the session. Subsequent requests go out unauthenticated.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.AccessToken = ""
}
