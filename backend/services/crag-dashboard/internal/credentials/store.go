// Package credentials holds the process-wide bearer credential used for every request
// to the sensor backend.
//
// Lifecycle: Set on sign-in, Clear on sign-out or when the backend answers 401. Every
// outgoing request only reads it.
package credentials

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptyToken is returned by Set for blank tokens.
var ErrEmptyToken = errors.New("credentials: empty token")

// ErrExpiredToken is returned by Set when the token is a JWT whose exp is in the past.
var ErrExpiredToken = errors.New("credentials: token already expired")

// Store is the scoped credential store. Token returns "" when nothing is stored.
type Store interface {
	Token(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
	// ClearIf removes the credential only while it still equals token, so a rejection
	// of an old credential cannot drop one stored since.
	ClearIf(ctx context.Context, token string) error
}

// ExpiresAt reports the exp claim of a JWT credential without verifying its signature;
// the signer is the backend, so only the backend can verify it. Opaque (non-JWT)
// tokens and JWTs without exp report ok=false.
func ExpiresAt(token string) (time.Time, bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

func normalize(token string, now time.Time) (string, time.Time, error) {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[len("bearer "):])
	}
	if token == "" {
		return "", time.Time{}, ErrEmptyToken
	}
	exp, ok := ExpiresAt(token)
	if !ok {
		return token, time.Time{}, nil
	}
	if !exp.After(now) {
		return "", time.Time{}, ErrExpiredToken
	}
	return token, exp, nil
}

// MemoryStore keeps the credential in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	token   string
	expires time.Time
	now     func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Token returns the stored credential, or "" once it has expired.
func (s *MemoryStore) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", nil
	}
	if !s.expires.IsZero() && !s.expires.After(s.now()) {
		return "", nil
	}
	return s.token, nil
}

// Set replaces the stored credential.
func (s *MemoryStore) Set(_ context.Context, token string) error {
	tok, exp, err := normalize(token, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
	s.expires = exp
	return nil
}

// Clear removes the stored credential.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expires = time.Time{}
	return nil
}

// ClearIf removes the stored credential if it still equals token.
func (s *MemoryStore) ClearIf(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || s.token != token {
		return nil
	}
	s.token = ""
	s.expires = time.Time{}
	return nil
}
