package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/klarity/internal/quote"
	"github.com/danmuck/klarity/internal/store"
	"github.com/google/uuid"
)

const DefaultSessionTTL = 12 * time.Hour

// SessionStore is the part of store.Store sessions need.
type SessionStore interface {
	PutSession(ctx context.Context, s store.Session) error
	GetSession(ctx context.Context, token string) (store.Session, error)
	DeleteSession(ctx context.Context, token string) error
}

// Sessions issues and resolves dashboard bearer tokens.
type Sessions struct {
	Store    SessionStore
	TTL      time.Duration
	Now      func() time.Time
	NewToken func() string
}

func (s Sessions) Issue(ctx context.Context, user quote.User) (store.Session, error) {
	now := s.now()
	sess := store.Session{
		Token:     s.token(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}
	if err := s.Store.PutSession(ctx, sess); err != nil {
		return store.Session{}, fmt.Errorf("auth: issue session: %w", err)
	}
	return sess, nil
}

// Resolve returns the live session for token. Expired sessions are deleted.
func (s Sessions) Resolve(ctx context.Context, token string) (store.Session, error) {
	if token == "" {
		return store.Session{}, ErrUnauthorized
	}
	sess, err := s.Store.GetSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return store.Session{}, ErrUnauthorized
	}
	if err != nil {
		return store.Session{}, err
	}
	if sess.Expired(s.now()) {
		_ = s.Store.DeleteSession(ctx, token)
		return store.Session{}, ErrSessionExpired
	}
	return sess, nil
}

func (s Sessions) Revoke(ctx context.Context, token string) error {
	return s.Store.DeleteSession(ctx, token)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s Sessions) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s Sessions) token() string {
	if s.NewToken != nil {
		return s.NewToken()
	}
	return uuid.NewString()
}

func (s Sessions) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultSessionTTL
}
