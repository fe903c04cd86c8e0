package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Sentinel errors
// ---------------------------------------------------------------------------

var (
	// ErrTokenNotFound indicates the presented token does not exist in the store.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExpired indicates the token has passed its expiry time.
	ErrTokenExpired = errors.New("token expired")

	// ErrNoToken indicates no token was presented at all.
	ErrNoToken = errors.New("no token provided")
)

// tokenPrefix is prepended to every issued access token so tokens are easy to
// identify in logs and client configuration.
const tokenPrefix = "hca-"

// DefaultTokenTTL is how long an access token stays valid unless the store is
// configured otherwise.
const DefaultTokenTTL = 8 * time.Hour

// Claims is the identity payload bound to an access token.
type Claims struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Validator checks an access token and returns the claims bound to it. Both
// the in-memory TokenStore and the JWT issuer satisfy this so handlers do not
// care which auth mode the server runs in.
type Validator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Issuer mints an access token for a user/session pair.
type Issuer interface {
	Issue(ctx context.Context, userID, sessionID, email string) (string, *Claims, error)
}

// Revoker invalidates an issued token. The in-memory store removes the
// entry; the JWT issuer satisfies it with a no-op since signed tokens can
// only expire.
type Revoker interface {
	Revoke(ctx context.Context, token string) bool
}

// TokenStore is a process-wide in-memory registry of opaque access tokens.
// Expired entries are pruned lazily on access so the store does not need a
// background sweeper.
type TokenStore struct {
	mu     sync.RWMutex
	ttl    time.Duration
	tokens map[string]*Claims
}

// NewTokenStore creates an empty store. A non-positive ttl falls back to
// DefaultTokenTTL.
func NewTokenStore(ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenStore{
		ttl:    ttl,
		tokens: make(map[string]*Claims),
	}
}

// Issue mints a new opaque token bound to the given identity.
func (s *TokenStore) Issue(_ context.Context, userID, sessionID, email string) (string, *Claims, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID:    userID,
		SessionID: sessionID,
		Email:     strings.ToLower(strings.TrimSpace(email)),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	token := tokenPrefix + strings.ReplaceAll(uuid.New().String(), "-", "")

	s.mu.Lock()
	s.tokens[token] = claims
	s.mu.Unlock()

	return token, copyClaims(claims), nil
}

// Validate looks the token up and checks expiry. Expired tokens are removed
// as a side effect.
func (s *TokenStore) Validate(_ context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	claims, ok := s.tokens[token]
	if !ok {
		return nil, ErrTokenNotFound
	}
	if time.Now().UTC().After(claims.ExpiresAt) {
		delete(s.tokens, token)
		return nil, ErrTokenExpired
	}
	return copyClaims(claims), nil
}

// Revoke removes a token. Returns true when the token existed.
func (s *TokenStore) Revoke(_ context.Context, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.tokens[token]
	if ok {
		delete(s.tokens, token)
	}
	return ok
}

// Count returns the number of live (unexpired) tokens. Expired entries found
// along the way are pruned.
func (s *TokenStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for t, c := range s.tokens {
		if now.After(c.ExpiresAt) {
			delete(s.tokens, t)
		}
	}
	return len(s.tokens)
}

// StepToken mints a short scoped token used when a caller asserts trust for a
// single planning run instead of presenting a stored access token. It is not
// registered in the store; it only marks the run as trusted in audit output.
func StepToken(sessionID string) string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("hca-token-%s-%s", sessionID, raw[:12])
}

func copyClaims(c *Claims) *Claims {
	cp := *c
	return &cp
}
