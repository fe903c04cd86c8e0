package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtClaims is the signed form of Claims used in jwt auth mode.
type jwtClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
}

// JWTIssuer issues and validates HS256-signed access tokens. It satisfies
// both Issuer and Validator so it can replace the in-memory TokenStore when
// AUTH_MODE=jwt.
type JWTIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTIssuer creates an issuer with the given signing secret. A
// non-positive ttl falls back to DefaultTokenTTL.
func NewJWTIssuer(secret string, ttl time.Duration) *JWTIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue mints a signed token bound to the given identity.
func (j *JWTIssuer) Issue(_ context.Context, userID, sessionID, email string) (string, *Claims, error) {
	now := time.Now().UTC()
	expires := now.Add(j.ttl)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		SessionID: sessionID,
		Email:     email,
	})

	signed, err := token.SignedString(j.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	return signed, &Claims{
		UserID:    userID,
		SessionID: sessionID,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}

// Validate parses and verifies a signed token.
func (j *JWTIssuer) Validate(_ context.Context, tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrNoToken
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenNotFound
	}

	var issued, expires time.Time
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	return &Claims{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Email:     claims.Email,
		IssuedAt:  issued,
		ExpiresAt: expires,
	}, nil
}

// Revoke is a no-op for signed tokens; they expire on their own. It exists so
// the identity service can treat both auth modes uniformly.
func (j *JWTIssuer) Revoke(_ context.Context, _ string) bool {
	return false
}
