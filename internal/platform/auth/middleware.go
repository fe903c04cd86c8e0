package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	SessionIDKey contextKey = "session_id"
	EmailKey     contextKey = "email"
)

// User-facing messages kept stable because clients display them verbatim.
const (
	MsgNoToken      = "No access token provided. Please log in first."
	MsgInvalidToken = "Invalid or expired token."
)

// BearerToken extracts the bearer token from an Authorization header value.
// Returns "" when the header is absent or not a bearer scheme.
func BearerToken(c echo.Context) string {
	header := c.Request().Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware returns an Echo middleware that requires a valid access token.
// The validated claims are placed on both the echo context and the request
// context so services reached through either path see the same identity.
func Middleware(validator Validator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgNoToken)
			}

			claims, err := validator.Validate(c.Request().Context(), token)
			if err != nil {
				if errors.Is(err, ErrNoToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, MsgNoToken)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, MsgInvalidToken)
			}

			setIdentity(c, claims)
			return next(c)
		}
	}
}

// OptionalMiddleware validates a token when one is presented but lets
// anonymous requests through. Planner endpoints use it because a run may
// alternatively assert trust in the request body.
func OptionalMiddleware(validator Validator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c)
			if token == "" {
				return next(c)
			}
			claims, err := validator.Validate(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, MsgInvalidToken)
			}
			setIdentity(c, claims)
			return next(c)
		}
	}
}

// DevAuthMiddleware is a permissive middleware for development that gives
// unauthenticated requests a default identity.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if BearerToken(c) == "" {
				setIdentity(c, &Claims{
					UserID: "dev-user",
					Email:  "dev@localhost",
				})
			}
			return next(c)
		}
	}
}

func setIdentity(c echo.Context, claims *Claims) {
	c.Set("user_id", claims.UserID)
	c.Set("session_id", claims.SessionID)
	c.Set("email", claims.Email)

	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, SessionIDKey, claims.SessionID)
	ctx = context.WithValue(ctx, EmailKey, claims.Email)
	c.SetRequest(c.Request().WithContext(ctx))
}

// UserIDFromContext returns the authenticated user ID, if any.
func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

// SessionIDFromContext returns the authenticated session ID, if any.
func SessionIDFromContext(ctx context.Context) string {
	sid, _ := ctx.Value(SessionIDKey).(string)
	return sid
}

// EmailFromContext returns the authenticated email, if any.
func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}
