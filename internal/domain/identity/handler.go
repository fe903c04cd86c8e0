package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/platform/auth"
	"github.com/careplan/careplan/internal/platform/events"
)

// Handler exposes signup, login, logout, me and session bootstrap.
type Handler struct {
	svc       *Service
	issuer    auth.Issuer
	validator auth.Validator
	revoker   auth.Revoker
	publisher events.Publisher
	log       zerolog.Logger
}

func NewHandler(svc *Service, issuer auth.Issuer, validator auth.Validator, revoker auth.Revoker, publisher events.Publisher, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, issuer: issuer, validator: validator, revoker: revoker, publisher: publisher, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/auth/signup", h.Signup)
	api.POST("/auth/login", h.Login)
	api.POST("/auth/logout", h.Logout)
	api.GET("/auth/me", h.Me)
	api.POST("/session/start", h.StartSession)
}

type signupRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Location string   `json:"location"`
	Password string   `json:"password"`
	Budget   *float64 `json:"budget"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type logoutRequest struct {
	AccessToken string `json:"access_token"`
}

type startSessionRequest struct {
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Location string   `json:"location"`
	Budget   *float64 `json:"budget"`
}

// AuthResponse is the payload returned by signup and login.
type AuthResponse struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	AccessToken string `json:"access_token"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Message     string `json:"message"`
}

func (h *Handler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	name := strings.TrimSpace(req.Name)
	email := NormalizeEmail(req.Email)
	if name == "" || email == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Name and email are required.")
	}
	ctx := c.Request().Context()
	u := &User{Name: name, Email: email, Location: req.Location, Budget: req.Budget}
	if err := h.svc.CreateUser(ctx, u, req.Password); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return echo.NewHTTPError(http.StatusConflict,
				fmt.Sprintf("Email '%s' is already registered. Please use Login instead.", email))
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	sess, token, err := h.openAuthedSession(ctx, u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.log.Info().Str("user_id", u.ID.String()).Str("email", email).Msg("user signed up")
	return c.JSON(http.StatusCreated, AuthResponse{
		UserID:      u.ID.String(),
		SessionID:   sess.ID.String(),
		AccessToken: token,
		Email:       email,
		Name:        name,
		Message:     fmt.Sprintf("Welcome, %s! Your account has been created.", name),
	})
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	email := NormalizeEmail(req.Email)
	if email == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "Email is required.")
	}
	ctx := c.Request().Context()
	u, err := h.svc.Authenticate(ctx, email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			return echo.NewHTTPError(http.StatusNotFound,
				fmt.Sprintf("No account found for '%s'. Please sign up first.", email))
		case errors.Is(err, ErrBadCredentials):
			return echo.NewHTTPError(http.StatusUnauthorized, "Incorrect password. Please try again.")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	sess, token, err := h.openAuthedSession(ctx, u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.log.Info().Str("user_id", u.ID.String()).Str("email", email).Msg("user logged in")
	return c.JSON(http.StatusOK, AuthResponse{
		UserID:      u.ID.String(),
		SessionID:   sess.ID.String(),
		AccessToken: token,
		Email:       email,
		Name:        u.Name,
		Message:     fmt.Sprintf("Welcome back, %s!", u.Name),
	})
}

// Logout revokes the token and closes its session. The token may arrive in
// the body or as a Bearer header.
func (h *Handler) Logout(c echo.Context) error {
	var req logoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	token := strings.TrimSpace(req.AccessToken)
	if token == "" {
		token = auth.BearerToken(c)
	}
	ctx := c.Request().Context()
	claims, err := h.validator.Validate(ctx, token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.MsgInvalidToken)
	}
	if sid, parseErr := uuid.Parse(claims.SessionID); parseErr == nil {
		if err := h.svc.EndSession(ctx, sid, SessionCompleted); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		h.publish(ctx, events.EventSessionEnded, events.SessionEndedEvent{
			BaseEvent: events.NewBaseEvent(events.EventSessionEnded),
			Data: events.SessionEndedData{
				SessionID: claims.SessionID,
				UserID:    claims.UserID,
				Status:    SessionCompleted,
				EndedAt:   time.Now().UTC(),
			},
		})
	}
	h.revoker.Revoke(ctx, token)
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully.", "status": "ok"})
}

func (h *Handler) Me(c echo.Context) error {
	claims, err := h.validator.Validate(c.Request().Context(), auth.BearerToken(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, auth.MsgInvalidToken)
	}
	return c.JSON(http.StatusOK, claims)
}

// StartSession creates (or reuses) the user for the given email and opens a
// fresh planning session. Unlike signup it never rejects a known email.
func (h *Handler) StartSession(c echo.Context) error {
	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()
	u, err := h.svc.GetOrCreateUser(ctx, &User{
		Name:     req.Name,
		Email:    req.Email,
		Location: req.Location,
		Budget:   req.Budget,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	sess, err := h.openSession(ctx, u)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{
		"session_id": sess.ID.String(),
		"user_id":    u.ID.String(),
		"message":    "Session started successfully.",
	})
}

// openSession starts a "pending" session and announces it. Tokens are issued
// separately: only signup and login hand one out.
func (h *Handler) openSession(ctx context.Context, u *User) (*Session, error) {
	sess, err := h.svc.StartSession(ctx, u.ID, "pending")
	if err != nil {
		return nil, err
	}
	h.publish(ctx, events.EventSessionStarted, events.SessionStartedEvent{
		BaseEvent: events.NewBaseEvent(events.EventSessionStarted),
		Data: events.SessionStartedData{
			SessionID: sess.ID.String(),
			UserID:    u.ID.String(),
			Goal:      sess.Goal,
			StartedAt: time.Now().UTC(),
		},
	})
	return sess, nil
}

// openAuthedSession opens a session and issues its access token.
func (h *Handler) openAuthedSession(ctx context.Context, u *User) (*Session, string, error) {
	sess, err := h.openSession(ctx, u)
	if err != nil {
		return nil, "", err
	}
	token, _, err := h.issuer.Issue(ctx, u.ID.String(), sess.ID.String(), u.Email)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return sess, token, nil
}

func (h *Handler) publish(ctx context.Context, routingKey string, event interface{}) {
	if err := h.publisher.Publish(ctx, routingKey, event); err != nil {
		h.log.Warn().Err(err).Str("routing_key", routingKey).Msg("event publish failed")
	}
}
