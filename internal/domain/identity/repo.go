package identity

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists users and their planning sessions. Lookups return
// ErrUserNotFound / ErrSessionNotFound when no row matches.
type Repository interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	CreateSession(ctx context.Context, s *Session) error
	GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error)
	EndSession(ctx context.Context, id uuid.UUID, status string) error
}
