// Package identity manages user accounts and planning sessions. Every
// planning run belongs to a session row, and issued tokens reference both
// the user and the session they were minted for.
package identity

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrDuplicateEmail  = errors.New("email is already registered")
	ErrBadCredentials  = errors.New("invalid credentials")
)

// Session lifecycle values stored in user_sessions.status.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
	SessionError     = "error"
)

// User is an account holder. PasswordHash is optional: accounts created
// without a password authenticate by email alone.
type User struct {
	ID           uuid.UUID `db:"user_id" json:"user_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Location     string    `db:"location" json:"location"`
	Budget       *float64  `db:"budget" json:"budget,omitempty"`
	PasswordHash *string   `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Session is one planning conversation for a user. Auth endpoints open it
// with goal "pending"; the stated goal lives on the planner run, not here.
type Session struct {
	ID        uuid.UUID  `db:"session_id" json:"session_id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	StartTime time.Time  `db:"start_time" json:"start_time"`
	EndTime   *time.Time `db:"end_time" json:"end_time,omitempty"`
	Goal      string     `db:"goal" json:"goal"`
	Status    string     `db:"status" json:"status"`
}
