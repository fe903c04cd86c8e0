package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Service owns account and session lifecycle rules: email normalization,
// duplicate detection, optional password hashing.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NormalizeEmail lowercases and trims an address. All lookups and writes go
// through the normalized form so "A@x.com" and "a@x.com " are one account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers a new account. A non-empty password is stored as a
// bcrypt hash; an empty one leaves the account passwordless.
func (s *Service) CreateUser(ctx context.Context, u *User, password string) error {
	u.Name = strings.TrimSpace(u.Name)
	u.Email = NormalizeEmail(u.Email)
	u.Location = strings.TrimSpace(u.Location)
	if _, err := s.repo.GetUserByEmail(ctx, u.Email); err == nil {
		return ErrDuplicateEmail
	} else if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		h := string(hash)
		u.PasswordHash = &h
	}
	return s.repo.CreateUser(ctx, u)
}

// GetOrCreateUser returns the account registered under u.Email, creating it
// from u when none exists. Session bootstrap uses this so returning patients
// are not duplicated.
func (s *Service) GetOrCreateUser(ctx context.Context, u *User) (*User, error) {
	email := NormalizeEmail(u.Email)
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	u.Name = strings.TrimSpace(u.Name)
	u.Email = email
	u.Location = strings.TrimSpace(u.Location)
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate resolves the account for a login attempt. Accounts without a
// stored hash authenticate by email alone; accounts with one require the
// matching password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	u, err := s.repo.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == nil {
		return u, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(*u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// StartSession opens a new active session for the user.
func (s *Service) StartSession(ctx context.Context, userID uuid.UUID, goal string) (*Session, error) {
	sess := &Session{UserID: userID, Goal: goal, Status: SessionActive}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// EndSession stamps end_time and the terminal status on the session row.
func (s *Service) EndSession(ctx context.Context, id uuid.UUID, status string) error {
	return s.repo.EndSession(ctx, id, status)
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return s.repo.GetSessionByID(ctx, id)
}
