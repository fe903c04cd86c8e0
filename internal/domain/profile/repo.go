package profile

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists medical profiles and their constraints.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Profile, int, error)
	CreateConstraint(ctx context.Context, c *Constraint) error
	GetConstraintByProfile(ctx context.Context, profileID uuid.UUID) (*Constraint, error)
}
