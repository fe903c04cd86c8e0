package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service maps and persists medical profiles.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// StoreProfile maps raw answers and persists the profile together with its
// constraint. Callers that need atomicity across both rows run it inside
// db.RunInTx.
func (s *Service) StoreProfile(ctx context.Context, userID uuid.UUID, responses map[string]string) (*Profile, *Constraint, error) {
	p, c := FromResponses(userID, responses)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, nil, fmt.Errorf("store profile: %w", err)
	}
	c.ProfileID = p.ID
	if err := s.repo.CreateConstraint(ctx, c); err != nil {
		return nil, nil, fmt.Errorf("store constraint: %w", err)
	}
	return p, c, nil
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetConstraint(ctx context.Context, profileID uuid.UUID) (*Constraint, error) {
	return s.repo.GetConstraintByProfile(ctx, profileID)
}

func (s *Service) ListProfiles(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Profile, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}
