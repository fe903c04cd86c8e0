package hospital

import (
	"context"
	"fmt"
)

var validBudgetCategories = map[string]bool{
	"Government": true,
	"Standard":   true,
	"Premium":    true,
}

// Service exposes hospital reads and the seed path used by the CLI.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) validate(h *Hospital) error {
	if h.ID == "" {
		return fmt.Errorf("hospital_id is required")
	}
	if h.Name == "" {
		return fmt.Errorf("name is required")
	}
	if h.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !validBudgetCategories[h.BudgetCategory] {
		return fmt.Errorf("invalid budget_category: %s", h.BudgetCategory)
	}
	return nil
}

// Seed inserts every hospital that is not already present and reports how
// many rows were inserted. Existing rows are left untouched.
func (s *Service) Seed(ctx context.Context, hospitals []*Hospital) (int, error) {
	inserted := 0
	for _, h := range hospitals {
		if err := s.validate(h); err != nil {
			return inserted, fmt.Errorf("hospital %q: %w", h.ID, err)
		}
		created, err := s.repo.CreateIfAbsent(ctx, h)
		if err != nil {
			return inserted, err
		}
		if created {
			inserted++
		}
	}
	return inserted, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, params map[string]string, limit, offset int) ([]*Hospital, int, error) {
	if len(params) == 0 {
		return s.repo.List(ctx, limit, offset)
	}
	return s.repo.Search(ctx, params, limit, offset)
}
