package recommendation

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for treatment plans and their
// recommendation rows.
type Repository interface {
	CreatePlan(ctx context.Context, p *TreatmentPlan) error
	GetPlanByID(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error)
	ListPlansByProfile(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*TreatmentPlan, int, error)
	CreateRecommendation(ctx context.Context, rec *Recommendation) error
	ListByPlan(ctx context.Context, planID uuid.UUID) ([]*Recommendation, error)
}
