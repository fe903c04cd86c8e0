package labreport

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for lab reports.
type Repository interface {
	Create(ctx context.Context, r *LabReport) error
	GetByID(ctx context.Context, id uuid.UUID) (*LabReport, error)
	ListByProfile(ctx context.Context, profileID uuid.UUID) ([]*LabReport, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
