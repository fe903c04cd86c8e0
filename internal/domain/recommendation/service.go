package recommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/careplan/careplan/internal/domain/hospital"
)

// Service persists completed plans. Unlike the model and search calls these
// writes are fail-fatal: a missing plan record is a correctness problem, not
// a cosmetic one.
type Service struct {
	repo      Repository
	hospitals hospital.Repository
}

func NewService(repo Repository, hospitals hospital.Repository) *Service {
	return &Service{repo: repo, hospitals: hospitals}
}

// SavePlan stores the treatment plan row plus one recommendation row per
// ranked hospital, creating hospital records that are not in the table yet.
// rawOutput is the client response as assembled at save time. Callers that
// need atomicity with other writes run it inside db.RunInTx.
func (s *Service) SavePlan(ctx context.Context, profileID uuid.UUID, plan *Plan, rawOutput interface{}) (*TreatmentPlan, error) {
	raw, err := json.Marshal(rawOutput)
	if err != nil {
		return nil, fmt.Errorf("marshal plan output: %w", err)
	}
	tp := &TreatmentPlan{
		ProfileID:     profileID,
		TreatmentType: plan.TreatmentPlan.TreatmentType,
		Timeline:      plan.TreatmentPlan.Timeline,
		Disclaimer:    Disclaimer,
		Notes:         plan.TreatmentPlan.Notes,
		RawOutput:     raw,
	}
	if err := s.repo.CreatePlan(ctx, tp); err != nil {
		return nil, fmt.Errorf("store treatment plan: %w", err)
	}

	for _, h := range plan.RankedHospitals {
		if h.HospitalID == "" {
			continue
		}
		if _, err := s.hospitals.CreateIfAbsent(ctx, hospitalRecord(h)); err != nil {
			return nil, fmt.Errorf("store hospital %s: %w", h.HospitalID, err)
		}
		rank, err := strconv.Atoi(h.PriorityRank)
		if err != nil {
			rank = 1
		}
		rec := &Recommendation{
			PlanID:       tp.ID,
			HospitalID:   h.HospitalID,
			PriorityRank: rank,
			Reasoning:    fmt.Sprintf("Ranked #%s based on type match and rating.", h.PriorityRank),
		}
		if err := s.repo.CreateRecommendation(ctx, rec); err != nil {
			return nil, fmt.Errorf("store recommendation for %s: %w", h.HospitalID, err)
		}
	}
	return tp, nil
}

func (s *Service) GetPlan(ctx context.Context, id uuid.UUID) (*TreatmentPlan, error) {
	return s.repo.GetPlanByID(ctx, id)
}

func (s *Service) ListPlans(ctx context.Context, profileID uuid.UUID, limit, offset int) ([]*TreatmentPlan, int, error) {
	return s.repo.ListPlansByProfile(ctx, profileID, limit, offset)
}

func (s *Service) Recommendations(ctx context.Context, planID uuid.UUID) ([]*Recommendation, error) {
	return s.repo.ListByPlan(ctx, planID)
}

func hospitalRecord(h RankedHospital) *hospital.Hospital {
	return &hospital.Hospital{
		ID:               h.HospitalID,
		Name:             h.Name,
		Type:             h.Type,
		Location:         h.Location,
		City:             h.City,
		State:            h.State,
		Contact:          strPtr(h.Contact),
		Accreditation:    strPtr(h.Accreditation),
		Rating:           h.Rating,
		BudgetCategory:   h.BudgetCategory,
		AcceptsInsurance: h.AcceptsInsurance,
		Specializations:  h.Specializations,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
