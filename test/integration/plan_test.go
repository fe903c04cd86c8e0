package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/domain/decision"
	"github.com/careplan/careplan/internal/domain/guideline"
	"github.com/careplan/careplan/internal/domain/hospital"
	"github.com/careplan/careplan/internal/domain/profile"
	"github.com/careplan/careplan/internal/domain/recommendation"
	"github.com/careplan/careplan/internal/platform/llm"
)

func TestSavePlanPersistsGraph(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)

	store, err := guideline.Load("", "")
	if err != nil {
		t.Fatalf("load embedded datasets: %v", err)
	}

	hospitalRepo := hospital.NewRepoPG(globalDB.Pool)
	profiles := profile.NewService(profile.NewRepoPG(globalDB.Pool))
	plans := recommendation.NewService(recommendation.NewRepoPG(globalDB.Pool), hospitalRepo)

	p, c, err := profiles.StoreProfile(ctx, uuid.New(), fullResponses())
	if err != nil {
		t.Fatalf("StoreProfile: %v", err)
	}

	engine := decision.NewEngine(store, store.GuidelineIndex(), llm.Disabled{}, nil, zerolog.Nop())
	d := engine.Analyze(ctx, p, c)
	plan := recommendation.NewBuilder(zerolog.Nop()).GeneratePlan(d)
	if len(plan.RankedHospitals) == 0 {
		t.Fatal("expected ranked hospitals for the breast cancer fixture")
	}

	output := recommendation.NewExplanationBuilder(llm.Disabled{}, nil, zerolog.Nop()).Generate(ctx, p, plan, d.LLMReasoning)
	saved, err := plans.SavePlan(ctx, p.ID, plan, output)
	if err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	if saved.ID == uuid.Nil {
		t.Fatal("expected a generated plan id")
	}

	t.Run("PlanRow", func(t *testing.T) {
		got, err := plans.GetPlan(ctx, saved.ID)
		if err != nil {
			t.Fatalf("GetPlan: %v", err)
		}
		if got.ProfileID != p.ID {
			t.Errorf("plan not linked to profile: %s != %s", got.ProfileID, p.ID)
		}
		if got.TreatmentType != "Lumpectomy, Radiation Therapy, Hormone Therapy" {
			t.Errorf("treatment_type = %q", got.TreatmentType)
		}
		if got.Disclaimer != recommendation.Disclaimer {
			t.Errorf("disclaimer = %q", got.Disclaimer)
		}

		var stored recommendation.Output
		if err := json.Unmarshal(got.RawOutput, &stored); err != nil {
			t.Fatalf("raw_output is not a stored Output: %v", err)
		}
		if stored.TreatmentPlan.DiseaseType != "Breast Cancer" {
			t.Errorf("raw_output disease = %q", stored.TreatmentPlan.DiseaseType)
		}
		if len(stored.RecommendedHospitals) != len(output.RecommendedHospitals) {
			t.Errorf("raw_output hospitals = %d, want %d",
				len(stored.RecommendedHospitals), len(output.RecommendedHospitals))
		}
	})

	t.Run("RecommendationRows", func(t *testing.T) {
		recs, err := plans.Recommendations(ctx, saved.ID)
		if err != nil {
			t.Fatalf("Recommendations: %v", err)
		}
		if len(recs) != len(plan.RankedHospitals) {
			t.Fatalf("recommendations = %d, want %d", len(recs), len(plan.RankedHospitals))
		}
		for i, rec := range recs {
			if rec.PriorityRank != i+1 {
				t.Errorf("rank[%d] = %d, want %d", i, rec.PriorityRank, i+1)
			}
			if _, err := hospitalRepo.GetByID(ctx, rec.HospitalID); err != nil {
				t.Errorf("recommended hospital %s missing from hospitals table: %v", rec.HospitalID, err)
			}
		}
	})

	t.Run("ListPlansByProfile", func(t *testing.T) {
		items, total, err := plans.ListPlans(ctx, p.ID, 10, 0)
		if err != nil {
			t.Fatalf("ListPlans: %v", err)
		}
		if total != 1 || len(items) != 1 {
			t.Fatalf("expected exactly one plan, got total=%d len=%d", total, len(items))
		}
	})

	t.Run("PlanCascadeDelete", func(t *testing.T) {
		if _, err := globalDB.Pool.Exec(ctx, `DELETE FROM treatment_plans WHERE plan_id = $1`, saved.ID); err != nil {
			t.Fatalf("delete plan row: %v", err)
		}
		recs, err := plans.Recommendations(ctx, saved.ID)
		if err != nil {
			t.Fatalf("Recommendations after delete: %v", err)
		}
		if len(recs) != 0 {
			t.Errorf("recommendations must cascade with their plan, found %d", len(recs))
		}
	})
}
