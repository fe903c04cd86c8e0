package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/domain/decision"
	"github.com/careplan/careplan/internal/domain/guideline"
	"github.com/careplan/careplan/internal/domain/hospital"
	"github.com/careplan/careplan/internal/domain/identity"
	"github.com/careplan/careplan/internal/domain/labreport"
	"github.com/careplan/careplan/internal/domain/planner"
	"github.com/careplan/careplan/internal/domain/profile"
	"github.com/careplan/careplan/internal/domain/question"
	"github.com/careplan/careplan/internal/domain/recommendation"
	"github.com/careplan/careplan/internal/platform/auth"
	"github.com/careplan/careplan/internal/platform/db"
	"github.com/careplan/careplan/internal/platform/events"
	"github.com/careplan/careplan/internal/platform/llm"
	"github.com/careplan/careplan/internal/platform/telemetry"
)

// TestPlannerPipelineAgainstPostgres drives the whole planning flow with real
// repositories: seeded hospitals, a registered user with an open session, one
// Start call and one Respond call with complete answers.
func TestPlannerPipelineAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)

	store, err := guideline.Load("", "")
	if err != nil {
		t.Fatalf("load embedded datasets: %v", err)
	}

	pool := globalDB.Pool
	hospitalRepo := hospital.NewRepoPG(pool)
	if _, err := hospital.NewService(hospitalRepo).Seed(ctx, store.Hospitals()); err != nil {
		t.Fatalf("seed hospitals: %v", err)
	}

	identitySvc := identity.NewService(identity.NewRepoPG(pool))
	profileSvc := profile.NewService(profile.NewRepoPG(pool))
	labRepo := labreport.NewRepoPG(pool)
	planSvc := recommendation.NewService(recommendation.NewRepoPG(pool), hospitalRepo)
	metrics := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{})
	log := zerolog.Nop()

	pl := planner.New(planner.Deps{
		Questions:  question.NewGenerator(llm.Disabled{}, nil, log),
		Profiles:   profileSvc,
		LabReports: labRepo,
		Decisions:  decision.NewEngine(store, store.GuidelineIndex(), llm.Disabled{}, metrics, log),
		Builder:    recommendation.NewBuilder(log),
		Explainer:  recommendation.NewExplanationBuilder(llm.Disabled{}, metrics, log),
		Plans:      planSvc,
		Identity:   identitySvc,
		Tokens:     auth.NewTokenStore(time.Hour),
		Publisher:  events.NoopPublisher{},
		Metrics:    metrics,
		RunTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
	}, log)

	user := &identity.User{Name: "Pipeline Patient", Email: "pipeline@example.com"}
	if err := identitySvc.CreateUser(ctx, user, ""); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	sess, err := identitySvc.StartSession(ctx, user.ID, "treat breast cancer")
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	state := pl.Start(ctx, planner.StartInput{
		SessionID: sess.ID.String(),
		UserID:    user.ID.String(),
		Goal:      "treat breast cancer",
	})
	if len(state.Questions) == 0 {
		t.Fatal("expected intake questions after Start")
	}

	out, err := pl.Respond(ctx, state, planner.RespondInput{
		Answers: fullResponses(),
		UserID:  user.ID.String(),
		Trusted: true,
	})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if out.Status != planner.StatusCompleted {
		t.Fatalf("status = %q, want %q (error: %s)", out.Status, planner.StatusCompleted, out.Error)
	}
	if out.Result == nil {
		t.Fatal("completed outcome must carry a result")
	}
	if out.Result.TreatmentPlan.TreatmentType != "Lumpectomy, Radiation Therapy, Hormone Therapy" {
		t.Errorf("treatment_type = %q", out.Result.TreatmentPlan.TreatmentType)
	}
	if len(out.Result.RecommendedHospitals) == 0 {
		t.Error("expected recommended hospitals")
	}

	// Every table the pipeline touches has exactly the rows one run creates.
	counts := map[string]int{}
	for _, table := range []string{"medical_profiles", "constraints", "lab_reports", "treatment_plans"} {
		var n int
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		counts[table] = n
	}
	if counts["medical_profiles"] != 1 || counts["constraints"] != 1 || counts["treatment_plans"] != 1 {
		t.Errorf("row counts = %v, want one profile, constraint and plan", counts)
	}
	if counts["lab_reports"] != 1 {
		t.Errorf("patient-reported lab work should persist one row, got %d", counts["lab_reports"])
	}

	var recCount int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM recommendations").Scan(&recCount); err != nil {
		t.Fatalf("count recommendations: %v", err)
	}
	if recCount != len(out.Result.RecommendedHospitals) {
		t.Errorf("recommendations = %d, want %d", recCount, len(out.Result.RecommendedHospitals))
	}

	ended, err := identitySvc.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if ended.Status != identity.SessionCompleted {
		t.Errorf("session status = %q, want %q", ended.Status, identity.SessionCompleted)
	}
	if ended.EndTime == nil {
		t.Error("completed run must stamp the session end_time")
	}
}

// TestPlannerPersistenceRollsBack proves the profile, lab report and plan
// writes share one transaction: poisoning the plan insert leaves no partial
// rows behind.
func TestPlannerPersistenceRollsBack(t *testing.T) {
	ctx := context.Background()
	resetTables(t, ctx)

	store, err := guideline.Load("", "")
	if err != nil {
		t.Fatalf("load embedded datasets: %v", err)
	}

	pool := globalDB.Pool
	hospitalRepo := hospital.NewRepoPG(pool)
	metrics := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{})
	log := zerolog.Nop()

	// Shrink the treatment_type column so the plan insert fails after the
	// profile and lab report inserts succeeded inside the transaction.
	if _, err := pool.Exec(ctx, `ALTER TABLE treatment_plans ALTER COLUMN treatment_type TYPE varchar(3) USING left(treatment_type, 3)`); err != nil {
		t.Fatalf("shrink column: %v", err)
	}
	defer func() {
		if _, err := pool.Exec(ctx, `ALTER TABLE treatment_plans ALTER COLUMN treatment_type TYPE text`); err != nil {
			t.Fatalf("restore column: %v", err)
		}
	}()

	pl := planner.New(planner.Deps{
		Questions:  question.NewGenerator(llm.Disabled{}, nil, log),
		Profiles:   profile.NewService(profile.NewRepoPG(pool)),
		LabReports: labreport.NewRepoPG(pool),
		Decisions:  decision.NewEngine(store, store.GuidelineIndex(), llm.Disabled{}, metrics, log),
		Builder:    recommendation.NewBuilder(log),
		Explainer:  recommendation.NewExplanationBuilder(llm.Disabled{}, metrics, log),
		Plans:      recommendation.NewService(recommendation.NewRepoPG(pool), hospitalRepo),
		Identity:   identity.NewService(identity.NewRepoPG(pool)),
		Tokens:     auth.NewTokenStore(time.Hour),
		Publisher:  events.NoopPublisher{},
		Metrics:    metrics,
		RunTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.RunInTx(ctx, pool, fn)
		},
	}, log)

	state := pl.Start(ctx, planner.StartInput{SessionID: "rollback-run", Goal: "treat breast cancer"})
	out, err := pl.Respond(ctx, state, planner.RespondInput{
		Answers: fullResponses(),
		UserID:  "11111111-2222-3333-4444-555555555555",
		Trusted: true,
	})
	if err == nil {
		t.Fatalf("expected the persistence step to fail, got outcome %+v", out)
	}

	for _, table := range []string{"medical_profiles", "constraints", "lab_reports", "treatment_plans", "recommendations"} {
		var n int
		if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			t.Fatalf("count %s: %v", table, err)
		}
		if n != 0 {
			t.Errorf("%s has %d rows after rollback, want 0", table, n)
		}
	}
}
