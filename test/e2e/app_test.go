package e2e

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
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
	"github.com/careplan/careplan/internal/platform/events"
	"github.com/careplan/careplan/internal/platform/llm"
	"github.com/careplan/careplan/internal/platform/telemetry"
)

// newTestApp wires the complete HTTP surface against in-memory storage and
// returns a running test server. Each scenario gets a fresh instance.
func newTestApp() (*httptest.Server, error) {
	log := zerolog.Nop()

	store, err := guideline.Load("", "")
	if err != nil {
		return nil, fmt.Errorf("load embedded datasets: %w", err)
	}

	identitySvc := identity.NewService(newMemIdentityRepo())
	profileSvc := profile.NewService(newMemProfileRepo())
	labRepo := &memLabRepo{}
	hospitalRepo := newMemHospitalRepo()
	hospitalSvc := hospital.NewService(hospitalRepo)
	planSvc := recommendation.NewService(newMemPlanRepo(), hospitalRepo)

	if _, err := hospitalSvc.Seed(context.Background(), store.Hospitals()); err != nil {
		return nil, fmt.Errorf("seed hospitals: %w", err)
	}

	metrics := telemetry.NewTelemetryProvider(telemetry.TelemetryConfig{})
	tokens := auth.NewTokenStore(time.Hour)

	pl := planner.New(planner.Deps{
		Questions:  question.NewGenerator(llm.Disabled{}, metrics, log),
		Profiles:   profileSvc,
		LabReports: labRepo,
		Decisions:  decision.NewEngine(store, store.GuidelineIndex(), llm.Disabled{}, metrics, log),
		Builder:    recommendation.NewBuilder(log),
		Explainer:  recommendation.NewExplanationBuilder(llm.Disabled{}, metrics, log),
		Plans:      planSvc,
		Identity:   identitySvc,
		Tokens:     tokens,
		Publisher:  events.NoopPublisher{},
		Metrics:    metrics,
		RunTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return fn(ctx)
		},
	}, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api := e.Group("/api")
	identity.NewHandler(identitySvc, tokens, tokens, tokens, events.NoopPublisher{}, log).RegisterRoutes(api)
	hospital.NewHandler(hospitalSvc).RegisterRoutes(api)
	planner.NewHandler(pl, planner.NewRegistry(metrics), log).RegisterRoutes(api)

	return httptest.NewServer(e), nil
}

// In-memory repositories. They mirror the Postgres ones closely enough for
// scenario tests: ids are assigned on create, lookups miss with an error.

type memIdentityRepo struct {
	users    map[uuid.UUID]*identity.User
	sessions map[uuid.UUID]*identity.Session
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{
		users:    make(map[uuid.UUID]*identity.User),
		sessions: make(map[uuid.UUID]*identity.Session),
	}
}

func (m *memIdentityRepo) CreateUser(_ context.Context, u *identity.User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *memIdentityRepo) GetUserByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *memIdentityRepo) GetUserByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return u, nil
}

func (m *memIdentityRepo) CreateSession(_ context.Context, s *identity.Session) error {
	s.ID = uuid.New()
	s.StartTime = time.Now()
	m.sessions[s.ID] = s
	return nil
}

func (m *memIdentityRepo) GetSessionByID(_ context.Context, id uuid.UUID) (*identity.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, identity.ErrSessionNotFound
	}
	return s, nil
}

func (m *memIdentityRepo) EndSession(_ context.Context, id uuid.UUID, status string) error {
	s, ok := m.sessions[id]
	if !ok {
		return identity.ErrSessionNotFound
	}
	now := time.Now()
	s.EndTime = &now
	s.Status = status
	return nil
}

type memProfileRepo struct {
	profiles    map[uuid.UUID]*profile.Profile
	constraints map[uuid.UUID]*profile.Constraint
}

func newMemProfileRepo() *memProfileRepo {
	return &memProfileRepo{
		profiles:    make(map[uuid.UUID]*profile.Profile),
		constraints: make(map[uuid.UUID]*profile.Constraint),
	}
}

func (m *memProfileRepo) Create(_ context.Context, p *profile.Profile) error {
	p.ID = uuid.New()
	m.profiles[p.ID] = p
	return nil
}

func (m *memProfileRepo) GetByID(_ context.Context, id uuid.UUID) (*profile.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, fmt.Errorf("profile %s not found", id)
	}
	return p, nil
}

func (m *memProfileRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*profile.Profile, int, error) {
	var items []*profile.Profile
	for _, p := range m.profiles {
		if p.UserID == userID {
			items = append(items, p)
		}
	}
	return items, len(items), nil
}

func (m *memProfileRepo) CreateConstraint(_ context.Context, c *profile.Constraint) error {
	c.ID = uuid.New()
	m.constraints[c.ProfileID] = c
	return nil
}

func (m *memProfileRepo) GetConstraintByProfile(_ context.Context, profileID uuid.UUID) (*profile.Constraint, error) {
	c, ok := m.constraints[profileID]
	if !ok {
		return nil, fmt.Errorf("constraint for profile %s not found", profileID)
	}
	return c, nil
}

type memLabRepo struct {
	reports []*labreport.LabReport
}

func (m *memLabRepo) Create(_ context.Context, r *labreport.LabReport) error {
	r.ID = uuid.New()
	r.CreatedAt = time.Now()
	m.reports = append(m.reports, r)
	return nil
}

func (m *memLabRepo) GetByID(_ context.Context, id uuid.UUID) (*labreport.LabReport, error) {
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("lab report %s not found", id)
}

func (m *memLabRepo) ListByProfile(_ context.Context, profileID uuid.UUID) ([]*labreport.LabReport, error) {
	var items []*labreport.LabReport
	for _, r := range m.reports {
		if r.ProfileID == profileID {
			items = append(items, r)
		}
	}
	return items, nil
}

func (m *memLabRepo) Delete(_ context.Context, id uuid.UUID) error {
	for i, r := range m.reports {
		if r.ID == id {
			m.reports = append(m.reports[:i], m.reports[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("lab report %s not found", id)
}

type memHospitalRepo struct {
	store map[string]*hospital.Hospital
}

func newMemHospitalRepo() *memHospitalRepo {
	return &memHospitalRepo{store: make(map[string]*hospital.Hospital)}
}

func (m *memHospitalRepo) CreateIfAbsent(_ context.Context, h *hospital.Hospital) (bool, error) {
	if _, ok := m.store[h.ID]; ok {
		return false, nil
	}
	m.store[h.ID] = h
	return true, nil
}

func (m *memHospitalRepo) GetByID(_ context.Context, id string) (*hospital.Hospital, error) {
	h, ok := m.store[id]
	if !ok {
		return nil, fmt.Errorf("hospital %s not found", id)
	}
	return h, nil
}

func (m *memHospitalRepo) Update(_ context.Context, h *hospital.Hospital) error {
	m.store[h.ID] = h
	return nil
}

func (m *memHospitalRepo) Delete(_ context.Context, id string) error {
	delete(m.store, id)
	return nil
}

func (m *memHospitalRepo) sorted() []*hospital.Hospital {
	var items []*hospital.Hospital
	for _, h := range m.store {
		items = append(items, h)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (m *memHospitalRepo) List(_ context.Context, limit, offset int) ([]*hospital.Hospital, int, error) {
	items := m.sorted()
	total := len(items)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
}

func (m *memHospitalRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*hospital.Hospital, int, error) {
	var items []*hospital.Hospital
	for _, h := range m.sorted() {
		if v, ok := params["type"]; ok && h.Type != v {
			continue
		}
		if v, ok := params["budget_category"]; ok && h.BudgetCategory != v {
			continue
		}
		if v, ok := params["city"]; ok && h.City != v {
			continue
		}
		items = append(items, h)
	}
	total := len(items)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return items[offset:end], total, nil
}

type memPlanRepo struct {
	plans map[uuid.UUID]*recommendation.TreatmentPlan
	recs  []*recommendation.Recommendation
}

func newMemPlanRepo() *memPlanRepo {
	return &memPlanRepo{plans: make(map[uuid.UUID]*recommendation.TreatmentPlan)}
}

func (m *memPlanRepo) CreatePlan(_ context.Context, p *recommendation.TreatmentPlan) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.plans[p.ID] = p
	return nil
}

func (m *memPlanRepo) GetPlanByID(_ context.Context, id uuid.UUID) (*recommendation.TreatmentPlan, error) {
	p, ok := m.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %s not found", id)
	}
	return p, nil
}

func (m *memPlanRepo) ListPlansByProfile(_ context.Context, profileID uuid.UUID, limit, offset int) ([]*recommendation.TreatmentPlan, int, error) {
	var items []*recommendation.TreatmentPlan
	for _, p := range m.plans {
		if p.ProfileID == profileID {
			items = append(items, p)
		}
	}
	return items, len(items), nil
}

func (m *memPlanRepo) CreateRecommendation(_ context.Context, rec *recommendation.Recommendation) error {
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memPlanRepo) ListByPlan(_ context.Context, planID uuid.UUID) ([]*recommendation.Recommendation, error) {
	var items []*recommendation.Recommendation
	for _, r := range m.recs {
		if r.PlanID == planID {
			items = append(items, r)
		}
	}
	return items, nil
}
