package planner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/domain/decision"
	"github.com/careplan/careplan/internal/domain/identity"
	"github.com/careplan/careplan/internal/domain/labreport"
	"github.com/careplan/careplan/internal/domain/profile"
	"github.com/careplan/careplan/internal/domain/question"
	"github.com/careplan/careplan/internal/domain/recommendation"
	"github.com/careplan/careplan/internal/platform/auth"
	"github.com/careplan/careplan/internal/platform/events"
	"github.com/careplan/careplan/internal/platform/telemetry"
)

// Messages returned by the authentication and identity steps. Kept stable
// because clients display them verbatim.
const (
	msgAuthInvalid    = "Invalid or expired access token. Please log in again."
	msgIdentityFailed = "Identity verification failed."
)

// Deps are the collaborators one Planner drives. Questions, Profiles,
// Decisions, Builder, Explainer and Plans are required; the rest degrade
// gracefully when nil. RunTx, when set, wraps the persistence phase in one
// database transaction so the profile, lab report and plan rows commit or
// roll back together.
type Deps struct {
	Questions  *question.Generator
	Profiles   *profile.Service
	LabReports labreport.Repository
	Decisions  *decision.Engine
	Builder    *recommendation.Builder
	Explainer  *recommendation.ExplanationBuilder
	Plans      *recommendation.Service
	Identity   *identity.Service
	Tokens     auth.Validator
	Publisher  events.Publisher
	Metrics    *telemetry.TelemetryProvider
	RunTx      func(ctx context.Context, fn func(ctx context.Context) error) error
}

// Planner runs the treatment-planning pipeline against one State at a time.
// The Planner itself is stateless and safe for concurrent use; per-run
// serialisation is the registry's job.
type Planner struct {
	deps Deps
	log  zerolog.Logger
}

func New(deps Deps, log zerolog.Logger) *Planner {
	if deps.Publisher == nil {
		deps.Publisher = events.NoopPublisher{}
	}
	return &Planner{deps: deps, log: log}
}

// StartInput opens a run. UserID and SessionID may be blank when the caller
// will authenticate with a token on Respond.
type StartInput struct {
	SessionID string
	UserID    string
	Goal      string
}

// RespondInput carries one round of answers plus the caller's credentials.
// A non-empty AccessToken takes priority; Trusted marks the direct-mode
// bypass where the transport layer already vouches for the caller.
type RespondInput struct {
	Answers     map[string]string
	AccessToken string
	UserID      string
	SessionID   string
	Trusted     bool
}

// Start runs the intake phase: goal receipt, decomposition into the fixed
// subtask list, the execution-plan manifest and question generation. It
// never fails; question personalization falls back to the canonical set.
func (p *Planner) Start(ctx context.Context, in StartInput) *State {
	s := NewState()
	s.SessionID = in.SessionID
	s.UserID = in.UserID

	p.receiveGoal(s, in.Goal)
	p.decomposeGoal(s)
	p.createExecutionPlan(s)
	p.generateQuestions(ctx, s)
	return s
}

// Respond runs the execution phase: authentication, identity check, token
// issue, the data-collection loop and, once the answers validate (or the
// retry budget is spent), the full decision-to-persistence pipeline. The
// returned error is non-nil only for hard failures such as a persistence
// outage; auth failures and incomplete data come back as Outcomes.
func (p *Planner) Respond(ctx context.Context, s *State, in RespondInput) (*Outcome, error) {
	start := time.Now()

	if out := p.authenticate(ctx, s, in); out != nil {
		return out, nil
	}
	if !p.verifyIdentity(s) {
		p.step("verify_identity", "failed")
		return &Outcome{Status: StatusIdentityFailed, Error: msgIdentityFailed}, nil
	}
	p.step("verify_identity", "success")
	p.generateAccessToken(s)

	s.Status = StatusExecuting

	validation := p.collectData(s, in.Answers)
	if !validation.IsValid && s.RetryCount < MaxRetryLoops {
		p.step("collect_data", "retried")
		p.planOutcome(string(StatusNeedsMoreData), false)
		return &Outcome{
			Status:        StatusNeedsMoreData,
			MissingFields: validation.MissingFields,
			Warnings:      validation.Warnings,
			Errors:        validation.Errors,
			Message:       "Please provide the following missing information: " + strings.Join(validation.MissingFields, ", "),
		}, nil
	}
	if !validation.IsValid {
		s.Log("Max retries reached, proceeding with partial data", "")
	}
	p.step("collect_data", "success")

	userID, err := uuid.Parse(s.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id %q: %w", s.UserID, err)
	}
	prof, cons := profile.FromResponses(userID, s.Responses)

	s.Log("DecisionEngine triggered", "")
	d := p.deps.Decisions.Analyze(ctx, prof, cons)
	p.step("decision", "success")

	compliance := decision.ValidateCompliance(d)
	p.applyCompliance(s, d, compliance)

	s.Log("RecommendationEngine triggered", "")
	plan := p.deps.Builder.GeneratePlan(d)
	p.step("recommendation", "success")

	s.Log("ExplanationEngine triggered", "")
	output := p.deps.Explainer.Generate(ctx, prof, plan, d.LLMReasoning)
	p.step("explanation", "success")

	res := &Result{Output: *output, ComplianceStatus: compliance.Compliant}
	if s.ManualReview {
		res.ManualReviewRequired = true
		res.ComplianceFlags = compliance.Flags
	}

	tp, err := p.persist(ctx, s, userID, d, plan, res)
	if err != nil {
		p.step("persist", "failed")
		p.planOutcome("failed", s.ManualReview)
		return nil, err
	}
	p.step("persist", "success")

	s.Status = StatusCompleted

	res.FollowupReminders = scheduleFollowups(time.Now().UTC(), d.DiseaseType, plan.TreatmentPlan.Timeline)
	s.Log("Follow-up reminders scheduled", fmt.Sprintf("%d reminders", len(res.FollowupReminders)))

	s.Log("Execution complete, audit trail finalised", fmt.Sprintf(
		"session_id=%s | status=%s | compliance=%s", s.SessionID, s.Status, s.ComplianceStatus))
	res.AuditSummary = &AuditSummary{
		TotalStepsLogged: len(s.Audit),
		SessionID:        s.SessionID,
		Timestamp:        time.Now().UTC(),
	}

	p.endSession(ctx, s)
	p.publishPlanEvents(ctx, s, tp, d, res)

	p.planOutcome(string(StatusCompleted), s.ManualReview)
	if p.deps.Metrics != nil {
		p.deps.Metrics.ObservePipelineDuration(time.Since(start).Seconds())
	}

	p.log.Info().
		Str("session_id", s.SessionID).
		Str("disease_type", d.DiseaseType).
		Bool("flagged", s.ManualReview).
		Msg("planning run completed")
	return &Outcome{Status: StatusCompleted, Result: res}, nil
}

// authenticate resolves the caller's identity. Token validation wins over
// the trusted bypass; the bypass fills any missing identifiers with fresh
// ones so downstream steps always have a user and session to work with.
// Returns a failure Outcome, or nil on success.
func (p *Planner) authenticate(ctx context.Context, s *State, in RespondInput) *Outcome {
	s.Log("Authentication check started", "")

	if in.AccessToken != "" {
		claims := p.validateToken(ctx, in.AccessToken)
		if claims == nil {
			s.Authenticated = false
			s.Status = StatusAuthFailed
			s.Log("Token invalid or expired, retry required", "")
			p.step("authenticate", "failed")
			return &Outcome{Status: StatusAuthFailed, Error: msgAuthInvalid, Retry: true}
		}
		s.Authenticated = true
		s.UserID = claims.UserID
		s.SessionID = claims.SessionID
		s.AccessToken = in.AccessToken
		s.Status = StatusAuthenticated
		s.Log("Token validated", "user_id="+claims.UserID)
		p.step("authenticate", "success")
		return nil
	}

	if in.Trusted {
		if in.UserID != "" {
			s.UserID = in.UserID
		}
		if s.UserID == "" {
			s.UserID = uuid.New().String()
		}
		if in.SessionID != "" {
			s.SessionID = in.SessionID
		}
		if s.SessionID == "" {
			s.SessionID = uuid.New().String()
		}
		s.Authenticated = true
		s.AccessToken = ""
		s.Status = StatusAuthenticated
		s.Log("Authentication bypassed (direct mode)", "user_id="+s.UserID)
		p.step("authenticate", "success")
		return nil
	}

	s.Authenticated = false
	s.Status = StatusAuthFailed
	s.Log("Authentication failed, no token supplied", "")
	p.step("authenticate", "failed")
	return &Outcome{Status: StatusAuthFailed, Error: auth.MsgNoToken, Retry: true}
}

func (p *Planner) validateToken(ctx context.Context, token string) *auth.Claims {
	if p.deps.Tokens == nil {
		return nil
	}
	claims, err := p.deps.Tokens.Validate(ctx, token)
	if err != nil {
		return nil
	}
	return claims
}

// verifyIdentity confirms a user identifier is bound to the run. It can only
// fail when authentication was skipped or produced no user.
func (p *Planner) verifyIdentity(s *State) bool {
	if !s.Authenticated {
		s.Log("Identity verification skipped, not authenticated", "")
		return false
	}
	confirmed := s.UserID != ""
	if confirmed {
		s.Status = StatusIdentityVerified
	} else {
		s.Status = StatusIdentityFailed
	}
	s.Log("Identity verified", strconv.FormatBool(confirmed))
	return confirmed
}

// generateAccessToken issues the session-scoped step token. It replaces any
// login token on the run; the login token itself stays valid in its store.
func (p *Planner) generateAccessToken(s *State) {
	token := auth.StepToken(s.SessionID)
	s.AccessToken = token
	detail := token
	if len(detail) > 24 {
		detail = detail[:24] + "..."
	}
	s.Status = StatusTokenGenerated
	s.Log("Access token generated", detail)
	p.step("generate_token", "success")
}

// collectData merges the new answers into the accumulated set, injects
// defaults for fields with safe fallbacks and validates the result. One call
// consumes one retry.
func (p *Planner) collectData(s *State, answers map[string]string) profile.ValidationResult {
	for k, v := range answers {
		s.Responses[k] = v
	}
	s.RetryCount++

	if s.Responses["location_type"] == "" {
		s.Responses["location_type"] = "national"
	}
	if s.Responses["hospital_preference"] == "" {
		s.Responses["hospital_preference"] = "private"
	}
	if s.Responses["surgery_allowed"] == "" {
		s.Responses["surgery_allowed"] = "yes"
	}
	if s.Responses["disease_type"] == "" && s.Goal != "" {
		s.Responses["disease_type"] = s.Goal
	}
	if s.Responses["stage"] == "" {
		s.Responses["stage"] = "unknown"
	}

	s.Log("Data-collection loop started", fmt.Sprintf("retry #%d", s.RetryCount))

	validation := profile.ValidateResponses(s.Responses)
	s.MissingFields = validation.MissingFields

	if validation.IsValid {
		s.Status = StatusValidationPassed
		s.Log("Validation passed", fmt.Sprintf("retry #%d", s.RetryCount))
	} else {
		s.Status = StatusNeedsMoreData
		s.Log("Data incomplete, requesting missing fields", strings.Join(validation.MissingFields, ", "))
	}
	return validation
}

// applyCompliance records the verdict on the run and, when flagged, appends
// the manual-review notice to the decision notes so it surfaces in the plan.
func (p *Planner) applyCompliance(s *State, d *decision.Decision, c decision.ComplianceResult) {
	if c.Compliant {
		s.ComplianceStatus = ComplianceCompliant
		s.ManualReview = false
		s.Log("Clinical compliance passed", "")
		p.step("compliance", "success")
		return
	}

	s.ComplianceStatus = ComplianceFlagged
	s.ManualReview = true
	s.Log("Clinical compliance failed, flagged for manual review", strings.Join(c.Flags, "; "))

	notice := "This recommendation has been flagged for manual clinical review. " +
		"A healthcare provider should verify this plan before it is acted upon. " +
		"Flags: " + strings.Join(c.Flags, "; ")
	d.AppendNote(decision.NoteCompliance, notice)
	s.Log("Manual review flag raised", notice)
	p.step("compliance", "flagged")
}

// persist writes the profile, its constraint, an optional lab-report row and
// the treatment plan. The Result is marshalled into raw_output as it stands
// here, before reminders and the audit summary exist.
func (p *Planner) persist(ctx context.Context, s *State, userID uuid.UUID, d *decision.Decision, plan *recommendation.Plan, res *Result) (*recommendation.TreatmentPlan, error) {
	var tp *recommendation.TreatmentPlan
	write := func(ctx context.Context) error {
		s.Log("Storing medical profile in PostgreSQL", "")
		prof, _, err := p.deps.Profiles.StoreProfile(ctx, userID, s.Responses)
		if err != nil {
			return err
		}
		if p.deps.LabReports != nil && labreport.HasReports(prof.ExistingLabReports) {
			report := &labreport.LabReport{
				ProfileID:  prof.ID,
				ReportType: "patient_reported",
				ReportData: map[string]interface{}{
					"existing":  prof.ExistingLabReports,
					"completed": d.LabVerification.Completed,
					"pending":   d.LabVerification.Pending,
				},
			}
			if err := p.deps.LabReports.Create(ctx, report); err != nil {
				return fmt.Errorf("store lab report: %w", err)
			}
		}
		s.Log("Saving TreatmentPlan to PostgreSQL", "")
		tp, err = p.deps.Plans.SavePlan(ctx, prof.ID, plan, res)
		return err
	}

	var err error
	if p.deps.RunTx != nil {
		err = p.deps.RunTx(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return nil, err
	}
	return tp, nil
}

// endSession closes the run and, when the session id maps to a stored
// session, marks that row completed. A missing row is normal in direct mode
// where identifiers are generated on the fly.
func (p *Planner) endSession(ctx context.Context, s *State) {
	if p.deps.Identity != nil {
		if sid, err := uuid.Parse(s.SessionID); err == nil {
			err := p.deps.Identity.EndSession(ctx, sid, identity.SessionCompleted)
			if err != nil && !errors.Is(err, identity.ErrSessionNotFound) {
				p.log.Warn().Err(err).Str("session_id", s.SessionID).Msg("session close failed")
			}
		}
	}
	s.SessionEnded = true
	s.Status = StatusSessionEnded
	s.Log("Session ended gracefully", "session_id="+s.SessionID)
	p.step("end_session", "success")

	p.publish(ctx, events.EventSessionEnded, events.SessionEndedEvent{
		BaseEvent: events.NewBaseEvent(events.EventSessionEnded),
		Data: events.SessionEndedData{
			SessionID: s.SessionID,
			UserID:    s.UserID,
			Status:    identity.SessionCompleted,
			EndedAt:   time.Now().UTC(),
		},
	})
}

func (p *Planner) publishPlanEvents(ctx context.Context, s *State, tp *recommendation.TreatmentPlan, d *decision.Decision, res *Result) {
	now := time.Now().UTC()
	p.publish(ctx, events.EventPlanCompleted, events.PlanCompletedEvent{
		BaseEvent: events.NewBaseEvent(events.EventPlanCompleted),
		Data: events.PlanCompletedData{
			SessionID:     s.SessionID,
			PlanID:        tp.ID.String(),
			DiseaseType:   d.DiseaseType,
			TreatmentType: d.TreatmentType,
			HospitalCount: len(res.RecommendedHospitals),
			Flagged:       s.ManualReview,
			CompletedAt:   now,
		},
	})
	if s.ManualReview {
		p.publish(ctx, events.EventPlanFlagged, events.PlanFlaggedEvent{
			BaseEvent: events.NewBaseEvent(events.EventPlanFlagged),
			Data: events.PlanFlaggedData{
				SessionID: s.SessionID,
				PlanID:    tp.ID.String(),
				Flags:     res.ComplianceFlags,
				FlaggedAt: now,
			},
		})
	}
}

func (p *Planner) publish(ctx context.Context, routingKey string, event interface{}) {
	if err := p.deps.Publisher.Publish(ctx, routingKey, event); err != nil {
		p.log.Warn().Err(err).Str("routing_key", routingKey).Msg("event publish failed")
	}
}

func (p *Planner) step(name, status string) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.PlannerStepCounter(name, status)
	}
}

func (p *Planner) planOutcome(outcome string, flagged bool) {
	if p.deps.Metrics != nil {
		p.deps.Metrics.PlanOutcomeCounter(outcome, flagged)
	}
}

func (p *Planner) receiveGoal(s *State, goal string) {
	s.Goal = strings.TrimSpace(goal)
	s.Status = StatusGoalReceived
	s.Log("Goal received", s.Goal)
	p.step("receive_goal", "success")
}

func (p *Planner) decomposeGoal(s *State) {
	s.Subtasks = subtaskList()
	s.Status = StatusGoalDecomposed
	s.Log("Goal decomposed", fmt.Sprintf("%d subtasks", len(s.Subtasks)))
	p.step("decompose_goal", "success")
}

func (p *Planner) createExecutionPlan(s *State) {
	s.Manifest = buildManifest(s.Goal)
	s.Status = StatusPlanCreated
	s.Log("Execution plan created", "")
	p.step("create_plan", "success")
}

func (p *Planner) generateQuestions(ctx context.Context, s *State) {
	s.Questions = p.deps.Questions.Generate(ctx, s.Goal)
	s.Status = StatusQuestionsReady
	s.Log("Questions generated", fmt.Sprintf("%d questions", len(s.Questions)))
	p.step("generate_questions", "success")
}
