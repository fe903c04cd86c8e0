// Package planner orchestrates one treatment-planning run as a fixed-order
// state machine: goal intake, authentication, data collection, decision,
// compliance, recommendation and session close-out. The step order is not
// reorderable by callers; every step appends to the run's audit trail.
package planner

import (
	"time"

	"github.com/careplan/careplan/internal/domain/question"
)

// MaxRetryLoops caps data-collection attempts across resubmissions. Each
// Respond call consumes one attempt; once the budget is spent the pipeline
// proceeds with partial data instead of blocking.
const MaxRetryLoops = 3

// Status is the planner run state. Runs move strictly forward except for
// needs_more_data, which loops back to data collection on the next call.
type Status string

const (
	StatusIdle             Status = "idle"
	StatusGoalReceived     Status = "goal_received"
	StatusGoalDecomposed   Status = "goal_decomposed"
	StatusPlanCreated      Status = "plan_created"
	StatusQuestionsReady   Status = "questions_ready"
	StatusAuthenticated    Status = "authenticated"
	StatusAuthFailed       Status = "auth_failed"
	StatusIdentityVerified Status = "identity_verified"
	StatusIdentityFailed   Status = "identity_failed"
	StatusTokenGenerated   Status = "token_generated"
	StatusExecuting        Status = "executing"
	StatusNeedsMoreData    Status = "needs_more_data"
	StatusValidationPassed Status = "validation_passed"
	StatusCompleted        Status = "completed"
	StatusSessionEnded     Status = "session_ended"
)

// Compliance status values carried on the run.
const (
	CompliancePending   = "pending"
	ComplianceCompliant = "compliant"
	ComplianceFlagged   = "flagged"
)

// AuditEntry is one line of the per-run audit trail. Status records the run
// state at the moment the entry was written.
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Step      string    `json:"step"`
	Status    Status    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
}

// State is the single mutable record threading all steps of one planning
// run. It is owned by exactly one goroutine at a time; the registry's Run
// wrapper serialises access across HTTP calls.
type State struct {
	SessionID     string
	UserID        string
	Goal          string
	Status        Status
	Authenticated bool
	AccessToken   string

	Questions []question.Question
	Responses map[string]string

	RetryCount    int
	MissingFields []string

	Subtasks []string
	Manifest *Manifest

	ComplianceStatus string
	ManualReview     bool

	SessionEnded bool
	Audit        []AuditEntry
}

// NewState returns an idle run with an empty answer set.
func NewState() *State {
	return &State{
		Status:           StatusIdle,
		Responses:        make(map[string]string),
		ComplianceStatus: CompliancePending,
		Audit:            make([]AuditEntry, 0, 16),
	}
}

// Log appends an audit entry stamped with the current run status.
func (s *State) Log(step, detail string) {
	s.Audit = append(s.Audit, AuditEntry{
		Timestamp: time.Now().UTC(),
		Step:      step,
		Status:    s.Status,
		Detail:    detail,
	})
}
