package planner

import (
	"time"

	"github.com/careplan/careplan/internal/domain/recommendation"
)

// AuditSummary is the closing audit entry attached to a finished result.
type AuditSummary struct {
	TotalStepsLogged int       `json:"total_steps_logged"`
	SessionID        string    `json:"session_id"`
	Timestamp        time.Time `json:"timestamp"`
}

// Result is the final structured output of a completed run: the explanation
// builder's client output plus the compliance verdict, follow-up reminders
// and audit summary. The plan row's raw_output column stores the Result as
// it looked at save time, which is before reminders and the audit summary
// are attached; both fields are omitted while nil so the persisted snapshot
// stays free of them.
type Result struct {
	recommendation.Output
	ComplianceStatus     bool          `json:"compliance_status"`
	ManualReviewRequired bool          `json:"manual_review_required,omitempty"`
	ComplianceFlags      []string      `json:"compliance_flags,omitempty"`
	FollowupReminders    []Reminder    `json:"followup_reminders,omitempty"`
	AuditSummary         *AuditSummary `json:"audit_summary,omitempty"`
}

// Outcome is what one Respond call produced: an auth failure, a request for
// more data, or the finished result. Exactly one of Error, MissingFields or
// Result is meaningful depending on Status.
type Outcome struct {
	Status        Status
	Error         string
	Retry         bool
	MissingFields []string
	Warnings      []string
	Errors        []string
	Message       string
	Result        *Result
}
