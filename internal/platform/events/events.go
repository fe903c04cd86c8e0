// Package events publishes planning lifecycle events to a RabbitMQ topic
// exchange so downstream services (notifications, analytics) can react
// without coupling to the planner. Publishing is best-effort: a broker
// outage never fails a planning run.
package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	ExchangeName = "careplan.events"
	ExchangeType = "topic"

	serviceName = "careplan-server"
)

// Event routing keys as constants
const (
	EventSessionStarted = "session.started"
	EventSessionEnded   = "session.ended"
	EventPlanCompleted  = "plan.completed"
	EventPlanFlagged    = "plan.flagged"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.New().String(),
		Timestamp:   time.Now().UTC(),
		ServiceName: serviceName,
	}
}

// SessionStartedEvent is emitted when a new planning session opens.
type SessionStartedEvent struct {
	BaseEvent
	Data SessionStartedData `json:"data"`
}

type SessionStartedData struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Goal      string    `json:"goal,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// SessionEndedEvent is emitted when a planning session is closed.
type SessionEndedEvent struct {
	BaseEvent
	Data SessionEndedData `json:"data"`
}

type SessionEndedData struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	EndedAt   time.Time `json:"ended_at"`
}

// PlanCompletedEvent is emitted when a planning run produces a final plan.
type PlanCompletedEvent struct {
	BaseEvent
	Data PlanCompletedData `json:"data"`
}

type PlanCompletedData struct {
	SessionID     string    `json:"session_id"`
	PlanID        string    `json:"plan_id"`
	DiseaseType   string    `json:"disease_type"`
	TreatmentType string    `json:"treatment_type"`
	HospitalCount int       `json:"hospital_count"`
	Flagged       bool      `json:"flagged"`
	CompletedAt   time.Time `json:"completed_at"`
}

// PlanFlaggedEvent is emitted when compliance validation requests manual
// clinical review of a plan.
type PlanFlaggedEvent struct {
	BaseEvent
	Data PlanFlaggedData `json:"data"`
}

type PlanFlaggedData struct {
	SessionID string    `json:"session_id"`
	PlanID    string    `json:"plan_id"`
	Flags     []string  `json:"flags"`
	FlaggedAt time.Time `json:"flagged_at"`
}
