package planner

import (
	"time"

	"github.com/google/uuid"
)

// Reminder is one scheduled follow-up attached to a completed plan. DueDate
// is a calendar date, not a timestamp.
type Reminder struct {
	ReminderID string `json:"reminder_id"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	DueDate    string `json:"due_date"`
}

// scheduleFollowups builds the three fixed reminders at +7, +14 and +30 days
// from now.
func scheduleFollowups(now time.Time, diseaseType, timeline string) []Reminder {
	if timeline == "" {
		timeline = "as prescribed"
	}
	return []Reminder{
		{
			ReminderID: reminderID(),
			Type:       "Initial Consultation",
			Message:    "Schedule your first specialist appointment for " + diseaseType + ".",
			DueDate:    now.AddDate(0, 0, 7).Format("2006-01-02"),
		},
		{
			ReminderID: reminderID(),
			Type:       "Diagnostic Reports",
			Message:    "Collect all required diagnostic reports before your appointment.",
			DueDate:    now.AddDate(0, 0, 14).Format("2006-01-02"),
		},
		{
			ReminderID: reminderID(),
			Type:       "Treatment Follow-up",
			Message:    "Follow-up with your specialist regarding treatment progress. Expected timeline: " + timeline + ".",
			DueDate:    now.AddDate(0, 0, 30).Format("2006-01-02"),
		},
	}
}

func reminderID() string {
	return uuid.New().String()[:8]
}
