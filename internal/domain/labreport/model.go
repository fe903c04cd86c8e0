package labreport

import (
	"time"

	"github.com/google/uuid"
)

// LabReport maps to the lab_reports table. ReportData holds the free-form
// payload exactly as supplied (text answer, parsed values, attachments
// metadata) as jsonb.
type LabReport struct {
	ID         uuid.UUID              `db:"report_id" json:"report_id"`
	ProfileID  uuid.UUID              `db:"profile_id" json:"profile_id"`
	ReportType string                 `db:"report_type" json:"report_type"`
	ReportDate *time.Time             `db:"report_date" json:"report_date,omitempty"`
	ReportData map[string]interface{} `db:"report_data" json:"report_data,omitempty"`
	CreatedAt  time.Time              `db:"created_at" json:"created_at"`
}
