package recommendation

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/careplan/careplan/internal/domain/labreport"
)

// TreatmentPlan maps to the treatment_plans table. RawOutput holds the full
// structured client response as it looked when the plan was saved.
type TreatmentPlan struct {
	ID            uuid.UUID       `db:"plan_id" json:"plan_id"`
	ProfileID     uuid.UUID       `db:"profile_id" json:"profile_id"`
	TreatmentType string          `db:"treatment_type" json:"treatment_type"`
	Timeline      string          `db:"timeline" json:"timeline"`
	Disclaimer    string          `db:"disclaimer" json:"disclaimer"`
	Notes         string          `db:"notes" json:"notes"`
	RawOutput     json.RawMessage `db:"raw_output" json:"raw_output,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// Recommendation maps to the recommendations table, one row per ranked
// hospital of a plan.
type Recommendation struct {
	ID           uuid.UUID `db:"recommendation_id" json:"recommendation_id"`
	PlanID       uuid.UUID `db:"plan_id" json:"plan_id"`
	HospitalID   string    `db:"hospital_id" json:"hospital_id"`
	PriorityRank int       `db:"priority_rank" json:"priority_rank"`
	Reasoning    string    `db:"reasoning" json:"reasoning"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// PlanDetails is the working projection of a decision that the explanation
// and persistence steps consume.
type PlanDetails struct {
	DiseaseType     string                 `json:"disease_type"`
	TreatmentType   string                 `json:"treatment_type"`
	Timeline        string                 `json:"timeline"`
	Specialist      string                 `json:"specialist"`
	RequiredReports []string               `json:"required_reports"`
	LabVerification labreport.Verification `json:"lab_verification"`
	Notes           string                 `json:"notes"`
	SurgeryAllowed  bool                   `json:"surgery_allowed"`
	PatientAreaType string                 `json:"patient_area_type"`
}

// RankedHospital is one entry of the specialty-and-accreditation ranking
// pass. PriorityRank is rendered as a string on the wire.
type RankedHospital struct {
	Name             string   `json:"name"`
	Location         string   `json:"location"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	Type             string   `json:"type"`
	Contact          string   `json:"contact"`
	Accreditation    string   `json:"accreditation"`
	Rating           float64  `json:"rating"`
	BudgetCategory   string   `json:"budget_category"`
	AcceptsInsurance bool     `json:"accepts_insurance"`
	Specializations  []string `json:"specializations"`
	HospitalID       string   `json:"hospital_id"`
	PriorityRank     string   `json:"priority_rank"`
	Score            float64  `json:"score"`
}

// Plan bundles the projection and the ranked hospital list.
type Plan struct {
	TreatmentPlan   PlanDetails      `json:"treatment_plan"`
	RankedHospitals []RankedHospital `json:"ranked_hospitals"`
}

// ClientPlan is the treatment_plan block of the final client output. Lab
// verification and the surgery flag stay on the stored plan projection.
type ClientPlan struct {
	DiseaseType     string   `json:"disease_type"`
	TreatmentType   string   `json:"treatment_type"`
	Timeline        string   `json:"timeline"`
	Specialist      string   `json:"specialist"`
	RequiredReports []string `json:"required_reports"`
	Notes           string   `json:"notes"`
}

// HospitalSummary is the trimmed hospital entry shown to the client.
type HospitalSummary struct {
	Name           string `json:"name"`
	Location       string `json:"location"`
	Type           string `json:"type"`
	Contact        string `json:"contact"`
	Accreditation  string `json:"accreditation"`
	Rating         string `json:"rating"`
	BudgetCategory string `json:"budget_category"`
	PriorityRank   string `json:"priority_rank"`
}

// Output is the client-facing result body assembled by the explanation
// builder. The planner layers compliance and follow-up fields on top.
type Output struct {
	TreatmentPlan        ClientPlan        `json:"treatment_plan"`
	RecommendedHospitals []HospitalSummary `json:"recommended_hospitals"`
	Explanation          string            `json:"explanation"`
	Disclaimer           string            `json:"disclaimer"`
}
