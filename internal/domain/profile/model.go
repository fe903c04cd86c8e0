package profile

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the structured medical profile assembled from questionnaire
// answers. One row is written per completed planning run.
type Profile struct {
	ID             uuid.UUID `db:"profile_id" json:"profile_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	DiseaseType    string    `db:"disease_type" json:"disease_type"`
	CancerType     string    `db:"cancer_type" json:"cancer_type"`
	Stage          string    `db:"stage" json:"stage"`
	MedicalHistory string    `db:"medical_history" json:"medical_history"`
	SurgeryAllowed bool      `db:"surgery_allowed" json:"surgery_allowed"`
	Age            *int      `db:"age" json:"age,omitempty"`
	Gender         string    `db:"gender" json:"gender"`
	Symptoms       string    `db:"symptoms" json:"symptoms"`
	// ExistingLabReports is the patient's free-text statement of completed
	// investigations. It feeds lab verification and the lab_reports table,
	// not the medical_profiles row.
	ExistingLabReports string    `db:"-" json:"existing_lab_reports"`
	PatientCity        string    `db:"patient_city" json:"patient_city"`
	PatientAreaType    string    `db:"patient_area_type" json:"patient_area_type"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time `db:"updated_at" json:"updated_at"`
}

// Constraint carries the treatment constraints collected alongside a profile.
type Constraint struct {
	ID                 uuid.UUID `db:"constraint_id" json:"constraint_id"`
	ProfileID          uuid.UUID `db:"profile_id" json:"profile_id"`
	BudgetLimit        *float64  `db:"budget_limit" json:"budget_limit,omitempty"`
	LocationType       string    `db:"location_type" json:"location_type"`
	HospitalPreference string    `db:"hospital_preference" json:"hospital_preference"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}
