package profile

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ParseBool interprets an affirmative questionnaire answer. Anything outside
// the accepted set is false.
func ParseBool(v string) bool {
	switch strings.ToLower(v) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

// ParseAge returns nil when the answer is not a whole number.
func ParseAge(v string) *int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return nil
	}
	return &n
}

// ParseBudget accepts formatted amounts such as "5,00,000" or "INR 200000".
// Returns nil when no number can be extracted.
func ParseBudget(v string) *float64 {
	cleaned := strings.ReplaceAll(v, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "INR", "")
	cleaned = strings.TrimSpace(cleaned)
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// FromResponses maps raw questionnaire answers onto a typed profile and its
// constraint. An absent surgery answer counts as consent, an absent age maps
// to 0 while an unparseable one maps to nil, and the constraint enums fall
// back to "national"/"private" only when the key is entirely absent.
// Completeness checking is ValidateResponses' job, not the mapper's.
func FromResponses(userID uuid.UUID, responses map[string]string) (*Profile, *Constraint) {
	surgery := "yes"
	if raw, ok := responses["surgery_allowed"]; ok {
		surgery = raw
	}

	age := intPtr(0)
	if raw, ok := responses["age"]; ok {
		age = ParseAge(raw)
	}

	disease := responses["disease_type"]

	area := responses["patient_area_type"]
	if area == "" {
		area = "urban"
	}

	p := &Profile{
		UserID:             userID,
		DiseaseType:        disease,
		CancerType:         valueOr(responses, "cancer_type", disease),
		Stage:              responses["stage"],
		MedicalHistory:     responses["medical_history"],
		SurgeryAllowed:     ParseBool(surgery),
		Age:                age,
		Gender:             responses["gender"],
		Symptoms:           responses["symptoms"],
		ExistingLabReports: responses["existing_lab_reports"],
		PatientCity:        responses["patient_city"],
		PatientAreaType:    area,
	}

	c := &Constraint{
		BudgetLimit:        ParseBudget(responses["budget_limit"]),
		LocationType:       valueOr(responses, "location_type", "national"),
		HospitalPreference: valueOr(responses, "hospital_preference", "private"),
	}
	return p, c
}

func valueOr(responses map[string]string, key, fallback string) string {
	if v, ok := responses[key]; ok {
		return v
	}
	return fallback
}

func intPtr(n int) *int { return &n }
