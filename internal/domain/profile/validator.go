package profile

import (
	"fmt"
	"strconv"
	"strings"
)

var requiredProfileFields = []string{
	"disease_type",
	"stage",
	"age",
	"gender",
	"medical_history",
	"symptoms",
	"surgery_allowed",
}

var requiredConstraintFields = []string{
	"budget_limit",
	"location_type",
}

var validLocationTypes = map[string]bool{
	"local":         true,
	"national":      true,
	"international": true,
}

var validHospitalPreferences = map[string]bool{
	"government": true,
	"private":    true,
	"any":        true,
}

// ValidationResult reports completeness and constraint problems for one set
// of questionnaire answers.
type ValidationResult struct {
	IsValid       bool     `json:"is_valid"`
	MissingFields []string `json:"missing_fields"`
	Warnings      []string `json:"warnings"`
	Errors        []string `json:"errors"`
}

// ValidateResponses checks raw answers for completeness and constraint
// problems. Enum mismatches are warnings only since the mapper defaults
// cover them; budget problems are hard errors. The answers arrive unparsed
// so error texts can echo exactly what the user typed.
func ValidateResponses(responses map[string]string) ValidationResult {
	missing := make([]string, 0)
	warnings := make([]string, 0)
	errs := make([]string, 0)

	for _, field := range requiredProfileFields {
		if strings.TrimSpace(responses[field]) == "" {
			missing = append(missing, field)
		}
	}
	for _, field := range requiredConstraintFields {
		if strings.TrimSpace(responses[field]) == "" {
			missing = append(missing, field)
		}
	}

	if lt := strings.ToLower(responses["location_type"]); lt != "" && !validLocationTypes[lt] {
		warnings = append(warnings, fmt.Sprintf(
			"Invalid location_type '%s'. Expected: local, national, international. Defaulting to 'national'.", lt))
	}
	if hp := strings.ToLower(responses["hospital_preference"]); hp != "" && !validHospitalPreferences[hp] {
		warnings = append(warnings, fmt.Sprintf(
			"Invalid hospital_preference '%s'. Expected: government, private, any. Defaulting to 'private'.", hp))
	}

	if raw, ok := responses["budget_limit"]; ok {
		if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err != nil {
			errs = append(errs, fmt.Sprintf("budget_limit '%s' is not a valid number.", raw))
		} else if v <= 0 {
			errs = append(errs, "budget_limit must be a positive number.")
		}
	}

	if raw, ok := responses["surgery_allowed"]; ok && strings.TrimSpace(raw) != "" {
		if !ParseBool(raw) && strings.Contains(strings.ToLower(responses["stage"]), "stage iv") {
			warnings = append(warnings,
				"Surgery is not allowed, but Stage IV may require urgent intervention. Please confirm constraint with a medical professional.")
		}
	}

	return ValidationResult{
		IsValid:       len(missing) == 0 && len(errs) == 0,
		MissingFields: missing,
		Warnings:      warnings,
		Errors:        errs,
	}
}
