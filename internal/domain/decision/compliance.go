package decision

import "strings"

// Actions a compliance check can recommend.
const (
	ActionProceed      = "proceed"
	ActionManualReview = "flag_for_manual_review"
)

var undefinedTreatments = map[string]bool{
	"":        true,
	"unknown": true,
	"tbd":     true,
}

// Terms that mark a treatment as surgical for the opt-out check. Wider than
// the engine's filter set so guideline text the filter missed still trips
// the review flag.
var surgicalComplianceTerms = []string{
	"surgery", "surgical", "mastectomy", "lumpectomy", "cabg", "resection", "amputation",
}

// ComplianceResult reports the clinical-safety check for one decision.
type ComplianceResult struct {
	Compliant bool     `json:"compliant"`
	Flags     []string `json:"flags"`
	Action    string   `json:"action"`
}

// ValidateCompliance checks a decision for clinical-safety problems. Pure
// function: equal decisions always produce equal results, and the decision
// itself is never modified. Acting on the result is the planner's job.
func ValidateCompliance(d *Decision) ComplianceResult {
	flags := make([]string, 0)

	treatment := strings.TrimSpace(d.TreatmentType)
	if undefinedTreatments[strings.ToLower(treatment)] {
		flags = append(flags, "Treatment type is undefined — clinical review required.")
	}

	if len(d.RequiredReports) == 0 {
		flags = append(flags, "No required diagnostic reports specified.")
	}

	if !d.SurgeryAllowed {
		lower := strings.ToLower(d.TreatmentType)
		for _, term := range surgicalComplianceTerms {
			if strings.Contains(lower, term) {
				flags = append(flags, "Recommended treatment includes surgery, but patient opted out — clinical override needed.")
				break
			}
		}
	}

	if len(flags) > 0 {
		return ComplianceResult{Compliant: false, Flags: flags, Action: ActionManualReview}
	}
	return ComplianceResult{Compliant: true, Flags: flags, Action: ActionProceed}
}
