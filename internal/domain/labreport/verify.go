package labreport

import (
	"fmt"
	"strings"
)

// Answers meaning "no reports exist", checked against the lowercased,
// trimmed free-text input.
var noneSentinels = map[string]bool{
	"none":     true,
	"no":       true,
	"not done": true,
	"":         true,
	"n/a":      true,
	"na":       true,
}

// Verification is the result of cross-referencing what the patient already
// has against what the matched guideline requires.
type Verification struct {
	Existing  string   `json:"existing"`
	Completed []string `json:"completed"`
	Pending   []string `json:"pending"`
	Note      string   `json:"note"`
}

// HasReports reports whether the free-text answer names any completed
// investigation, i.e. is not one of the none-sentinels.
func HasReports(existingReports string) bool {
	return !noneSentinels[strings.ToLower(strings.TrimSpace(existingReports))]
}

// Verify splits requiredReports into completed and pending by checking each
// required name as a case-insensitive substring of the free-text answer. A
// sentinel answer ("none", "n/a", ...) marks everything pending.
func Verify(existingReports string, requiredReports []string) Verification {
	normalized := strings.ToLower(strings.TrimSpace(existingReports))
	completed := make([]string, 0, len(requiredReports))
	pending := make([]string, 0, len(requiredReports))

	if noneSentinels[normalized] {
		pending = append(pending, requiredReports...)
		return Verification{
			Existing:  existingReports,
			Completed: completed,
			Pending:   pending,
			Note:      "No lab reports provided. " + countNote(0, len(requiredReports), pending),
		}
	}

	for _, req := range requiredReports {
		if strings.Contains(normalized, strings.ToLower(req)) {
			completed = append(completed, req)
		} else {
			pending = append(pending, req)
		}
	}
	return Verification{
		Existing:  existingReports,
		Completed: completed,
		Pending:   pending,
		Note:      countNote(len(completed), len(requiredReports), pending),
	}
}

func countNote(done, total int, pending []string) string {
	list := "None — all clear!"
	if len(pending) > 0 {
		list = strings.Join(pending, ", ")
	}
	return fmt.Sprintf("%d of %d required investigations already done. %d still pending: %s",
		done, total, len(pending), list)
}
