package hospital

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Hospital maps to the hospitals table. Rows originate from the embedded
// reference dataset and are upserted by the seed command, so the primary
// key is the dataset's stable string id rather than a generated uuid.
type Hospital struct {
	ID               string    `db:"hospital_id" json:"hospital_id"`
	Name             string    `db:"name" json:"name"`
	Type             string    `db:"type" json:"type"`
	Location         string    `db:"location" json:"location"`
	City             string    `db:"city" json:"city"`
	State            string    `db:"state" json:"state"`
	Contact          *string   `db:"contact" json:"contact,omitempty"`
	Email            *string   `db:"email" json:"email,omitempty"`
	Accreditation    *string   `db:"accreditation" json:"accreditation,omitempty"`
	Rating           float64   `db:"rating" json:"rating"`
	BudgetCategory   string    `db:"budget_category" json:"budget_category"`
	AcceptsInsurance bool      `db:"accepts_insurance" json:"accepts_insurance"`
	Specializations  []string  `db:"specializations" json:"specializations"`
	Summary          *string   `db:"summary" json:"summary,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SearchDocument renders the hospital as the flat text document indexed for
// semantic lookup. The field order is fixed; context snippets shown to the
// LLM are cut from this string.
func (h *Hospital) SearchDocument() string {
	return fmt.Sprintf("Hospital: %s. Location: %s, %s. Type: %s. Specializations: %s. Budget: %s. Rating: %s. Summary: %s",
		h.Name, h.Location, h.State, h.Type,
		strings.Join(h.Specializations, ", "),
		h.BudgetCategory, formatRating(h.Rating), strVal(h.Summary))
}

// SearchMetadata returns the string-valued metadata stored next to the
// search document.
func (h *Hospital) SearchMetadata() map[string]string {
	return map[string]string{
		"hospital_id":       h.ID,
		"name":              h.Name,
		"type":              h.Type,
		"location":          h.Location,
		"budget_category":   h.BudgetCategory,
		"rating":            formatRating(h.Rating),
		"accepts_insurance": strconv.FormatBool(h.AcceptsInsurance),
	}
}

// HasAccreditation reports whether the accreditation string mentions the
// given body (case-insensitive substring).
func (h *Hospital) HasAccreditation(body string) bool {
	if h.Accreditation == nil {
		return false
	}
	return strings.Contains(strings.ToLower(*h.Accreditation), strings.ToLower(body))
}

func formatRating(r float64) string {
	return strconv.FormatFloat(r, 'g', -1, 64)
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
