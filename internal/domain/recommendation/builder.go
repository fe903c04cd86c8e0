package recommendation

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/domain/decision"
	"github.com/careplan/careplan/internal/domain/hospital"
)

// maxHospitals caps the ranked list and, downstream, the client output.
const maxHospitals = 5

// Builder turns a decision into the structured treatment plan and the ranked
// hospital list. Its scoring pass is independent of the location-aware
// filtering that picked the candidates: this one weighs specialty match and
// accreditation, the earlier one weighed proximity and budget.
type Builder struct {
	log zerolog.Logger
}

func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{log: log}
}

// GeneratePlan projects the decision into plan fields and re-ranks its
// suggested hospitals.
func (b *Builder) GeneratePlan(d *decision.Decision) *Plan {
	area := strings.TrimSpace(d.PatientAreaType)
	if area == "" {
		area = "urban"
	}
	plan := PlanDetails{
		DiseaseType:     d.DiseaseType,
		TreatmentType:   d.TreatmentType,
		Timeline:        d.Timeline,
		Specialist:      d.Specialist,
		RequiredReports: d.RequiredReports,
		LabVerification: d.LabVerification,
		Notes:           d.NotesText(),
		SurgeryAllowed:  d.SurgeryAllowed,
		PatientAreaType: area,
	}

	ranked := rankHospitals(d.SuggestedHospitals, d.HospitalType)
	b.log.Info().
		Int("hospitals", len(ranked)).
		Str("disease_type", d.DiseaseType).
		Msg("treatment plan generated")

	return &Plan{TreatmentPlan: plan, RankedHospitals: ranked}
}

// rankHospitals scores each candidate by specialty match, rating and
// accreditation, then orders them best first. Ties keep their input order.
func rankHospitals(hospitals []*hospital.Hospital, requiredType string) []RankedHospital {
	type entry struct {
		score    float64
		hospital *hospital.Hospital
	}

	entries := make([]entry, 0, len(hospitals))
	for _, h := range hospitals {
		score := 0.0
		switch {
		case h.Type == requiredType:
			score += 3.0
		case h.Type == "Multi-specialty":
			score += 1.5
		}
		if h.Rating > 0 {
			score += h.Rating
		} else {
			// Unrated hospitals score as average rather than bottom.
			score += 3.0
		}
		if h.HasAccreditation("JCI") {
			score += 1.0
		}
		if h.HasAccreditation("NABH") {
			score += 0.5
		}
		entries = append(entries, entry{score: score, hospital: h})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})
	if len(entries) > maxHospitals {
		entries = entries[:maxHospitals]
	}

	ranked := make([]RankedHospital, 0, len(entries))
	for i, e := range entries {
		h := e.hospital
		ranked = append(ranked, RankedHospital{
			Name:             h.Name,
			Location:         h.Location,
			City:             h.City,
			State:            h.State,
			Type:             h.Type,
			Contact:          deref(h.Contact),
			Accreditation:    deref(h.Accreditation),
			Rating:           h.Rating,
			BudgetCategory:   h.BudgetCategory,
			AcceptsInsurance: h.AcceptsInsurance,
			Specializations:  h.Specializations,
			HospitalID:       h.ID,
			PriorityRank:     strconv.Itoa(i + 1),
			Score:            math.Round(e.score*100) / 100,
		})
	}
	return ranked
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
