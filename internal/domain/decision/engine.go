package decision

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/domain/guideline"
	"github.com/careplan/careplan/internal/domain/labreport"
	"github.com/careplan/careplan/internal/domain/profile"
	"github.com/careplan/careplan/internal/platform/llm"
	"github.com/careplan/careplan/internal/platform/search"
	"github.com/careplan/careplan/internal/platform/telemetry"
)

// Treatments removed when the patient declines surgery. The compliance check
// uses a wider set; this one only has to catch what the guidelines name.
var surgicalTreatmentTerms = []string{"surgery", "surgical", "lumpectomy", "mastectomy", "cabg"}

const areaAdvisory = "Patients in rural or remote areas should consider government hospitals for affordability and use telemedicine consultations with the recommended specialist before travelling for treatment."

// Searcher is the semantic-search collaborator. Failures are advisory only.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]search.Result, error)
}

// Engine selects a treatment approach for a profile from the guideline data,
// then enriches it with lab verification, hospital suggestions and model
// reasoning. Guideline matching is deterministic; the search and LLM
// collaborators are fail-soft.
type Engine struct {
	store    *guideline.Store
	searcher Searcher
	llm      llm.Client
	metrics  *telemetry.TelemetryProvider
	log      zerolog.Logger
}

func NewEngine(store *guideline.Store, searcher Searcher, client llm.Client, metrics *telemetry.TelemetryProvider, log zerolog.Logger) *Engine {
	return &Engine{store: store, searcher: searcher, llm: client, metrics: metrics, log: log}
}

// Analyze builds the decision for one profile. It never fails: a missing
// guideline yields the generic default, and search or LLM outages degrade to
// deterministic output.
func (e *Engine) Analyze(ctx context.Context, p *profile.Profile, c *profile.Constraint) *Decision {
	d := &Decision{
		DiseaseType:     p.DiseaseType,
		Stage:           p.Stage,
		SurgeryAllowed:  p.SurgeryAllowed,
		PatientAreaType: p.PatientAreaType,
	}

	if match := e.store.FindGuideline(p.DiseaseType, p.Stage); match != nil {
		treatments := match.Stage.RecommendedTreatments
		if !p.SurgeryAllowed {
			treatments = filterSurgical(treatments)
		}
		d.TreatmentType = joinTreatments(treatments)
		d.HospitalType = match.HospitalType
		d.Specialist = match.Specialist
		d.Timeline = match.Stage.Timeline
		if d.Timeline == "" {
			d.Timeline = "To be determined"
		}
		d.RequiredReports = match.Stage.RequiredReports
		d.AppendNote(NoteGuideline, match.Stage.Notes)
		d.GuidelineSource = SourceGuideline
	} else {
		d.TreatmentType = "Medical Management"
		d.HospitalType = "Multi-specialty"
		d.Specialist = "General Physician"
		d.Timeline = "To be determined based on further evaluation"
		d.RequiredReports = []string{"Blood Test", "Clinical Examination"}
		d.AppendNote(NoteGuideline, "Specific guidelines not found; general management recommended.")
		d.GuidelineSource = SourceDefault
	}

	d.LabVerification = labreport.Verify(p.ExistingLabReports, d.RequiredReports)

	guidelineContext := e.searchContext(ctx, p.DiseaseType, p.Stage)

	d.SuggestedHospitals = e.store.ListHospitals(guideline.HospitalFilter{
		HospitalType:       d.HospitalType,
		BudgetLimit:        c.BudgetLimit,
		LocationType:       c.LocationType,
		HospitalPreference: c.HospitalPreference,
		PatientCity:        p.PatientCity,
		PatientAreaType:    p.PatientAreaType,
	})

	if area := strings.ToLower(strings.TrimSpace(p.PatientAreaType)); area == "rural" || area == "remote" {
		d.AppendNote(NoteAreaPolicy, areaAdvisory)
	}

	d.LLMReasoning = e.reason(ctx, p, d, guidelineContext)

	e.log.Info().
		Str("disease", d.DiseaseType).
		Str("treatment", d.TreatmentType).
		Str("source", d.GuidelineSource).
		Int("hospitals", len(d.SuggestedHospitals)).
		Msg("decision assembled")
	return d
}

func filterSurgical(treatments []string) []string {
	kept := make([]string, 0, len(treatments))
	for _, t := range treatments {
		lower := strings.ToLower(t)
		surgical := false
		for _, term := range surgicalTreatmentTerms {
			if strings.Contains(lower, term) {
				surgical = true
				break
			}
		}
		if !surgical {
			kept = append(kept, t)
		}
	}
	return kept
}

func joinTreatments(treatments []string) string {
	if len(treatments) == 0 {
		return "Medical Management"
	}
	if len(treatments) > 3 {
		treatments = treatments[:3]
	}
	return strings.Join(treatments, ", ")
}

// searchContext collects supplementary guideline text for the reasoning
// prompt. A search outage is not a pipeline failure.
func (e *Engine) searchContext(ctx context.Context, disease, stage string) string {
	results, err := e.searcher.Search(ctx, fmt.Sprintf("%s %s treatment", disease, stage), 2)
	if err != nil {
		e.log.Warn().Err(err).Msg("guideline search failed, continuing without context")
		return ""
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		doc := r.Document.Text
		if len(doc) > 200 {
			doc = doc[:200]
		}
		parts = append(parts, doc)
	}
	return strings.Join(parts, " | ")
}

func (e *Engine) reason(ctx context.Context, p *profile.Profile, d *Decision, guidelineContext string) string {
	text, err := e.llm.Complete(ctx, reasoningPrompt(p, d, guidelineContext))
	if err != nil || strings.TrimSpace(text) == "" {
		e.countLLM("fallback")
		e.log.Warn().Err(err).Msg("llm reasoning unavailable, using template")
		return fallbackReasoning(d.Stage, d.DiseaseType, d.TreatmentType)
	}
	e.countLLM("ok")
	return strings.TrimSpace(text)
}

func (e *Engine) countLLM(outcome string) {
	if e.metrics != nil {
		e.metrics.LLMCallCounter("decision", outcome)
	}
}

func reasoningPrompt(p *profile.Profile, d *Decision, guidelineContext string) string {
	age := "Unknown"
	if p.Age != nil {
		age = strconv.Itoa(*p.Age)
	}
	history := p.MedicalHistory
	if strings.TrimSpace(history) == "" {
		history = "None stated"
	}
	if guidelineContext == "" {
		guidelineContext = "Standard guidelines"
	} else if len(guidelineContext) > 300 {
		guidelineContext = guidelineContext[:300]
	}

	return fmt.Sprintf(`You are a senior medical decision support assistant. Given the following patient profile and recommended treatment, provide a brief clinical reasoning (3-4 sentences) explaining why this treatment is appropriate.

Patient Profile:
- Disease: %s
- Stage: %s
- Age: %s
- Gender: %s
- Medical History: %s
- Surgery Allowed: %t

Recommended Treatment: %s
Guidelines Context: %s
Notes: %s

Provide ONLY the clinical reasoning paragraph, no headers or markdown.`,
		orUnknown(d.DiseaseType), orUnknown(d.Stage), age, orUnknown(p.Gender),
		history, p.SurgeryAllowed, d.TreatmentType, guidelineContext, d.NotesText())
}

func fallbackReasoning(stage, disease, treatment string) string {
	if strings.TrimSpace(stage) == "" {
		stage = "reported"
	}
	if strings.TrimSpace(disease) == "" {
		disease = "the condition"
	}
	return fmt.Sprintf("Based on the %s stage of %s, %s is the recommended approach per established clinical guidelines.", stage, disease, treatment)
}

func orUnknown(v string) string {
	if strings.TrimSpace(v) == "" {
		return "Unknown"
	}
	return v
}
