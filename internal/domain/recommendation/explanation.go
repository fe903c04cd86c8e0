package recommendation

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/domain/profile"
	"github.com/careplan/careplan/internal/platform/llm"
	"github.com/careplan/careplan/internal/platform/telemetry"
)

// Disclaimer is fixed wording and appears verbatim in every completed plan.
const Disclaimer = "This is not a medical diagnosis. Consult a licensed medical professional before making any healthcare decisions."

// ExplanationBuilder assembles the client output: a patient-friendly
// explanation, the trimmed hospital list and the disclaimer. The explanation
// comes from the language model when available, otherwise from a fixed
// template.
type ExplanationBuilder struct {
	llm     llm.Client
	metrics *telemetry.TelemetryProvider
	log     zerolog.Logger
}

func NewExplanationBuilder(client llm.Client, metrics *telemetry.TelemetryProvider, log zerolog.Logger) *ExplanationBuilder {
	return &ExplanationBuilder{llm: client, metrics: metrics, log: log}
}

// Generate renders the final output body for a completed plan.
func (e *ExplanationBuilder) Generate(ctx context.Context, p *profile.Profile, plan *Plan, llmReasoning string) *Output {
	explanation := e.explain(ctx, p, &plan.TreatmentPlan, llmReasoning)

	hospitals := make([]HospitalSummary, 0, maxHospitals)
	for _, h := range plan.RankedHospitals {
		if len(hospitals) == maxHospitals {
			break
		}
		hospitals = append(hospitals, HospitalSummary{
			Name:           h.Name,
			Location:       renderLocation(h),
			Type:           h.Type,
			Contact:        h.Contact,
			Accreditation:  h.Accreditation,
			Rating:         strconv.FormatFloat(h.Rating, 'g', -1, 64),
			BudgetCategory: h.BudgetCategory,
			PriorityRank:   h.PriorityRank,
		})
	}

	return &Output{
		TreatmentPlan: ClientPlan{
			DiseaseType:     plan.TreatmentPlan.DiseaseType,
			TreatmentType:   plan.TreatmentPlan.TreatmentType,
			Timeline:        plan.TreatmentPlan.Timeline,
			Specialist:      plan.TreatmentPlan.Specialist,
			RequiredReports: plan.TreatmentPlan.RequiredReports,
			Notes:           plan.TreatmentPlan.Notes,
		},
		RecommendedHospitals: hospitals,
		Explanation:          explanation,
		Disclaimer:           Disclaimer,
	}
}

func (e *ExplanationBuilder) explain(ctx context.Context, p *profile.Profile, plan *PlanDetails, llmReasoning string) string {
	text, err := e.llm.Complete(ctx, explanationPrompt(p, plan, llmReasoning))
	if err != nil || strings.TrimSpace(text) == "" {
		e.countLLM("fallback")
		e.log.Warn().Err(err).Msg("explanation model unavailable, using template")
		return fallbackExplanation(p, plan, llmReasoning)
	}
	e.countLLM("ok")
	return strings.TrimSpace(text)
}

func (e *ExplanationBuilder) countLLM(outcome string) {
	if e.metrics != nil {
		e.metrics.LLMCallCounter("explanation", outcome)
	}
}

func explanationPrompt(p *profile.Profile, plan *PlanDetails, llmReasoning string) string {
	age := "Unknown"
	if p.Age != nil {
		age = strconv.Itoa(*p.Age)
	}
	return fmt.Sprintf(`You are a compassionate healthcare advisor explaining a treatment recommendation to a patient.

Patient Details:
- Disease: %s
- Stage: %s
- Age: %s
- Gender: %s
- Surgery Allowed: %t

Recommended Treatment: %s
Timeline: %s
Clinical Reasoning: %s

Write a clear, empathetic 3-5 sentence explanation for the patient about:
1. What treatment is recommended and why
2. What they can expect in terms of timeline
3. The importance of visiting a specialist

Use simple language. Do not include any markdown or headers. Write as a single paragraph.`,
		orUnknown(p.DiseaseType), orUnknown(p.Stage), age, orUnknown(p.Gender),
		p.SurgeryAllowed, plan.TreatmentType, plan.Timeline, llmReasoning)
}

func fallbackExplanation(p *profile.Profile, plan *PlanDetails, llmReasoning string) string {
	disease := p.DiseaseType
	if disease == "" {
		disease = "condition"
	}
	treatment := plan.TreatmentType
	if treatment == "" {
		treatment = "medical management"
	}
	timeline := plan.Timeline
	if timeline == "" {
		timeline = "to be determined by your specialist"
	}
	specialist := plan.Specialist
	if specialist == "" {
		specialist = "licensed medical professional"
	}
	return fmt.Sprintf("Based on your %s %s, the recommended treatment approach is %s. "+
		"The expected treatment timeline is %s. %s "+
		"Please consult with a %s for personalized guidance and to discuss your treatment options in detail.",
		p.Stage, disease, treatment, timeline, llmReasoning, specialist)
}

// renderLocation prefers the city, falls back to the free-form location, and
// trims dangling separators when either side is blank.
func renderLocation(h RankedHospital) string {
	city := h.City
	if city == "" {
		city = h.Location
	}
	return strings.Trim(fmt.Sprintf("%s, %s", city, h.State), ", ")
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
