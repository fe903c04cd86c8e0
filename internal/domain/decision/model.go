package decision

import (
	"strings"

	"github.com/careplan/careplan/internal/domain/hospital"
	"github.com/careplan/careplan/internal/domain/labreport"
)

// Guideline source tags carried on every decision.
const (
	SourceGuideline = "JSON + ChromaDB"
	SourceDefault   = "Default"
)

// NoteSource records where an advisory on a decision came from.
type NoteSource string

const (
	NoteGuideline  NoteSource = "guideline"
	NoteAreaPolicy NoteSource = "area_policy"
	NoteCompliance NoteSource = "compliance"
)

// Note is one advisory attached to a decision. Notes are append-only; the
// engine writes guideline and area advisories, the planner may add a
// compliance notice afterwards.
type Note struct {
	Source NoteSource `json:"source"`
	Text   string     `json:"text"`
}

// Decision is the structured outcome of analyzing one medical profile.
// It is created once per pipeline run and read-only downstream.
type Decision struct {
	DiseaseType        string                 `json:"disease_type"`
	Stage              string                 `json:"stage"`
	TreatmentType      string                 `json:"treatment_type"`
	HospitalType       string                 `json:"hospital_type"`
	Specialist         string                 `json:"specialist"`
	Timeline           string                 `json:"timeline"`
	RequiredReports    []string               `json:"required_reports"`
	LabVerification    labreport.Verification `json:"lab_verification"`
	Notes              []Note                 `json:"notes"`
	SuggestedHospitals []*hospital.Hospital   `json:"suggested_hospitals"`
	GuidelineSource    string                 `json:"guideline_source"`
	LLMReasoning       string                 `json:"llm_reasoning"`
	SurgeryAllowed     bool                   `json:"surgery_allowed"`
	PatientAreaType    string                 `json:"patient_area_type"`
}

// AppendNote adds an advisory unless the text is blank.
func (d *Decision) AppendNote(source NoteSource, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	d.Notes = append(d.Notes, Note{Source: source, Text: text})
}

// NotesText renders the advisory list for display and persistence.
func (d *Decision) NotesText() string {
	parts := make([]string, 0, len(d.Notes))
	for _, n := range d.Notes {
		parts = append(parts, n.Text)
	}
	return strings.Join(parts, " | ")
}
