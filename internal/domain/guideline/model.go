package guideline

import (
	"fmt"
	"strconv"
	"strings"
)

// StageEntry is one stage (or variant) of a disease guideline.
type StageEntry struct {
	Stage                 string   `json:"stage" yaml:"stage"`
	Description           string   `json:"description" yaml:"description"`
	RecommendedTreatments []string `json:"recommended_treatments" yaml:"recommended_treatments"`
	Timeline              string   `json:"timeline" yaml:"timeline"`
	RequiredReports       []string `json:"required_reports" yaml:"required_reports"`
	Notes                 string   `json:"notes" yaml:"notes"`
	SurgeryRequired       bool     `json:"surgery_required" yaml:"surgery_required"`
}

// Guideline is the per-disease record from the reference dataset.
type Guideline struct {
	DiseaseType  string       `json:"disease_type" yaml:"disease_type"`
	HospitalType string       `json:"hospital_type" yaml:"hospital_type"`
	Specialist   string       `json:"specialist" yaml:"specialist"`
	Stages       []StageEntry `json:"stages" yaml:"stages"`
}

// Match is a resolved guideline lookup: the disease-level fields plus the
// single stage entry that matched (or the first stage as fallback).
type Match struct {
	DiseaseType  string
	HospitalType string
	Specialist   string
	Stage        StageEntry
}

// SearchDocumentID builds the stable document id for a disease/stage pair.
// Spaces become underscores so ids stay path- and key-safe.
func (g *Guideline) SearchDocumentID(s StageEntry) string {
	id := g.DiseaseType + "_" + s.Stage
	return strings.ReplaceAll(id, " ", "_")
}

// SearchDocument renders the stage as the flat text document indexed for
// semantic lookup. Context snippets shown to the LLM are cut from this
// string, so the field order is fixed.
func (g *Guideline) SearchDocument(s StageEntry) string {
	return fmt.Sprintf("Disease: %s. Stage: %s. Description: %s. Treatments: %s. Timeline: %s. Notes: %s.",
		g.DiseaseType, s.Stage, s.Description,
		strings.Join(s.RecommendedTreatments, ", "), s.Timeline, s.Notes)
}

// SearchMetadata returns the string-valued metadata stored next to the
// search document.
func (g *Guideline) SearchMetadata(s StageEntry) map[string]string {
	return map[string]string{
		"disease_type":     g.DiseaseType,
		"stage":            s.Stage,
		"hospital_type":    g.HospitalType,
		"specialist":       g.Specialist,
		"surgery_required": strconv.FormatBool(s.SurgeryRequired),
		"timeline":         s.Timeline,
	}
}
