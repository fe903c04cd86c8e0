// Package question produces the medical data-collection form. The field set
// is canonical and fixed; a language model may only rephrase question text.
package question

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/platform/llm"
	"github.com/careplan/careplan/internal/platform/telemetry"
)

// Question is one item of the data-collection form.
type Question struct {
	Field    string `json:"field"`
	Question string `json:"question"`
	Required bool   `json:"required"`
}

// Defaults returns the canonical question list. Field names and required
// flags are authoritative: validation, profile mapping and the loop-back UI
// all key off them. Callers get a fresh copy.
func Defaults() []Question {
	return []Question{
		{Field: "disease_type", Question: "What type of disease or medical condition are you dealing with?", Required: true},
		{Field: "stage", Question: "What is the current stage or severity of the condition (if known)?", Required: true},
		{Field: "age", Question: "What is the patient's age?", Required: true},
		{Field: "gender", Question: "What is the patient's gender?", Required: true},
		{Field: "medical_history", Question: "Please describe any relevant medical history (previous illnesses, surgeries, medications)?", Required: true},
		{Field: "symptoms", Question: "What symptoms is the patient currently experiencing?", Required: true},
		{Field: "existing_lab_reports", Question: "Which diagnostic reports or lab tests have already been completed (e.g., blood test, biopsy, MRI)? Enter 'none' if not done yet.", Required: false},
		{Field: "surgery_allowed", Question: "Is the patient open to surgical procedures? (yes/no)", Required: true},
		{Field: "budget_limit", Question: "What is the approximate budget for treatment (in INR)? E.g., 200000 for 2 lakhs", Required: true},
		{Field: "location_type", Question: "Do you prefer a local, national, or international hospital?", Required: true},
		{Field: "patient_area_type", Question: "Is the patient located in an urban, rural, or remote area?", Required: false},
		{Field: "hospital_preference", Question: "Do you prefer a government or private hospital?", Required: false},
	}
}

// Filter returns the questions whose field is in fields, keeping question
// order. Used for the loop-back form that re-asks only missing fields.
func Filter(questions []Question, fields []string) []Question {
	if len(fields) == 0 {
		return []Question{}
	}
	wanted := make(map[string]bool, len(fields))
	for _, f := range fields {
		wanted[f] = true
	}
	out := make([]Question, 0, len(fields))
	for _, q := range questions {
		if wanted[q.Field] {
			out = append(out, q)
		}
	}
	return out
}

// Generator personalizes the canonical questions to the stated goal.
type Generator struct {
	llm     llm.Client
	metrics *telemetry.TelemetryProvider
	log     zerolog.Logger
}

func NewGenerator(client llm.Client, metrics *telemetry.TelemetryProvider, log zerolog.Logger) *Generator {
	return &Generator{llm: client, metrics: metrics, log: log}
}

// Generate returns the canonical questions with text rephrased for the goal
// where the model supplied a usable override. Any model failure or malformed
// reply leaves the defaults untouched.
func (g *Generator) Generate(ctx context.Context, goal string) []Question {
	questions := Defaults()

	raw, err := g.llm.Complete(ctx, personalizationPrompt(goal))
	if err != nil {
		g.countLLM("fallback")
		g.log.Warn().Err(err).Msg("question model unavailable, using defaults")
		return questions
	}
	overrides, err := parseOverrides(raw)
	if err != nil {
		g.countLLM("fallback")
		g.log.Warn().Err(err).Msg("question personalization unusable, using defaults")
		return questions
	}

	applied := 0
	for i := range questions {
		if text, ok := overrides[questions[i].Field]; ok {
			questions[i].Question = text
			applied++
		}
	}
	g.countLLM("ok")
	g.log.Info().Int("personalized", applied).Msg("questions generated")
	return questions
}

func (g *Generator) countLLM(outcome string) {
	if g.metrics != nil {
		g.metrics.LLMCallCounter("question", outcome)
	}
}

func personalizationPrompt(goal string) string {
	return fmt.Sprintf(`You are a healthcare data collection assistant. Based on the following patient goal:

"%s"

Rewrite the question text for each field below so it speaks to this goal. Keep every field name unchanged and do not add or remove fields.

Fields: disease_type, stage, age, gender, medical_history, symptoms, existing_lab_reports, surgery_allowed, budget_limit, location_type, patient_area_type, hospital_preference

Return ONLY a valid JSON array with this exact format:
[
  {
    "field": "field_name_snake_case",
    "question": "The question text for the patient?"
  }
]

Do not include any explanatory text, only the JSON array.`, goal)
}

// parseOverrides pulls the first JSON array out of the reply and maps field
// to replacement text. Entries with a blank field or question are dropped.
func parseOverrides(raw string) (map[string]string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end < start {
		return nil, errors.New("no JSON array in model reply")
	}
	var items []Question
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("parse question overrides: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("empty question override list")
	}
	overrides := make(map[string]string, len(items))
	for _, item := range items {
		if item.Field == "" || strings.TrimSpace(item.Question) == "" {
			continue
		}
		overrides[item.Field] = item.Question
	}
	return overrides, nil
}
