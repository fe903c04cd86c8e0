package recommendation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/careplan/careplan/internal/domain/profile"
	"github.com/careplan/careplan/internal/platform/llm"
)

type captureLLM struct {
	prompt   string
	response string
}

func (c *captureLLM) Complete(_ context.Context, prompt string) (string, error) {
	c.prompt = prompt
	return c.response, nil
}

func (c *captureLLM) Available() bool { return true }

func testProfile() *profile.Profile {
	age := 52
	return &profile.Profile{
		DiseaseType:    "Breast Cancer",
		Stage:          "Stage II",
		Age:            &age,
		Gender:         "female",
		SurgeryAllowed: true,
	}
}

func testPlan() *Plan {
	return &Plan{
		TreatmentPlan: PlanDetails{
			DiseaseType:     "Breast Cancer",
			TreatmentType:   "Lumpectomy, Radiation Therapy, Hormone Therapy",
			Timeline:        "4-6 months",
			Specialist:      "Oncologist",
			RequiredReports: []string{"Mammogram", "Biopsy Report"},
			Notes:           "Standard protocol",
			SurgeryAllowed:  true,
			PatientAreaType: "urban",
		},
		RankedHospitals: []RankedHospital{
			{
				Name: "Tata Memorial Hospital", City: "Mumbai", State: "Maharashtra",
				Location: "Parel, Mumbai", Type: "Oncology", Contact: "+91-22-2417-7000",
				Accreditation: "NABH", Rating: 4.8, BudgetCategory: "Government",
				HospitalID: "H001", PriorityRank: "1", Score: 8.3,
			},
			{
				Name: "Apollo Cancer Centre", City: "Chennai", State: "Tamil Nadu",
				Location: "Greams Road", Type: "Oncology", Contact: "+91-44-2829-3333",
				Accreditation: "JCI, NABH", Rating: 4.6, BudgetCategory: "Premium",
				HospitalID: "H002", PriorityRank: "2", Score: 9.1,
			},
		},
	}
}

func newExplanationBuilder(client llm.Client) *ExplanationBuilder {
	return NewExplanationBuilder(client, nil, zerolog.Nop())
}

func TestGenerate_Output(t *testing.T) {
	client := &captureLLM{response: " Your care team recommends breast-conserving treatment. "}
	out := newExplanationBuilder(client).Generate(context.Background(), testProfile(), testPlan(), "Guidelines favour it.")

	if out.Explanation != "Your care team recommends breast-conserving treatment." {
		t.Errorf("Explanation = %q", out.Explanation)
	}
	if out.Disclaimer != "This is not a medical diagnosis. Consult a licensed medical professional before making any healthcare decisions." {
		t.Errorf("Disclaimer = %q", out.Disclaimer)
	}
	tp := out.TreatmentPlan
	if tp.DiseaseType != "Breast Cancer" || tp.Specialist != "Oncologist" || tp.Notes != "Standard protocol" {
		t.Errorf("TreatmentPlan = %+v", tp)
	}
	if len(out.RecommendedHospitals) != 2 {
		t.Fatalf("hospitals = %d", len(out.RecommendedHospitals))
	}
	first := out.RecommendedHospitals[0]
	if first.Location != "Mumbai, Maharashtra" {
		t.Errorf("Location = %q", first.Location)
	}
	if first.Rating != "4.8" || first.PriorityRank != "1" {
		t.Errorf("Rating = %q, PriorityRank = %q", first.Rating, first.PriorityRank)
	}
}

func TestGenerate_PromptFields(t *testing.T) {
	client := &captureLLM{response: "ok"}
	newExplanationBuilder(client).Generate(context.Background(), testProfile(), testPlan(), "Guidelines favour it.")

	for _, want := range []string{
		"- Disease: Breast Cancer",
		"- Stage: Stage II",
		"- Age: 52",
		"Recommended Treatment: Lumpectomy, Radiation Therapy, Hormone Therapy",
		"Clinical Reasoning: Guidelines favour it.",
	} {
		if !strings.Contains(client.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestGenerate_HospitalCap(t *testing.T) {
	plan := testPlan()
	plan.RankedHospitals = nil
	for i := 0; i < 7; i++ {
		plan.RankedHospitals = append(plan.RankedHospitals, RankedHospital{
			Name:         fmt.Sprintf("Hospital %d", i+1),
			City:         "Pune",
			State:        "Maharashtra",
			PriorityRank: fmt.Sprintf("%d", i+1),
		})
	}
	out := newExplanationBuilder(llm.NewStatic("ok")).Generate(context.Background(), testProfile(), plan, "")
	if len(out.RecommendedHospitals) != 5 {
		t.Errorf("hospitals = %d, want 5", len(out.RecommendedHospitals))
	}
}

func TestGenerate_LocationRendering(t *testing.T) {
	plan := testPlan()
	plan.RankedHospitals = []RankedHospital{
		{Name: "A", City: "", Location: "Parel, Mumbai", State: "Maharashtra", PriorityRank: "1"},
		{Name: "B", City: "Chennai", State: "", PriorityRank: "2"},
	}
	out := newExplanationBuilder(llm.NewStatic("ok")).Generate(context.Background(), testProfile(), plan, "")
	if got := out.RecommendedHospitals[0].Location; got != "Parel, Mumbai, Maharashtra" {
		t.Errorf("blank city: Location = %q", got)
	}
	if got := out.RecommendedHospitals[1].Location; got != "Chennai" {
		t.Errorf("blank state: Location = %q", got)
	}
}

func TestGenerate_LLMErrorFallsBack(t *testing.T) {
	client := &llm.Static{Err: errors.New("quota exhausted")}
	out := newExplanationBuilder(client).Generate(context.Background(), testProfile(), testPlan(),
		"The tumour profile favours breast conservation.")

	want := "Based on your Stage II Breast Cancer, the recommended treatment approach is " +
		"Lumpectomy, Radiation Therapy, Hormone Therapy. The expected treatment timeline is 4-6 months. " +
		"The tumour profile favours breast conservation. Please consult with a Oncologist " +
		"for personalized guidance and to discuss your treatment options in detail."
	if out.Explanation != want {
		t.Errorf("Explanation = %q\nwant %q", out.Explanation, want)
	}
}

func TestGenerate_EmptyLLMFallsBack(t *testing.T) {
	out := newExplanationBuilder(llm.NewStatic("   \n")).Generate(context.Background(), testProfile(), testPlan(), "")
	if !strings.HasPrefix(out.Explanation, "Based on your") {
		t.Errorf("Explanation = %q", out.Explanation)
	}
}

func TestFallbackExplanation_Placeholders(t *testing.T) {
	got := fallbackExplanation(&profile.Profile{}, &PlanDetails{}, "")
	want := "Based on your  condition, the recommended treatment approach is medical management. " +
		"The expected treatment timeline is to be determined by your specialist.  " +
		"Please consult with a licensed medical professional for personalized guidance " +
		"and to discuss your treatment options in detail."
	if got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}
}
