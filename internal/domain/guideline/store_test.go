package guideline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/careplan/careplan/internal/domain/hospital"
)

func loadDefault(t *testing.T) *Store {
	t.Helper()
	s, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func floatPtr(f float64) *float64 { return &f }

func TestLoad_EmbeddedDefaults(t *testing.T) {
	s := loadDefault(t)
	if len(s.Guidelines()) < 4 {
		t.Fatalf("expected at least 4 diseases, got %d", len(s.Guidelines()))
	}
	for _, want := range []string{"Breast Cancer", "Lung Cancer", "Diabetes", "Heart Disease"} {
		found := false
		for _, g := range s.Guidelines() {
			if g.DiseaseType == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("disease %q missing from embedded dataset", want)
		}
	}
	if len(s.Hospitals()) < 10 {
		t.Errorf("expected at least 10 hospitals, got %d", len(s.Hospitals()))
	}
	if s.GuidelineIndex().Len() == 0 || s.HospitalIndex().Len() == 0 {
		t.Error("search indexes should be populated after Load")
	}
}

func TestLoad_NullableHospitalFields(t *testing.T) {
	s := loadDefault(t)
	var pgimer, apollo *hospital.Hospital
	for _, h := range s.Hospitals() {
		switch h.ID {
		case "pgimer_chandigarh":
			pgimer = h
		case "apollo_chennai":
			apollo = h
		}
	}
	if pgimer == nil || apollo == nil {
		t.Fatal("expected pgimer_chandigarh and apollo_chennai in dataset")
	}
	if pgimer.Accreditation != nil {
		t.Errorf("empty accreditation should map to nil, got %q", *pgimer.Accreditation)
	}
	if apollo.Accreditation == nil || !strings.Contains(*apollo.Accreditation, "JCI") {
		t.Error("apollo_chennai should carry a JCI accreditation")
	}
}

func TestLoad_YAMLOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guidelines.yaml")
	doc := `diseases:
  - disease_type: Test Disease
    hospital_type: Multi-specialty
    specialist: General Physician
    stages:
      - stage: Mild
        description: Test stage.
        recommended_treatments: [Rest, Fluids]
        timeline: 1-2 weeks
        required_reports: [Blood Test]
        notes: Test notes.
        surgery_required: false
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load with yaml override: %v", err)
	}
	if len(s.Guidelines()) != 1 || s.Guidelines()[0].DiseaseType != "Test Disease" {
		t.Errorf("yaml override not applied: %+v", s.Guidelines())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/guidelines.json", ""); err == nil {
		t.Error("expected error for missing guidelines file")
	}
}

func TestLoad_EmptyDiseases(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guidelines.json")
	if err := os.WriteFile(path, []byte(`{"diseases": []}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path, ""); err == nil {
		t.Error("expected error for empty disease list")
	}
}

func TestFindGuideline_ExactMatch(t *testing.T) {
	s := loadDefault(t)
	m := s.FindGuideline("Breast Cancer", "Stage I")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.HospitalType != "Oncology" || m.Specialist != "Oncologist" {
		t.Errorf("unexpected disease fields: %+v", m)
	}
	if m.Stage.Stage != "Stage I" {
		t.Errorf("expected Stage I, got %q", m.Stage.Stage)
	}
}

func TestFindGuideline_PartialDiseaseInput(t *testing.T) {
	s := loadDefault(t)
	m := s.FindGuideline("cancer", "Stage I")
	if m == nil {
		t.Fatal("expected a match for partial input")
	}
	// First cancer guideline in dataset order wins.
	if m.DiseaseType != "Breast Cancer" {
		t.Errorf("expected Breast Cancer, got %q", m.DiseaseType)
	}
}

func TestFindGuideline_VerboseDiseaseInput(t *testing.T) {
	s := loadDefault(t)
	m := s.FindGuideline("metastatic breast cancer diagnosed last month", "Stage IV")
	if m == nil || m.DiseaseType != "Breast Cancer" {
		t.Fatalf("verbose input should still resolve, got %+v", m)
	}
}

func TestFindGuideline_BidirectionalStageMatch(t *testing.T) {
	s := loadDefault(t)
	// "Stage I" is a substring of "Stage II", so the first stage wins for
	// the longer label. Short-form input resolves precisely.
	m := s.FindGuideline("Breast Cancer", "Stage II")
	if m == nil || m.Stage.Stage != "Stage I" {
		t.Fatalf("expected Stage I for input Stage II, got %+v", m)
	}
	m = s.FindGuideline("Breast Cancer", "II")
	if m == nil || m.Stage.Stage != "Stage II" {
		t.Fatalf("expected Stage II for input II, got %+v", m)
	}
	m = s.FindGuideline("Diabetes", "type 2 diabetes")
	if m == nil || m.Stage.Stage != "Type 2" {
		t.Fatalf("expected Type 2, got %+v", m)
	}
}

func TestFindGuideline_UnknownStageFallsBack(t *testing.T) {
	s := loadDefault(t)
	m := s.FindGuideline("Heart Disease", "unknown")
	if m == nil {
		t.Fatal("expected a match")
	}
	if m.Stage.Stage != "Mild" {
		t.Errorf("expected first stage fallback Mild, got %q", m.Stage.Stage)
	}
}

func TestFindGuideline_UnknownDisease(t *testing.T) {
	s := loadDefault(t)
	if m := s.FindGuideline("Rare Syndrome", "Stage I"); m != nil {
		t.Errorf("expected nil for unknown disease, got %+v", m)
	}
}

func TestListHospitals_TypeEligibility(t *testing.T) {
	s := loadDefault(t)
	got := s.ListHospitals(HospitalFilter{HospitalType: "Oncology", HospitalPreference: "any"})
	if len(got) == 0 {
		t.Fatal("expected hospitals")
	}
	for _, h := range got {
		if h.Type != "Oncology" && h.Type != "Multi-specialty" {
			t.Errorf("hospital %s has ineligible type %q", h.ID, h.Type)
		}
	}
}

func TestListHospitals_GovernmentPreference(t *testing.T) {
	s := loadDefault(t)
	got := s.ListHospitals(HospitalFilter{HospitalType: "Cardiac", HospitalPreference: "government"})
	if len(got) == 0 {
		t.Fatal("expected hospitals")
	}
	for _, h := range got {
		if h.BudgetCategory != "Government" {
			t.Errorf("hospital %s not Government: %q", h.ID, h.BudgetCategory)
		}
	}
}

func TestListHospitals_PrivatePreference(t *testing.T) {
	s := loadDefault(t)
	got := s.ListHospitals(HospitalFilter{HospitalType: "Oncology", HospitalPreference: "private"})
	if len(got) == 0 {
		t.Fatal("expected hospitals")
	}
	for _, h := range got {
		if h.BudgetCategory == "Government" {
			t.Errorf("hospital %s is Government despite private preference", h.ID)
		}
	}
}

func TestListHospitals_LowBudgetExcludesPremium(t *testing.T) {
	s := loadDefault(t)
	got := s.ListHospitals(HospitalFilter{
		HospitalType:       "Oncology",
		HospitalPreference: "any",
		BudgetLimit:        floatPtr(50000),
	})
	if len(got) == 0 {
		t.Fatal("expected hospitals")
	}
	for _, h := range got {
		if h.BudgetCategory == "Premium" {
			t.Errorf("hospital %s is Premium despite 50k budget", h.ID)
		}
	}
}

func TestListHospitals_MidBudgetAllowsAllTiers(t *testing.T) {
	s := loadDefault(t)
	got := s.ListHospitals(HospitalFilter{
		HospitalType:       "Oncology",
		HospitalPreference: "any",
		BudgetLimit:        floatPtr(200000),
		PatientCity:        "Bangalore",
		LocationType:       "local",
	})
	tiers := map[string]bool{}
	for _, h := range got {
		tiers[h.BudgetCategory] = true
	}
	if !tiers["Premium"] {
		t.Error("200k budget should admit Premium hospitals")
	}
}

func TestListHospitals_RuralAnyForcesGovernment(t *testing.T) {
	s := loadDefault(t)
	for _, area := range []string{"rural", "remote"} {
		got := s.ListHospitals(HospitalFilter{
			HospitalType:       "Oncology",
			HospitalPreference: "any",
			PatientAreaType:    area,
			BudgetLimit:        floatPtr(900000),
		})
		if len(got) == 0 {
			t.Fatalf("area %s: expected hospitals", area)
		}
		for _, h := range got {
			if h.BudgetCategory != "Government" {
				t.Errorf("area %s: hospital %s not Government", area, h.ID)
			}
		}
	}
}

func TestListHospitals_RuralKeepsExplicitPreference(t *testing.T) {
	s := loadDefault(t)
	got := s.ListHospitals(HospitalFilter{
		HospitalType:       "Oncology",
		HospitalPreference: "private",
		PatientAreaType:    "rural",
	})
	for _, h := range got {
		if h.BudgetCategory == "Government" {
			t.Errorf("explicit private preference must survive rural override, got %s", h.ID)
		}
	}
}

func TestListHospitals_CityBoostAndCap(t *testing.T) {
	s := loadDefault(t)
	got := s.ListHospitals(HospitalFilter{
		HospitalType:       "Oncology",
		HospitalPreference: "any",
		PatientCity:        "Bangalore",
		LocationType:       "local",
	})
	if len(got) != 5 {
		t.Fatalf("expected capped list of 5, got %d", len(got))
	}
	if got[0].ID != "hcg_bangalore" || got[1].ID != "kidwai_bangalore" {
		t.Errorf("Bangalore hospitals should lead: %s, %s", got[0].ID, got[1].ID)
	}
}

func TestLocationScore(t *testing.T) {
	h := &hospital.Hospital{City: "Mumbai", State: "Maharashtra"}
	cases := []struct {
		city, locType string
		want          float64
	}{
		{"Mumbai", "local", 4.0},
		{"mumbai ", "national", 2.0},
		{"Maharashtra", "national", 1.0},
		{"Delhi", "local", 0.0},
		{"", "local", 0.0},
	}
	for _, tc := range cases {
		if got := locationScore(h, tc.city, tc.locType); got != tc.want {
			t.Errorf("locationScore(%q, %q) = %v, want %v", tc.city, tc.locType, got, tc.want)
		}
	}
}

func TestSearchGuidelines(t *testing.T) {
	s := loadDefault(t)
	results, err := s.SearchGuidelines(context.Background(), "Breast Cancer Stage II treatment", 2)
	if err != nil {
		t.Fatalf("SearchGuidelines: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !strings.Contains(results[0].Document.Text, "Breast Cancer") {
		t.Errorf("top result should concern Breast Cancer: %q", results[0].Document.Text)
	}
}

func TestSearchDocumentRendering(t *testing.T) {
	g := &Guideline{DiseaseType: "Breast Cancer", HospitalType: "Oncology", Specialist: "Oncologist"}
	st := StageEntry{
		Stage:                 "Stage I",
		Description:           "Small localized tumor.",
		RecommendedTreatments: []string{"Lumpectomy", "Radiation Therapy"},
		Timeline:              "2-4 months",
		Notes:                 "Early stage.",
		SurgeryRequired:       true,
	}
	if got := g.SearchDocumentID(st); got != "Breast_Cancer_Stage_I" {
		t.Errorf("document id = %q", got)
	}
	want := "Disease: Breast Cancer. Stage: Stage I. Description: Small localized tumor. " +
		"Treatments: Lumpectomy, Radiation Therapy. Timeline: 2-4 months. Notes: Early stage.."
	if got := g.SearchDocument(st); got != want {
		t.Errorf("document mismatch:\n got %q\nwant %q", got, want)
	}
	md := g.SearchMetadata(st)
	if md["surgery_required"] != "true" || md["specialist"] != "Oncologist" {
		t.Errorf("metadata mismatch: %+v", md)
	}
}
