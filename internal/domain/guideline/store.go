package guideline

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/careplan/careplan/internal/domain/hospital"
	"github.com/careplan/careplan/internal/platform/search"
)

//go:embed data/disease_guidelines.json
var embeddedGuidelines []byte

//go:embed data/hospital_data.json
var embeddedHospitals []byte

type guidelineFile struct {
	Diseases []Guideline `json:"diseases" yaml:"diseases"`
}

type hospitalFile struct {
	Hospitals []hospitalRecord `json:"hospitals" yaml:"hospitals"`
}

// hospitalRecord is the on-disk shape of a hospital. The dataset uses plain
// strings where the db model uses nullable pointers, so records are mapped
// rather than decoded straight into hospital.Hospital.
type hospitalRecord struct {
	ID               string   `json:"hospital_id" yaml:"hospital_id"`
	Name             string   `json:"name" yaml:"name"`
	Type             string   `json:"type" yaml:"type"`
	Location         string   `json:"location" yaml:"location"`
	City             string   `json:"city" yaml:"city"`
	State            string   `json:"state" yaml:"state"`
	Contact          string   `json:"contact" yaml:"contact"`
	Email            string   `json:"email" yaml:"email"`
	Accreditation    string   `json:"accreditation" yaml:"accreditation"`
	Rating           float64  `json:"rating" yaml:"rating"`
	BudgetCategory   string   `json:"budget_category" yaml:"budget_category"`
	AcceptsInsurance bool     `json:"accepts_insurance" yaml:"accepts_insurance"`
	Specializations  []string `json:"specializations" yaml:"specializations"`
	Summary          string   `json:"summary" yaml:"summary"`
}

func (r hospitalRecord) toModel() *hospital.Hospital {
	h := &hospital.Hospital{
		ID:               r.ID,
		Name:             r.Name,
		Type:             r.Type,
		Location:         r.Location,
		City:             r.City,
		State:            r.State,
		Rating:           r.Rating,
		BudgetCategory:   r.BudgetCategory,
		AcceptsInsurance: r.AcceptsInsurance,
		Specializations:  r.Specializations,
	}
	if r.Contact != "" {
		h.Contact = &r.Contact
	}
	if r.Email != "" {
		h.Email = &r.Email
	}
	if r.Accreditation != "" {
		h.Accreditation = &r.Accreditation
	}
	if r.Summary != "" {
		h.Summary = &r.Summary
	}
	return h
}

// HospitalFilter carries the inputs of a hospital listing. BudgetLimit nil
// means no stated budget.
type HospitalFilter struct {
	HospitalType       string
	BudgetLimit        *float64
	LocationType       string
	HospitalPreference string
	PatientCity        string
	PatientAreaType    string
}

// Store holds the disease guidelines and the hospital reference dataset,
// plus the search indexes built over their rendered documents. A Store is
// immutable after Load and safe for concurrent readers.
type Store struct {
	guidelines   []Guideline
	hospitals    []*hospital.Hospital
	guidelineIdx *search.Index
	hospitalIdx  *search.Index
}

// Load reads both datasets. Empty paths select the embedded defaults;
// non-empty paths are decoded as YAML when the extension is .yaml/.yml and
// as JSON otherwise.
func Load(guidelinesPath, hospitalsPath string) (*Store, error) {
	var gf guidelineFile
	if err := decodeSource(guidelinesPath, embeddedGuidelines, "disease_guidelines.json", &gf); err != nil {
		return nil, fmt.Errorf("load guidelines: %w", err)
	}
	if len(gf.Diseases) == 0 {
		return nil, fmt.Errorf("load guidelines: no diseases defined")
	}
	for _, g := range gf.Diseases {
		if len(g.Stages) == 0 {
			return nil, fmt.Errorf("load guidelines: disease %q has no stages", g.DiseaseType)
		}
	}

	var hf hospitalFile
	if err := decodeSource(hospitalsPath, embeddedHospitals, "hospital_data.json", &hf); err != nil {
		return nil, fmt.Errorf("load hospitals: %w", err)
	}
	if len(hf.Hospitals) == 0 {
		return nil, fmt.Errorf("load hospitals: no hospitals defined")
	}

	s := &Store{guidelines: gf.Diseases}
	for _, rec := range hf.Hospitals {
		if rec.ID == "" {
			return nil, fmt.Errorf("load hospitals: hospital %q has no hospital_id", rec.Name)
		}
		s.hospitals = append(s.hospitals, rec.toModel())
	}
	s.buildIndexes()
	return s, nil
}

func decodeSource(path string, embedded []byte, embeddedName string, v interface{}) error {
	raw, name := embedded, embeddedName
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		raw, name = b, path
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(raw, v)
	default:
		return json.Unmarshal(raw, v)
	}
}

func (s *Store) buildIndexes() {
	s.guidelineIdx = search.NewIndex()
	for i := range s.guidelines {
		g := &s.guidelines[i]
		for _, st := range g.Stages {
			s.guidelineIdx.Add(search.Document{
				ID:       g.SearchDocumentID(st),
				Text:     g.SearchDocument(st),
				Metadata: g.SearchMetadata(st),
			})
		}
	}
	s.hospitalIdx = search.NewIndex()
	for _, h := range s.hospitals {
		s.hospitalIdx.Add(search.Document{
			ID:       h.ID,
			Text:     h.SearchDocument(),
			Metadata: h.SearchMetadata(),
		})
	}
}

// Guidelines returns every loaded guideline.
func (s *Store) Guidelines() []Guideline { return s.guidelines }

// Hospitals returns the full hospital dataset in file order.
func (s *Store) Hospitals() []*hospital.Hospital { return s.hospitals }

// GuidelineIndex is the search index over rendered guideline documents.
func (s *Store) GuidelineIndex() *search.Index { return s.guidelineIdx }

// HospitalIndex is the search index over rendered hospital documents.
func (s *Store) HospitalIndex() *search.Index { return s.hospitalIdx }

// SearchGuidelines finds the k guideline documents closest to the query.
func (s *Store) SearchGuidelines(ctx context.Context, query string, k int) ([]search.Result, error) {
	return s.guidelineIdx.Search(ctx, query, k)
}

// FindGuideline resolves a disease and stage to a guideline match. Both
// matches are case-insensitive bidirectional substring tests, so partial
// input like "cancer" still lands on "Breast Cancer". When the disease
// matches but no stage does, the first stage entry stands in. Returns nil
// when no disease matches.
func (s *Store) FindGuideline(diseaseType, stage string) *Match {
	diseaseIn := strings.ToLower(diseaseType)
	stageIn := strings.ToLower(stage)
	for i := range s.guidelines {
		g := &s.guidelines[i]
		name := strings.ToLower(g.DiseaseType)
		if !strings.Contains(diseaseIn, name) && !strings.Contains(name, diseaseIn) {
			continue
		}
		for _, st := range g.Stages {
			label := strings.ToLower(st.Stage)
			if strings.Contains(stageIn, label) || strings.Contains(label, stageIn) {
				return &Match{DiseaseType: g.DiseaseType, HospitalType: g.HospitalType, Specialist: g.Specialist, Stage: st}
			}
		}
		return &Match{DiseaseType: g.DiseaseType, HospitalType: g.HospitalType, Specialist: g.Specialist, Stage: g.Stages[0]}
	}
	return nil
}

// ListHospitals filters the dataset by type and affordability, scores the
// survivors by proximity plus rating and returns at most five, best first.
// Ties keep dataset order.
func (s *Store) ListHospitals(f HospitalFilter) []*hospital.Hospital {
	pref := strings.ToLower(strings.TrimSpace(f.HospitalPreference))
	area := strings.ToLower(strings.TrimSpace(f.PatientAreaType))
	if (area == "rural" || area == "remote") && pref == "any" {
		// Affordability and access heuristic for patients outside cities.
		pref = "government"
	}
	allowed := allowedBudgets(pref, f.BudgetLimit)

	type scored struct {
		h     *hospital.Hospital
		score float64
	}
	var eligible []scored
	for _, h := range s.hospitals {
		if h.Type != f.HospitalType && h.Type != "Multi-specialty" {
			continue
		}
		if !allowed[h.BudgetCategory] {
			continue
		}
		eligible = append(eligible, scored{h: h, score: locationScore(h, f.PatientCity, f.LocationType) + h.Rating})
	}

	sort.SliceStable(eligible, func(a, b int) bool {
		return eligible[a].score > eligible[b].score
	})
	if len(eligible) > 5 {
		eligible = eligible[:5]
	}
	out := make([]*hospital.Hospital, len(eligible))
	for i, e := range eligible {
		out[i] = e.h
	}
	return out
}

func allowedBudgets(pref string, budgetLimit *float64) map[string]bool {
	switch pref {
	case "government":
		return map[string]bool{"Government": true}
	case "private":
		return map[string]bool{"Standard": true, "Premium": true}
	}
	if budgetLimit != nil {
		switch b := *budgetLimit; {
		case b < 100000:
			return map[string]bool{"Government": true, "Standard": true}
		case b < 500000:
			return map[string]bool{"Government": true, "Standard": true, "Premium": true}
		default:
			// Same set on both sides of the 5L mark today; the split stays
			// so the tiers can diverge without touching callers.
			return map[string]bool{"Government": true, "Standard": true, "Premium": true}
		}
	}
	return map[string]bool{"Government": true, "Standard": true, "Premium": true}
}

func locationScore(h *hospital.Hospital, patientCity, locationType string) float64 {
	city := strings.ToLower(strings.TrimSpace(patientCity))
	if city == "" {
		return 0
	}
	locPref := strings.ToLower(strings.TrimSpace(locationType))
	hospCity := strings.ToLower(strings.TrimSpace(h.City))
	hospState := strings.ToLower(strings.TrimSpace(h.State))

	cityMatch := hospCity != "" && (strings.Contains(hospCity, city) || strings.Contains(city, hospCity))
	switch {
	case cityMatch && locPref == "local":
		return 4.0
	case cityMatch:
		return 2.0
	case hospState != "" && (strings.Contains(hospState, city) || strings.Contains(city, hospState)):
		return 1.0
	}
	return 0
}
