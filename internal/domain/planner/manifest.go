package planner

// ManifestStep is one delegated stage of the execution-plan manifest.
type ManifestStep struct {
	Step  int    `json:"step"`
	Agent string `json:"agent"`
	Task  string `json:"task"`
}

// Manifest is the fixed six-step execution plan shown to the caller after
// goal decomposition. The step list never varies; only the goal differs
// between runs.
type Manifest struct {
	Goal       string         `json:"goal"`
	Agents     []ManifestStep `json:"agents"`
	MaxRetries int            `json:"max_retries"`
	Status     string         `json:"status"`
}

// subtaskList is the fixed decomposition of any treatment-planning goal.
func subtaskList() []string {
	return []string{
		"1. Identify disease type from user goal",
		"2. Generate medical questions for data collection",
		"3. Collect patient medical history and responses",
		"4. Check medical constraints (budget, location, surgery)",
		"5. Validate data completeness",
		"6. Analyse medical profile and apply decision logic",
		"7. Suggest appropriate treatment type",
		"8. Recommend suitable hospitals",
		"9. Generate treatment timeline",
		"10. Add medical disclaimer and explanation",
		"11. Prepare final structured recommendation",
	}
}

func buildManifest(goal string) *Manifest {
	return &Manifest{
		Goal: goal,
		Agents: []ManifestStep{
			{Step: 1, Agent: "QuestionService", Task: "Generate & collect medical questions"},
			{Step: 2, Agent: "ValidationEngine", Task: "Validate data completeness (loop until complete)"},
			{Step: 3, Agent: "MedicalDataService", Task: "Store validated medical profile in PostgreSQL"},
			{Step: 4, Agent: "DecisionEngine", Task: "Analyse profile + apply decision logic (JSON + ChromaDB + Gemini)"},
			{Step: 5, Agent: "RecommendationEngine", Task: "Generate treatment plan + rank hospitals"},
			{Step: 6, Agent: "ExplanationEngine", Task: "Format final output + add disclaimer"},
		},
		MaxRetries: MaxRetryLoops,
		Status:     "planned",
	}
}
