package portfolio

// Candidate is one portfolio project offered to the client.
type Candidate struct {
	ID              int            `json:"id" yaml:"id" mapstructure:"id"`
	Title           string         `json:"title" yaml:"title" mapstructure:"title"`
	Score           float64        `json:"score" yaml:"score" mapstructure:"score"`
	Rationale       string         `json:"rationale" yaml:"rationale" mapstructure:"rationale"`
	Stack           []string       `json:"stack,omitempty" yaml:"stack" mapstructure:"stack"`
	EstimatedBudget *float64       `json:"estimated_budget,omitempty" yaml:"estimated_budget" mapstructure:"estimated_budget"`
	Metadata        map[string]any `json:"metadata,omitempty" yaml:"metadata" mapstructure:"metadata"`
}

// Seed returns the built-in catalog, already ranked.
func Seed() []Candidate {
	return []Candidate{
		{ID: 1, Title: "E-commerce básico", Score: 0.95, Rationale: "MVP de loja online com checkout"},
		{ID: 2, Title: "SaaS B2B (subscrição)", Score: 0.85, Rationale: "Plataforma com usuários corporativos"},
		{ID: 3, Title: "Marketplace simples", Score: 0.80, Rationale: "Multi-seller marketplace mínimo"},
	}
}
