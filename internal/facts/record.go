// Package facts holds the AgentFacts record shape and its schema validator.
// Records are value objects: translators build a fresh one per call and
// nothing in this package mutates them afterwards.
package facts

// Provider identifies who operates an agent.
type Provider struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Endpoints lists the static invocation URLs of an agent.
type Endpoints struct {
	Static []string `json:"static"`
}

// Authentication describes accepted auth methods.
type Authentication struct {
	Methods []string `json:"methods"`
}

// Capabilities is the coarse capability block required by the schema.
type Capabilities struct {
	Modalities     []string       `json:"modalities"`
	Authentication Authentication `json:"authentication"`
}

// Skill is one schema-validated skill entry. InputModes and OutputModes must
// be non-empty; LatencyBudgetMs, when present, must be >= 0.
type Skill struct {
	ID              string   `json:"id"`
	Description     string   `json:"description"`
	InputModes      []string `json:"inputModes"`
	OutputModes     []string `json:"outputModes"`
	LatencyBudgetMs *int64   `json:"latencyBudgetMs,omitempty"`
}

// Record is a complete AgentFacts document.
type Record struct {
	ID           string       `json:"id"`
	AgentName    string       `json:"agent_name"`
	Label        string       `json:"label"`
	Description  string       `json:"description"`
	Version      string       `json:"version"`
	Provider     Provider     `json:"provider"`
	Endpoints    Endpoints    `json:"endpoints"`
	Capabilities Capabilities `json:"capabilities"`
	Skills       []Skill      `json:"skills"`
}
