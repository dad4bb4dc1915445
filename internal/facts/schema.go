package facts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrSchemaLoad is returned when the AgentFacts schema file is missing or
// unparsable. Validation without a schema is meaningless, so this is the one
// failure the translation core treats as fatal at construction time.
var ErrSchemaLoad = errors.New("agentfacts schema load failed")

// DefaultSchemaPath is where the service ships its AgentFacts schema.
const DefaultSchemaPath = "schemas/agentfacts_schema.json"

// Schema is the declarative constraint subset the AgentFacts document uses.
// Unknown schema keywords are ignored on load.
type Schema struct {
	Type       string             `json:"type,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
	Items      *Schema            `json:"items,omitempty"`
	Enum       []any              `json:"enum,omitempty"`
	Minimum    *float64           `json:"minimum,omitempty"`
	Maximum    *float64           `json:"maximum,omitempty"`
	MinItems   *int               `json:"minItems,omitempty"`
	MinLength  *int               `json:"minLength,omitempty"`
}

// LoadSchema reads and parses a schema document from disk.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSchemaLoad, path, err)
	}
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrSchemaLoad, path, err)
	}
	return &s, nil
}
