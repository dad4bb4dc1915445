// Package translate converts agent records between the three shapes the
// registry speaks: the flexible registry entry, schema-validated AgentFacts,
// and OASF directory records. Converters are pure functions over a shared
// Translator that carries the taxonomy index and the AgentFacts validator;
// they perform no I/O and are safe for concurrent use.
package translate

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/nandahq/agentdir/internal/facts"
	"github.com/nandahq/agentdir/internal/taxonomy"
)

var (
	// ErrMissingIdentity is returned when an input record carries no usable
	// id or name under any accepted alias.
	ErrMissingIdentity = errors.New("record carries no usable id or name")

	// ErrMalformedInput is returned when raw input bytes cannot be decoded
	// into a JSON object.
	ErrMalformedInput = errors.New("input record is not a JSON object")
)

// Translator converts records between registry, AgentFacts, and OASF shapes.
// The zero value is not usable; construct with New.
type Translator struct {
	index     *taxonomy.Index
	validator *facts.Validator
	log       *zap.Logger
}

// New builds a Translator. The taxonomy index may be empty (capabilities then
// fall back to placeholder skills) but must not be nil. The validator is
// required: translation targets are meaningless without their schema.
func New(index *taxonomy.Index, validator *facts.Validator, log *zap.Logger) (*Translator, error) {
	if index == nil {
		index = taxonomy.NewIndex()
	}
	if validator == nil {
		return nil, errors.New("translate: validator is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Translator{index: index, validator: validator, log: log}, nil
}

// MatchCapability resolves a free-text capability against the taxonomy.
// Returns nil when no strategy matches.
func (t *Translator) MatchCapability(text string) *taxonomy.CapabilityMatch {
	return t.index.Match(text)
}

// Validate checks a record against the AgentFacts schema.
func (t *Translator) Validate(record any) (bool, []facts.ValidationError) {
	return t.validator.Validate(record)
}

// asObject normalizes raw translator input into a JSON object. Maps pass
// through; byte slices are decoded. Anything else is malformed.
func asObject(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case map[string]any:
		return v, nil
	case []byte:
		var entry map[string]any
		if err := json.Unmarshal(v, &entry); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		return entry, nil
	case json.RawMessage:
		return asObject([]byte(v))
	default:
		return nil, fmt.Errorf("%w: unsupported input type %T", ErrMalformedInput, raw)
	}
}

// firstString evaluates an ordered list of field aliases and returns the
// first non-empty string value found.
func firstString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := entry[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// stringify renders a scalar field value as a string, tolerating the numeric
// types JSON decoding produces.
func stringify(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

// capabilityNames extracts capability labels from a raw capabilities field:
// a list of strings, or objects carrying a name or id. Unusable entries are
// dropped.
func capabilityNames(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var names []string
	for _, item := range list {
		switch c := item.(type) {
		case string:
			if c != "" {
				names = append(names, c)
			}
		case map[string]any:
			if name := firstString(c, "name", "id"); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// stringList keeps the string members of a raw JSON list, dropping the rest.
func stringList(raw any) []string {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
