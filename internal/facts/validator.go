package facts

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// ValidationError locates one failed constraint. Path is the ordered
// sequence of object keys and array indices leading to the offending node;
// Rule names the constraint that failed (required, type, minimum, ...).
type ValidationError struct {
	Path    []any  `json:"path"`
	Message string `json:"message"`
	Rule    string `json:"rule"`
	Value   any    `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%v: %s (%s)", e.Path, e.Message, e.Rule)
}

// Validator checks candidate records against a schema loaded once at
// construction. It is immutable and safe for concurrent use.
type Validator struct {
	schema *Schema
}

// NewValidator loads the schema at path and builds a validator. A missing or
// unparsable schema is fatal (ErrSchemaLoad).
func NewValidator(path string) (*Validator, error) {
	schema, err := LoadSchema(path)
	if err != nil {
		return nil, err
	}
	return &Validator{schema: schema}, nil
}

// NewValidatorWithSchema wraps an already-parsed schema.
func NewValidatorWithSchema(schema *Schema) *Validator {
	return &Validator{schema: schema}
}

// Validate checks record against the schema. Validation failures are data,
// never errors: the verdict is (false, errors) with errors sorted by path so
// output is reproducible across runs.
//
// record may be a *Record, a map, or raw JSON bytes; anything else that
// marshals to a JSON object works too.
func (v *Validator) Validate(record any) (bool, []ValidationError) {
	value, err := toJSONValue(record)
	if err != nil {
		return false, []ValidationError{{
			Path:    []any{},
			Message: fmt.Sprintf("record is not valid JSON: %v", err),
			Rule:    "malformed",
		}}
	}

	var errs []ValidationError
	validateValue(value, v.schema, nil, &errs)
	sort.SliceStable(errs, func(i, j int) bool { return pathLess(errs[i].Path, errs[j].Path) })
	return len(errs) == 0, errs
}

// toJSONValue normalizes arbitrary input into the generic JSON value tree.
func toJSONValue(record any) (any, error) {
	raw, ok := record.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(record)
		if err != nil {
			return nil, err
		}
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return value, nil
}

func validateValue(value any, schema *Schema, path []any, errs *[]ValidationError) {
	if schema == nil {
		return
	}

	if len(schema.Enum) > 0 && !enumContains(schema.Enum, value) {
		report(errs, path, fmt.Sprintf("value must be one of %v", schema.Enum), "enum", value)
	}

	switch schema.Type {
	case "object":
		validateObject(value, schema, path, errs)
	case "array":
		validateArray(value, schema, path, errs)
	case "string":
		validateString(value, schema, path, errs)
	case "number", "integer":
		validateNumber(value, schema, path, errs)
	case "boolean":
		if _, ok := value.(bool); !ok {
			report(errs, path, fmt.Sprintf("expected boolean, got %s", jsonTypeName(value)), "type", value)
		}
	}
}

func validateObject(value any, schema *Schema, path []any, errs *[]ValidationError) {
	obj, ok := value.(map[string]any)
	if !ok {
		report(errs, path, fmt.Sprintf("expected object, got %s", jsonTypeName(value)), "type", value)
		return
	}

	// Missing required properties are reported at the object's own path,
	// matching the addressing convention of the schema tooling this format
	// originated with.
	for _, req := range schema.Required {
		if _, present := obj[req]; !present {
			report(errs, path, fmt.Sprintf("%q is a required property", req), "required", obj)
		}
	}

	for name, propSchema := range schema.Properties {
		propValue, present := obj[name]
		if !present {
			continue
		}
		validateValue(propValue, propSchema, appendPath(path, name), errs)
	}
}

func validateArray(value any, schema *Schema, path []any, errs *[]ValidationError) {
	arr, ok := value.([]any)
	if !ok {
		report(errs, path, fmt.Sprintf("expected array, got %s", jsonTypeName(value)), "type", value)
		return
	}
	if schema.MinItems != nil && len(arr) < *schema.MinItems {
		report(errs, path, fmt.Sprintf("array has %d items, minimum is %d", len(arr), *schema.MinItems), "minItems", arr)
	}
	if schema.Items != nil {
		for i, item := range arr {
			validateValue(item, schema.Items, appendPath(path, i), errs)
		}
	}
}

func validateString(value any, schema *Schema, path []any, errs *[]ValidationError) {
	str, ok := value.(string)
	if !ok {
		report(errs, path, fmt.Sprintf("expected string, got %s", jsonTypeName(value)), "type", value)
		return
	}
	if schema.MinLength != nil && len(str) < *schema.MinLength {
		report(errs, path, fmt.Sprintf("string length %d is less than minimum %d", len(str), *schema.MinLength), "minLength", str)
	}
}

func validateNumber(value any, schema *Schema, path []any, errs *[]ValidationError) {
	num, ok := value.(float64)
	if !ok {
		report(errs, path, fmt.Sprintf("expected %s, got %s", schema.Type, jsonTypeName(value)), "type", value)
		return
	}
	if schema.Type == "integer" && num != math.Trunc(num) {
		report(errs, path, fmt.Sprintf("expected integer, got %v", num), "type", value)
		return
	}
	if schema.Minimum != nil && num < *schema.Minimum {
		report(errs, path, fmt.Sprintf("value %v is less than minimum %v", num, *schema.Minimum), "minimum", value)
	}
	if schema.Maximum != nil && num > *schema.Maximum {
		report(errs, path, fmt.Sprintf("value %v exceeds maximum %v", num, *schema.Maximum), "maximum", value)
	}
}

func report(errs *[]ValidationError, path []any, message, rule string, value any) {
	// Copy the path: appendPath reuses backing arrays across siblings.
	p := make([]any, len(path))
	copy(p, path)
	*errs = append(*errs, ValidationError{Path: p, Message: message, Rule: rule, Value: value})
}

func appendPath(path []any, segment any) []any {
	out := make([]any, len(path), len(path)+1)
	copy(out, path)
	return append(out, segment)
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if jsonEqual(e, value) {
			return true
		}
	}
	return false
}

func jsonEqual(a, b any) bool {
	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	return string(aj) == string(bj)
}

func jsonTypeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", value)
	}
}

// pathLess orders validation errors: element-wise comparison, indices before
// and after keys by natural ordering, shorter paths first on ties.
func pathLess(a, b []any) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		cmp := segmentCompare(a[i], b[i])
		if cmp != 0 {
			return cmp < 0
		}
	}
	return len(a) < len(b)
}

func segmentCompare(a, b any) int {
	ai, aIsInt := a.(int)
	bi, bIsInt := b.(int)
	switch {
	case aIsInt && bIsInt:
		return ai - bi
	case aIsInt:
		return -1
	case bIsInt:
		return 1
	}
	as := fmt.Sprint(a)
	bs := fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
