package facts

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(filepath.Join("..", "..", "schemas", "agentfacts_schema.json"))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return v
}

func validRecord() map[string]any {
	return map[string]any{
		"id":          "agent-123",
		"agent_name":  "agent-123",
		"label":       "ExampleAgent",
		"description": "Does example things",
		"version":     "1.0.0",
		"provider":    map[string]any{"name": "ExampleAgent", "url": "https://example.com"},
		"endpoints":   map[string]any{"static": []any{"https://api.example.com/v1/invoke"}},
		"capabilities": map[string]any{
			"modalities":     []any{"text"},
			"authentication": map[string]any{"methods": []any{"none"}},
		},
		"skills": []any{
			map[string]any{
				"id":          "skill:text",
				"description": "Capability skill for text",
				"inputModes":  []any{"text"},
				"outputModes": []any{"text"},
			},
		},
	}
}

func TestValidateValidRecord(t *testing.T) {
	v := newTestValidator(t)
	ok, errs := v.Validate(validRecord())
	if !ok {
		t.Fatalf("expected valid record, got errors: %v", errs)
	}
}

func TestValidateTypedRecord(t *testing.T) {
	v := newTestValidator(t)
	rec := &Record{
		ID: "agent-1", AgentName: "agent-1", Label: "A", Description: "", Version: "1.0.0",
		Provider:  Provider{Name: "A", URL: "https://example.com"},
		Endpoints: Endpoints{Static: []string{"https://api.example.com"}},
		Capabilities: Capabilities{
			Modalities:     []string{"text"},
			Authentication: Authentication{Methods: []string{"none"}},
		},
		Skills: []Skill{{ID: "skill:text", Description: "d", InputModes: []string{"text"}, OutputModes: []string{"text"}}},
	}
	if ok, errs := v.Validate(rec); !ok {
		t.Fatalf("typed record should validate, got %v", errs)
	}
}

func TestValidateMissingRequiredSkillField(t *testing.T) {
	v := newTestValidator(t)
	rec := validRecord()
	delete(rec["skills"].([]any)[0].(map[string]any), "inputModes")

	ok, errs := v.Validate(rec)
	if ok {
		t.Fatal("expected validation failure")
	}
	found := false
	for _, e := range errs {
		if e.Rule == "required" && reflect.DeepEqual(e.Path, []any{"skills", 0}) {
			found = true
		}
	}
	if !found {
		t.Errorf("want a required error at [skills 0], got %v", errs)
	}
}

func TestValidateNegativeLatencyBudget(t *testing.T) {
	v := newTestValidator(t)
	rec := validRecord()
	rec["skills"].([]any)[0].(map[string]any)["latencyBudgetMs"] = -5

	ok, errs := v.Validate(rec)
	if ok {
		t.Fatal("expected validation failure")
	}
	found := false
	for _, e := range errs {
		if e.Rule == "minimum" {
			found = true
		}
	}
	if !found {
		t.Errorf("want a minimum error, got %v", errs)
	}
}

func TestValidateErrorsSortedByPath(t *testing.T) {
	v := newTestValidator(t)
	rec := validRecord()
	delete(rec, "version")
	rec["endpoints"].(map[string]any)["static"] = []any{42}
	delete(rec["skills"].([]any)[0].(map[string]any), "outputModes")

	ok, errs := v.Validate(rec)
	if ok {
		t.Fatal("expected validation failure")
	}
	for i := 1; i < len(errs); i++ {
		if pathLess(errs[i].Path, errs[i-1].Path) {
			t.Errorf("errors out of order at %d: %v before %v", i, errs[i-1].Path, errs[i].Path)
		}
	}
	// Same input, same output.
	_, again := v.Validate(rec)
	if !reflect.DeepEqual(paths(errs), paths(again)) {
		t.Errorf("validation order not reproducible: %v vs %v", paths(errs), paths(again))
	}
}

func TestValidateRawBytes(t *testing.T) {
	v := newTestValidator(t)
	raw, _ := json.Marshal(validRecord())
	if ok, errs := v.Validate(raw); !ok {
		t.Fatalf("raw JSON record should validate, got %v", errs)
	}

	ok, errs := v.Validate([]byte("{not json"))
	if ok || len(errs) == 0 || errs[0].Rule != "malformed" {
		t.Errorf("unparsable bytes: ok=%v errs=%v", ok, errs)
	}
}

func TestNewValidatorMissingSchema(t *testing.T) {
	_, err := NewValidator(filepath.Join("testdata", "no-such-schema.json"))
	if !errors.Is(err, ErrSchemaLoad) {
		t.Fatalf("want ErrSchemaLoad, got %v", err)
	}
}

func paths(errs []ValidationError) [][]any {
	out := make([][]any, len(errs))
	for i, e := range errs {
		out[i] = e.Path
	}
	return out
}
