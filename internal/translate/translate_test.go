package translate

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nandahq/agentdir/internal/facts"
	"github.com/nandahq/agentdir/internal/oasf"
	"github.com/nandahq/agentdir/internal/taxonomy"
)

func newTestTranslator(t *testing.T) *Translator {
	t.Helper()
	index, _ := taxonomy.Load(filepath.Join("..", "taxonomy", "testdata", "catalog"))
	validator, err := facts.NewValidator(filepath.Join("..", "..", "schemas", "agentfacts_schema.json"))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	tr, err := New(index, validator, nil)
	if err != nil {
		t.Fatalf("new translator: %v", err)
	}
	return tr
}

func TestToAgentFactsExample(t *testing.T) {
	tr := newTestTranslator(t)
	rec, err := tr.ToAgentFacts(map[string]any{
		"id":           "agent-123",
		"capabilities": []any{"text", "math"},
		"endpoints":    []any{"https://api.example.com/v1/invoke"},
	})
	if err != nil {
		t.Fatalf("ToAgentFacts: %v", err)
	}
	if rec.ID != "agent-123" || rec.AgentName != "agent-123" {
		t.Errorf("identity = %q / %q", rec.ID, rec.AgentName)
	}
	if !reflect.DeepEqual(rec.Endpoints.Static, []string{"https://api.example.com/v1/invoke"}) {
		t.Errorf("endpoints = %v", rec.Endpoints.Static)
	}
	if len(rec.Skills) == 0 {
		t.Fatal("skills must be non-empty")
	}
	if ok, errs := tr.Validate(rec); !ok {
		t.Errorf("translated record should validate, got %v", errs)
	}
}

func TestToAgentFactsAlwaysHasSkills(t *testing.T) {
	tr := newTestTranslator(t)
	rec, err := tr.ToAgentFacts(map[string]any{"agent_id": "bare"})
	if err != nil {
		t.Fatalf("ToAgentFacts: %v", err)
	}
	// The defaulted "text" modality caption-matches the text_classification
	// leaf, so the fallback skill is a mapped one, not a placeholder.
	if len(rec.Skills) != 1 || rec.Skills[0].ID != "text_classification" {
		t.Errorf("fallback skills = %+v", rec.Skills)
	}
	if ok, errs := tr.Validate(rec); !ok {
		t.Errorf("fallback record should validate, got %v", errs)
	}
}

func TestToAgentFactsPlaceholderWithoutTaxonomy(t *testing.T) {
	validator, err := facts.NewValidator(filepath.Join("..", "..", "schemas", "agentfacts_schema.json"))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	tr, err := New(taxonomy.NewIndex(), validator, nil)
	if err != nil {
		t.Fatalf("new translator: %v", err)
	}

	rec, err := tr.ToAgentFacts(map[string]any{"agent_id": "bare"})
	if err != nil {
		t.Fatalf("ToAgentFacts: %v", err)
	}
	if len(rec.Skills) != 1 || rec.Skills[0].ID != "skill:text" {
		t.Errorf("placeholder skills = %+v", rec.Skills)
	}
	if ok, errs := tr.Validate(rec); !ok {
		t.Errorf("placeholder record should validate, got %v", errs)
	}
}

func TestToAgentFactsMatchedSkill(t *testing.T) {
	tr := newTestTranslator(t)
	rec, err := tr.ToAgentFacts(map[string]any{
		"id":           "classifier-1",
		"capabilities": []any{"text classification"},
	})
	if err != nil {
		t.Fatalf("ToAgentFacts: %v", err)
	}
	if rec.Skills[0].ID != "text_classification" {
		t.Errorf("skill id = %q", rec.Skills[0].ID)
	}
}

func TestToAgentFactsDeduplicatesVariants(t *testing.T) {
	tr := newTestTranslator(t)
	rec, err := tr.ToAgentFacts(map[string]any{
		"id":           "dup-agent",
		"capabilities": []any{"text_classification", "text-classification", "Text Classification"},
	})
	if err != nil {
		t.Fatalf("ToAgentFacts: %v", err)
	}
	if len(rec.Skills) != 1 || rec.Skills[0].ID != "text_classification" {
		t.Errorf("variants should collapse to one skill, got %+v", rec.Skills)
	}
}

func TestToAgentFactsProviderCoercion(t *testing.T) {
	tr := newTestTranslator(t)

	rec, err := tr.ToAgentFacts(map[string]any{"id": "a1", "provider": "Acme"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Provider.Name != "Acme" || rec.Provider.URL != "https://example.com" {
		t.Errorf("string provider = %+v", rec.Provider)
	}

	rec, err = tr.ToAgentFacts(map[string]any{
		"id":       "a2",
		"provider": map[string]any{"name": "Acme", "url": "https://acme.example"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Provider.URL != "https://acme.example" {
		t.Errorf("object provider = %+v", rec.Provider)
	}

	rec, err = tr.ToAgentFacts(map[string]any{"id": "a3", "label": "Third"})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Provider.Name != "Third" {
		t.Errorf("defaulted provider = %+v", rec.Provider)
	}
}

func TestToAgentFactsEndpointShapes(t *testing.T) {
	tr := newTestTranslator(t)

	rec, _ := tr.ToAgentFacts(map[string]any{"id": "e1", "endpoint": "https://one.example"})
	if !reflect.DeepEqual(rec.Endpoints.Static, []string{"https://one.example"}) {
		t.Errorf("string endpoint = %v", rec.Endpoints.Static)
	}

	rec, _ = tr.ToAgentFacts(map[string]any{"id": "e2", "endpoints": []any{"https://a", 7, "https://b"}})
	if !reflect.DeepEqual(rec.Endpoints.Static, []string{"https://a", "https://b"}) {
		t.Errorf("mixed endpoint list = %v", rec.Endpoints.Static)
	}

	rec, _ = tr.ToAgentFacts(map[string]any{"id": "e3"})
	if rec.Endpoints.Static == nil || len(rec.Endpoints.Static) != 0 {
		t.Errorf("absent endpoints = %v", rec.Endpoints.Static)
	}
}

func TestToAgentFactsMissingIdentity(t *testing.T) {
	tr := newTestTranslator(t)
	if _, err := tr.ToAgentFacts(map[string]any{"description": "nameless"}); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("want ErrMissingIdentity, got %v", err)
	}
}

func TestToAgentFactsMalformedBytes(t *testing.T) {
	tr := newTestTranslator(t)
	if _, err := tr.ToAgentFacts([]byte("{broken")); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("want ErrMalformedInput, got %v", err)
	}
	if _, err := tr.ToAgentFacts(42); !errors.Is(err, ErrMalformedInput) {
		t.Fatalf("want ErrMalformedInput for non-object input, got %v", err)
	}
}

func TestRegistryRoundTripLossy(t *testing.T) {
	tr := newTestTranslator(t)
	in := map[string]any{
		"id":           "agent-rt",
		"name":         "RoundTrip",
		"description":  "round trip agent",
		"version":      "2.1.0",
		"capabilities": []any{"chat", "search"},
		"endpoints":    []any{"https://api.example.com/v1/invoke"},
	}
	rec, err := tr.ToAgentFacts(in)
	if err != nil {
		t.Fatal(err)
	}
	out := tr.ToRegistryEntry(rec)

	if out["id"] != "agent-rt" {
		t.Errorf("id = %v", out["id"])
	}
	if !reflect.DeepEqual(out["capabilities"], []string{"chat", "search"}) {
		t.Errorf("capabilities = %v", out["capabilities"])
	}
	if !reflect.DeepEqual(out["endpoints"], []string{"https://api.example.com/v1/invoke"}) {
		t.Errorf("endpoints = %v", out["endpoints"])
	}
	if out["version"] != "2.1.0" || out["description"] != "round trip agent" {
		t.Errorf("version/description = %v / %v", out["version"], out["description"])
	}
}

func TestToOASFRecord(t *testing.T) {
	tr := newTestTranslator(t)
	rec, err := tr.ToOASFRecord(map[string]any{
		"agent_id":     "org/agents/helper:v2",
		"capabilities": []any{"chat", "chat assistant", "semantic search"},
		"tags":         []any{"demo"},
		"agent_url":    "https://github.com/org/helper",
		"api_url":      "cmd://npx?args=-y helper-server",
		"last_update":  "2026-08-27T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("ToOASFRecord: %v", err)
	}
	if rec.Name != "org/agents/helper" || rec.Version != "v2" {
		t.Errorf("identity = %q %q", rec.Name, rec.Version)
	}
	if rec.CreatedAt != "2026-08-27T10:00:00Z" {
		t.Errorf("created_at = %q", rec.CreatedAt)
	}
	// Both chat capabilities map to the same leaf and must collapse.
	if len(rec.Skills) != 2 {
		t.Fatalf("skills = %+v", rec.Skills)
	}
	if rec.Skills[0].SkillID != "natural_language_generation" || rec.Skills[1].SkillID != "information_retrieval_synthesis" {
		t.Errorf("skill ids = %q, %q", rec.Skills[0].SkillID, rec.Skills[1].SkillID)
	}
	if rec.Skills[0].CategoryName != "Natural Language Processing" {
		t.Errorf("category = %q", rec.Skills[0].CategoryName)
	}
	if len(rec.Locators) != 2 || rec.Locators[0].Type != oasf.LocatorBridge || rec.Locators[1].Type != oasf.LocatorAPI {
		t.Errorf("locators = %+v", rec.Locators)
	}
	if len(rec.Extensions) != 1 || rec.Extensions[0].Name != oasf.MCPExtensionName {
		t.Errorf("extensions = %+v", rec.Extensions)
	}
	if rec.Description == "" {
		t.Error("description must not be empty")
	}
}

func TestToOASFRecordMissingIdentity(t *testing.T) {
	tr := newTestTranslator(t)
	if _, err := tr.ToOASFRecord(map[string]any{"capabilities": []any{"chat"}}); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("want ErrMissingIdentity, got %v", err)
	}
}

func TestToNandaEntry(t *testing.T) {
	tr := newTestTranslator(t)
	rec := &oasf.Record{
		Name:          "helper",
		SchemaVersion: "0.3.1",
		Version:       "v2",
		Description:   "A helper agent",
		CreatedAt:     "2026-08-27T10:00:00Z",
		Skills: []oasf.SkillRef{
			{Name: "natural_language_processing/text_classification"},
			{Name: "text_classification"},
			{Name: "custom/unknown_skill"},
		},
		Locators: []oasf.Locator{
			{Type: "source_code", URL: "https://github.com/org/helper"},
			{Type: "api-url", URL: "https://api.example.com"},
		},
	}
	entry := tr.ToNandaEntry(rec, "agntcy")

	if entry["agent_id"] != "@agntcy:helper" {
		t.Errorf("agent_id = %v", entry["agent_id"])
	}
	if entry["agent_url"] != "https://github.com/org/helper" || entry["api_url"] != "https://api.example.com" {
		t.Errorf("urls = %v / %v", entry["agent_url"], entry["api_url"])
	}
	caps := entry["capabilities"].([]any)
	if len(caps) != 2 {
		t.Fatalf("capabilities should dedupe to 2, got %v", caps)
	}
	match, ok := caps[0].(*taxonomy.CapabilityMatch)
	if !ok || match.SkillID != "text_classification" {
		t.Errorf("first capability = %#v", caps[0])
	}
	if caps[1] != "unknown_skill" {
		t.Errorf("unmapped skill should fall back to its leaf name, got %v", caps[1])
	}
	if entry["source_schema"] != "oasf" || entry["schema_version"] != "nanda-v1" {
		t.Errorf("schema tags = %v / %v", entry["source_schema"], entry["schema_version"])
	}
	if entry["oasf_schema_version"] != "0.3.1" {
		t.Errorf("oasf_schema_version = %v", entry["oasf_schema_version"])
	}
}

func TestToNandaEntryAPIURLFromExtension(t *testing.T) {
	tr := newTestTranslator(t)
	rec := &oasf.Record{
		Name:    "cmd-agent",
		Version: "v1",
		Locators: []oasf.Locator{
			{Type: "source_code", URL: "https://github.com/org/cmd-agent"},
		},
		Extensions: []oasf.Extension{*oasf.BuildMCPExtension("cmd://uvx?args=server-kit")},
	}
	entry := tr.ToNandaEntry(rec, "agntcy")
	if entry["api_url"] != "cmd://uvx?args=server-kit" {
		t.Errorf("api_url = %v", entry["api_url"])
	}
}

func TestDeriveRegistration(t *testing.T) {
	tr := newTestTranslator(t)
	rec := &oasf.Record{
		Name:    "org/agents/helper",
		Version: "v2",
		Locators: []oasf.Locator{
			{Type: "source_code", URL: "https://github.com/org/helper"},
			{Type: "docker-image", URL: "docker://org/helper:v2"},
		},
		Extensions: []oasf.Extension{*oasf.BuildMCPExtension("cmd://npx?args=-y helper-server")},
	}
	reg := tr.DeriveRegistration(rec)
	if reg.AgentID != "org-agents-helper:v2" {
		t.Errorf("agent id = %q", reg.AgentID)
	}
	if reg.AgentURL != "docker://org/helper:v2" {
		t.Errorf("agent url = %q", reg.AgentURL)
	}
	if reg.APIURL != "cmd://npx?args=-y helper-server" {
		t.Errorf("api url = %q", reg.APIURL)
	}
}

func TestDeriveRegistrationDefaults(t *testing.T) {
	tr := newTestTranslator(t)
	reg := tr.DeriveRegistration(&oasf.Record{})
	if reg.AgentID != "unnamed:v0" {
		t.Errorf("agent id = %q", reg.AgentID)
	}
	if reg.AgentURL != "placeholder://unnamed:v0" {
		t.Errorf("agent url = %q", reg.AgentURL)
	}
	if reg.APIURL != "" {
		t.Errorf("api url = %q", reg.APIURL)
	}
}

func TestMatchCapabilityUnknown(t *testing.T) {
	tr := newTestTranslator(t)
	if m := tr.MatchCapability("incomprehensible_capability_xyz"); m != nil {
		t.Errorf("unknown capability should not match, got %+v", m)
	}
}
