package translate

import (
	"fmt"
	"strings"
	"time"

	"github.com/nandahq/agentdir/internal/oasf"
)

// Registration is the minimal payload needed to register an imported OASF
// record with the local registry.
type Registration struct {
	AgentID  string `json:"agent_id"`
	AgentURL string `json:"agent_url"`
	APIURL   string `json:"api_url,omitempty"`
}

// ToOASFRecord converts a registry entry into an OASF directory record.
// The entry's agent_id splits into name and version on the last colon;
// capabilities are resolved through the taxonomy into qualified skill
// payloads, deduplicated by skill id. A cmd:// api_url becomes a runtime/mcp
// extension so command-launched agents survive the export.
func (t *Translator) ToOASFRecord(raw any) (*oasf.Record, error) {
	entry, err := asObject(raw)
	if err != nil {
		return nil, fmt.Errorf("to oasf record: %w", err)
	}

	agentID := firstString(entry, "agent_id", "id", "name")
	if agentID == "" {
		return nil, fmt.Errorf("to oasf record: %w", ErrMissingIdentity)
	}
	name, version := oasf.ParseAgentIdentifier(agentID)

	createdAt := firstString(entry, "last_update", "last_updated", "created_at")
	if createdAt == "" {
		createdAt = time.Now().UTC().Format(time.RFC3339)
	}

	capabilities := capabilityNames(entry["capabilities"])
	skills := make([]oasf.SkillRef, 0, len(capabilities))
	seen := make(map[string]bool, len(capabilities))
	for _, capability := range capabilities {
		match := t.index.Match(capability)
		if match == nil || seen[match.SkillID] {
			continue
		}
		seen[match.SkillID] = true
		skills = append(skills, oasf.SkillRef{
			SkillID:      match.SkillID,
			CategoryName: match.CategoryName,
			CategoryUID:  match.CategoryUID,
			ClassName:    match.ClassName,
			ClassUID:     match.ClassUID,
		})
	}

	rec := &oasf.Record{
		Name:        name,
		Version:     version,
		Description: exportDescription(entry, agentID, capabilities),
		Authors:     []string{},
		CreatedAt:   createdAt,
		Skills:      skills,
		Locators:    exportLocators(entry),
		Extensions:  []oasf.Extension{},
		Signature:   map[string]any{},
	}
	if ext := oasf.BuildMCPExtension(firstString(entry, "api_url")); ext != nil {
		rec.Extensions = append(rec.Extensions, *ext)
	}
	return rec, nil
}

// ToNandaEntry translates an OASF record into a Nanda federation entry.
// The agent_id is namespaced with the source registry id. Skills that map
// into the taxonomy contribute full capability payloads; unmapped skills
// fall back to their bare leaf name. Either way duplicates are dropped.
func (t *Translator) ToNandaEntry(rec *oasf.Record, registryID string) map[string]any {
	agentURL, apiURL := oasf.ClassifyLocators(rec.Locators)
	if apiURL == "" {
		apiURL = oasf.ExtractMCPCommandURL(rec.Extensions)
	}

	capabilities := make([]any, 0, len(rec.Skills))
	seen := make(map[string]bool, len(rec.Skills))
	for _, skill := range rec.Skills {
		name := skill.Name
		if name == "" {
			name = skill.SkillID
		}
		if name == "" {
			continue
		}
		leaf := oasf.LeafName(name)
		if match := t.index.Match(leaf); match != nil {
			if !seen[match.SkillID] {
				seen[match.SkillID] = true
				capabilities = append(capabilities, match)
			}
			continue
		}
		if !seen[leaf] {
			seen[leaf] = true
			capabilities = append(capabilities, leaf)
		}
	}

	lastUpdated := rec.CreatedAt
	if lastUpdated == "" {
		lastUpdated = time.Now().UTC().Format(time.RFC3339)
	}
	version := rec.Version
	if version == "" {
		version = oasf.DefaultVersion
	}
	oasfSchema := rec.SchemaVersion
	if oasfSchema == "" {
		oasfSchema = "unknown"
	}
	return map[string]any{
		"agent_id":            "@" + registryID + ":" + rec.Name,
		"registry_id":         registryID,
		"agent_name":          rec.Name,
		"version":             version,
		"description":         rec.Description,
		"capabilities":        capabilities,
		"agent_url":           agentURL,
		"api_url":             apiURL,
		"last_updated":        lastUpdated,
		"schema_version":      "nanda-v1",
		"source_schema":       "oasf",
		"oasf_schema_version": oasfSchema,
	}
}

// DeriveRegistration extracts the registration payload for an imported OASF
// record: a path-safe agent id, the preferred locator URL (docker image
// first, placeholder scheme when no locators exist), and a cmd:// api URL
// recovered from a runtime/mcp extension when present.
func (t *Translator) DeriveRegistration(rec *oasf.Record) Registration {
	name := rec.Name
	if name == "" {
		name = "unnamed"
	}
	version := rec.Version
	if version == "" {
		version = oasf.DefaultVersion
	}
	agentID := oasf.RegistrationID(name, version)

	agentURL := oasf.PreferredLocator(rec.Locators)
	if agentURL == "" {
		agentURL = "placeholder://" + agentID
	}

	return Registration{
		AgentID:  agentID,
		AgentURL: agentURL,
		APIURL:   oasf.ExtractMCPCommandURL(rec.Extensions),
	}
}

// exportDescription summarizes a registry entry for the OASF description
// field: capability and tag lists when present, a generic sentence otherwise.
func exportDescription(entry map[string]any, agentID string, capabilities []string) string {
	var parts []string
	if len(capabilities) > 0 {
		parts = append(parts, "Capabilities: "+strings.Join(capabilities, ", "))
	}
	if tags := stringList(entry["tags"]); len(tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(tags, ", "))
	}
	base := fmt.Sprintf("Exported agent %s from Nanda registry.", agentID)
	if len(parts) == 0 {
		return base
	}
	return base + " " + strings.Join(parts, " | ")
}

// exportLocators builds typed locators from the registry entry's URLs.
func exportLocators(entry map[string]any) []oasf.Locator {
	locators := []oasf.Locator{}
	if u := firstString(entry, "agent_url"); u != "" {
		locators = append(locators, oasf.Locator{Type: oasf.LocatorBridge, URL: u})
	}
	if u := firstString(entry, "api_url"); u != "" {
		locators = append(locators, oasf.Locator{Type: oasf.LocatorAPI, URL: u})
	}
	return locators
}
