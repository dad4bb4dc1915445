package translate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/nandahq/agentdir/internal/facts"
)

const (
	defaultVersion     = "1.0.0"
	defaultProviderURL = "https://example.com"
	defaultModality    = "text"
)

// ToAgentFacts converts a registry entry into a fresh AgentFacts record.
// Input may be a map or raw JSON bytes. Identity is resolved from the first
// present alias among id, agent_id, and name; missing identity is the one
// hard failure, everything else degrades to documented defaults.
//
// Each capability is resolved against the taxonomy; unmatched capabilities
// become placeholder skills named "skill:<capability>", and duplicate skill
// ids keep the first occurrence. The output always carries at least one
// skill, so a record built here can pass schema validation.
func (t *Translator) ToAgentFacts(raw any) (*facts.Record, error) {
	entry, err := asObject(raw)
	if err != nil {
		return nil, fmt.Errorf("to agentfacts: %w", err)
	}

	id := firstString(entry, "id", "agent_id", "name")
	if id == "" {
		return nil, fmt.Errorf("to agentfacts: %w", ErrMissingIdentity)
	}
	label := firstString(entry, "label", "name")
	if label == "" {
		label = id
	}

	version := stringify(entry["version"])
	if version == "" {
		version = defaultVersion
	}

	modalities := capabilityNames(entry["capabilities"])
	if len(modalities) == 0 {
		modalities = []string{defaultModality}
	}

	rec := &facts.Record{
		ID:          id,
		AgentName:   id,
		Label:       label,
		Description: firstString(entry, "description", "caption"),
		Version:     version,
		Provider:    t.coerceProvider(entry, label),
		Endpoints:   facts.Endpoints{Static: staticEndpoints(entry)},
		Capabilities: facts.Capabilities{
			Modalities:     modalities,
			Authentication: facts.Authentication{Methods: []string{"none"}},
		},
		Skills: t.capabilitySkills(modalities),
	}
	return rec, nil
}

// ToRegistryEntry flattens an AgentFacts record into the minimal registry
// entry shape. The conversion is lossy: provider, auth methods, and per-skill
// detail are dropped; identity, description, version, modalities, and static
// endpoints survive.
func (t *Translator) ToRegistryEntry(rec *facts.Record) map[string]any {
	id := rec.ID
	if id == "" {
		id = rec.AgentName
	}
	name := rec.Label
	if name == "" {
		name = id
	}
	version := rec.Version
	if version == "" {
		version = defaultVersion
	}
	return map[string]any{
		"id":           id,
		"name":         name,
		"description":  rec.Description,
		"version":      version,
		"capabilities": rec.Capabilities.Modalities,
		"endpoints":    rec.Endpoints.Static,
	}
}

// coerceProvider accepts a provider object or a bare provider-name string.
// Missing name defaults to the agent label, missing url to a placeholder.
func (t *Translator) coerceProvider(entry map[string]any, label string) facts.Provider {
	p := facts.Provider{Name: label, URL: defaultProviderURL}
	switch v := entry["provider"].(type) {
	case string:
		if v != "" {
			p.Name = v
		}
		if u := firstString(entry, "provider_url"); u != "" {
			p.URL = u
		}
	case map[string]any:
		if name := firstString(v, "name"); name != "" {
			p.Name = name
		}
		if u := firstString(v, "url"); u != "" {
			p.URL = u
		}
	}
	return p
}

// staticEndpoints normalizes the endpoints field from a bare string, a list
// of strings, or nothing. Non-string list entries are dropped.
func staticEndpoints(entry map[string]any) []string {
	raw := entry["endpoints"]
	if raw == nil {
		raw = entry["endpoint"]
	}
	switch v := raw.(type) {
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	case []any:
		out := stringList(v)
		if out == nil {
			out = []string{}
		}
		return out
	default:
		return []string{}
	}
}

// capabilitySkills maps capabilities to AgentFacts skill entries through the
// taxonomy, falling back to a placeholder per unmatched capability. Keyed by
// skill id, first occurrence wins.
func (t *Translator) capabilitySkills(capabilities []string) []facts.Skill {
	seen := make(map[string]bool, len(capabilities))
	skills := make([]facts.Skill, 0, len(capabilities))
	for _, capability := range capabilities {
		skill := facts.Skill{
			ID:          "skill:" + capability,
			Description: fmt.Sprintf("Capability skill for %s", capability),
			InputModes:  []string{defaultModality},
			OutputModes: []string{defaultModality},
		}
		if match := t.index.Match(capability); match != nil {
			skill.ID = match.SkillID
			skill.Description = fmt.Sprintf("Skill mapped from capability '%s' (class: %s)", capability, match.ClassName)
		} else {
			t.log.Debug("capability not in taxonomy, using placeholder skill",
				zap.String("capability", capability))
		}
		if seen[skill.ID] {
			continue
		}
		seen[skill.ID] = true
		skills = append(skills, skill)
	}
	return skills
}
