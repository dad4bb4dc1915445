// Package oasf models third-party directory records: taxonomy-qualified
// skills, typed locators, and namespaced extensions. It owns the small
// codecs (identifier, command URL) shared by the translators; it performs
// no I/O.
package oasf

import "strings"

// Locator is a typed URL entry attached to a record. The type string drives
// endpoint classification (bridge-url, api-url, source_code, docker-image).
type Locator struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Extension is a namespaced feature block.
type Extension struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Data    map[string]any `json:"data"`
}

// SkillRef is one skill entry of a record: a taxonomy mapping payload or a
// raw, optionally slash-namespaced name.
type SkillRef struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	SkillID      string `json:"skill_id,omitempty"`
	CategoryName string `json:"category_name,omitempty"`
	CategoryUID  int64  `json:"category_uid,omitempty"`
	ClassName    string `json:"class_name,omitempty"`
	ClassUID     int64  `json:"class_uid,omitempty"`
}

// Record is a complete OASF directory record.
type Record struct {
	Name          string         `json:"name"`
	SchemaVersion string         `json:"schema_version,omitempty"`
	Version       string         `json:"version"`
	Description   string         `json:"description"`
	Authors       []string       `json:"authors"`
	CreatedAt     string         `json:"created_at"`
	Skills        []SkillRef     `json:"skills"`
	Locators      []Locator      `json:"locators"`
	Extensions    []Extension    `json:"extensions"`
	Signature     map[string]any `json:"signature"`
}

// DefaultVersion is the sentinel used when an identifier carries no version.
const DefaultVersion = "v0"

// ParseAgentIdentifier splits a "name:version" identifier on its last colon.
// Identifiers without a colon default the version to DefaultVersion.
func ParseAgentIdentifier(id string) (name, version string) {
	if i := strings.LastIndex(id, ":"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, DefaultVersion
}

// RegistrationID builds the registry-side agent_id for a record:
// "name:version" with slashes folded so the ID stays path-safe.
func RegistrationID(name, version string) string {
	return strings.ReplaceAll(name+":"+version, "/", "-")
}

// LeafName strips a slash namespace from a taxonomy-qualified skill name,
// returning the last segment.
func LeafName(skillName string) string {
	if i := strings.LastIndex(skillName, "/"); i >= 0 {
		return skillName[i+1:]
	}
	return skillName
}
