package taxonomy

import "strings"

// CapabilityMatch is the mapping payload produced for a matched capability.
// It is transient — built per lookup, never stored by this package.
type CapabilityMatch struct {
	SkillID      string `json:"skill_id"`
	CategoryName string `json:"category_name"`
	CategoryUID  int64  `json:"category_uid"`
	ClassName    string `json:"class_name"`
	ClassUID     int64  `json:"class_uid"`
}

// keywordRules is the ordered needle → target-skill fallback table. First
// needle found as a substring of the normalized capability wins.
var keywordRules = []struct {
	needle string
	target string
}{
	{"chat", "natural_language_generation"},
	{"conversation", "natural_language_generation"},
	{"classif", "text_classification"},
	{"retriev", "information_retrieval_synthesis"},
	{"search", "information_retrieval_synthesis"},
	{"vision", "image_classification"},
	{"image", "image_classification"},
	{"tool", "tool_use_planning"},
}

// Normalize lowercases a capability string and folds spaces and hyphens to
// underscores, the canonical separator for skill names.
func Normalize(capability string) string {
	s := strings.ToLower(strings.TrimSpace(capability))
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	return s
}

// Match resolves a free-text capability to a taxonomy entry, or nil when no
// strategy applies. Strategies run in a fixed order and the first success
// wins:
//
//  1. exact leaf name match on the normalized text
//  2. normalized text as substring of a leaf caption (leaves scanned in
//     name order, so ties resolve deterministically)
//  3. keyword fallback table; a non-leaf target is substituted by its first
//     child in name order
//
// Match is pure: it never mutates the index and is safe for concurrent use.
func (ix *Index) Match(capability string) *CapabilityMatch {
	norm := Normalize(capability)
	if norm == "" {
		return nil
	}

	if leaf, ok := ix.leafSet[norm]; ok {
		return ix.payload(leaf)
	}

	for _, leaf := range ix.leaves {
		if strings.Contains(strings.ToLower(leaf.Caption), norm) {
			return ix.payload(leaf)
		}
	}

	for _, rule := range keywordRules {
		if !strings.Contains(norm, rule.needle) {
			continue
		}
		cand := ix.skills[rule.target]
		if cand == nil {
			continue
		}
		if _, isLeaf := ix.leafSet[rule.target]; !isLeaf {
			if kids := ix.children[rule.target]; len(kids) > 0 {
				if child := ix.skills[kids[0]]; child != nil {
					cand = child
				}
			}
		}
		return ix.payload(cand)
	}

	return nil
}

// payload converts a matched skill into a CapabilityMatch via its ancestor
// chain and category metadata.
func (ix *Index) payload(skill *SkillDefinition) *CapabilityMatch {
	_, categoryKey := ix.AncestorChain(skill)
	match := &CapabilityMatch{
		SkillID:   skill.Name,
		ClassName: skill.Caption,
		ClassUID:  skill.UID,
	}
	if categoryKey != "" {
		meta := ix.Category(categoryKey)
		match.CategoryName = meta.Caption
		match.CategoryUID = meta.UID
	}
	return match
}
