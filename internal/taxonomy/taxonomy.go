package taxonomy

import "sort"

// RootSentinel is the extends value that marks a top-of-category skill.
const RootSentinel = "base_skill"

// SkillDefinition is one node of the skill taxonomy. Immutable once loaded.
type SkillDefinition struct {
	Name    string `json:"name"`
	Caption string `json:"caption"`
	UID     int64  `json:"uid"`
	Extends string `json:"extends,omitempty"`
}

// CategoryMeta describes a top-level skill grouping.
type CategoryMeta struct {
	Key     string `json:"key"`
	Caption string `json:"caption"`
	UID     int64  `json:"uid"`
}

// Index is the in-memory skill taxonomy. It is built once by Load and
// read-only afterwards, so concurrent lookups need no locking.
type Index struct {
	skills     map[string]*SkillDefinition
	children   map[string][]string
	categories map[string]CategoryMeta
	leaves     []*SkillDefinition // sorted by name
	leafSet    map[string]*SkillDefinition
}

// NewIndex returns an empty index. Useful when no catalog is configured.
func NewIndex() *Index {
	return &Index{
		skills:     make(map[string]*SkillDefinition),
		children:   make(map[string][]string),
		categories: make(map[string]CategoryMeta),
		leafSet:    make(map[string]*SkillDefinition),
	}
}

// Skill returns a skill definition by name, or nil if not loaded.
func (ix *Index) Skill(name string) *SkillDefinition {
	return ix.skills[name]
}

// Children returns the child skill names of a parent, sorted by name.
func (ix *Index) Children(name string) []string {
	return ix.children[name]
}

// Category returns metadata for a category key. An unknown key yields a
// CategoryMeta whose caption defaults to the key itself and uid 0.
func (ix *Index) Category(key string) CategoryMeta {
	if meta, ok := ix.categories[key]; ok {
		return meta
	}
	return CategoryMeta{Key: key, Caption: key}
}

// Leaves returns all leaf skills sorted by name. A skill is a leaf iff no
// other loaded skill declares it as parent.
func (ix *Index) Leaves() []*SkillDefinition {
	return ix.leaves
}

// Len returns the number of loaded skills.
func (ix *Index) Len() int {
	return len(ix.skills)
}

// computeLeaves derives the leaf set after loading. Called exactly once at
// the end of Load; the result is never mutated afterwards.
func (ix *Index) computeLeaves() {
	ix.leaves = ix.leaves[:0]
	for name, def := range ix.skills {
		if len(ix.children[name]) == 0 {
			ix.leaves = append(ix.leaves, def)
			ix.leafSet[name] = def
		}
	}
	sort.Slice(ix.leaves, func(i, j int) bool { return ix.leaves[i].Name < ix.leaves[j].Name })
	for parent := range ix.children {
		sort.Strings(ix.children[parent])
	}
}

// AncestorChain walks extends pointers upward from the given skill,
// collecting visited parents in order. The walk stops at the root sentinel,
// at a missing parent, or when a name repeats (cycle guard — the partial
// chain is returned without error).
//
// The second return value is the category key: the name of the chain's last
// ancestor when that ancestor extends the root sentinel, the skill's own
// name when it extends the sentinel directly, or "" when the chain dangles.
func (ix *Index) AncestorChain(skill *SkillDefinition) ([]*SkillDefinition, string) {
	if skill == nil {
		return nil, ""
	}

	var chain []*SkillDefinition
	seen := map[string]bool{}
	cur := skill
	for cur.Extends != "" && cur.Extends != RootSentinel {
		parentName := cur.Extends
		if seen[parentName] {
			break
		}
		seen[parentName] = true
		parent := ix.skills[parentName]
		if parent == nil {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}

	top := skill
	if len(chain) > 0 {
		top = chain[len(chain)-1]
	}
	if top.Extends == RootSentinel {
		return chain, top.Name
	}
	return chain, ""
}
