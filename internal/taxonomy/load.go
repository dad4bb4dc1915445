package taxonomy

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadWarning records a non-fatal problem found while loading the catalog.
type LoadWarning struct {
	Path string
	Err  error
}

func (w LoadWarning) String() string {
	return fmt.Sprintf("%s: %v", w.Path, w.Err)
}

// categoryFile is the shape of skill_categories.json.
type categoryFile struct {
	Attributes map[string]struct {
		Caption string `json:"caption"`
		UID     int64  `json:"uid"`
	} `json:"attributes"`
}

// Load builds an Index from a catalog directory. The layout is one
// skill_categories.json at the root plus a skills/ tree of per-skill JSON
// files ({name, caption, uid, extends}).
//
// A missing catalog root degrades to an empty index; malformed individual
// files are skipped. Both are reported through the returned warnings, never
// as an error — the index is always usable.
func Load(catalogRoot string) (*Index, []LoadWarning) {
	ix := NewIndex()
	var warnings []LoadWarning

	if _, err := os.Stat(catalogRoot); err != nil {
		warnings = append(warnings, LoadWarning{Path: catalogRoot, Err: fmt.Errorf("catalog missing: %w", err)})
		ix.computeLeaves()
		return ix, warnings
	}

	warnings = append(warnings, loadCategories(ix, filepath.Join(catalogRoot, "skill_categories.json"))...)
	warnings = append(warnings, loadSkills(ix, filepath.Join(catalogRoot, "skills"))...)

	ix.computeLeaves()
	return ix, warnings
}

func loadCategories(ix *Index, path string) []LoadWarning {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return []LoadWarning{{Path: path, Err: fmt.Errorf("read categories: %w", err)}}
	}

	var cf categoryFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return []LoadWarning{{Path: path, Err: fmt.Errorf("parse categories: %w", err)}}
	}
	for key, attr := range cf.Attributes {
		ix.categories[key] = CategoryMeta{Key: key, Caption: attr.Caption, UID: attr.UID}
	}
	return nil
}

func loadSkills(ix *Index, skillsRoot string) []LoadWarning {
	var warnings []LoadWarning

	if _, err := os.Stat(skillsRoot); os.IsNotExist(err) {
		return nil
	}

	err := filepath.WalkDir(skillsRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			warnings = append(warnings, LoadWarning{Path: path, Err: err})
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			warnings = append(warnings, LoadWarning{Path: path, Err: fmt.Errorf("read skill: %w", readErr)})
			return nil
		}
		var def SkillDefinition
		if jsonErr := json.Unmarshal(data, &def); jsonErr != nil {
			warnings = append(warnings, LoadWarning{Path: path, Err: fmt.Errorf("parse skill: %w", jsonErr)})
			return nil
		}
		if def.Name == "" {
			warnings = append(warnings, LoadWarning{Path: path, Err: fmt.Errorf("skill file has no name")})
			return nil
		}

		ix.skills[def.Name] = &def
		if def.Extends != "" {
			ix.children[def.Extends] = append(ix.children[def.Extends], def.Name)
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		warnings = append(warnings, LoadWarning{Path: skillsRoot, Err: err})
	}
	return warnings
}
