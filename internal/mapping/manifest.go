// Package mapping assembles and persists TEST_MAPPING manifests from
// classified reverse-dependency results.
package mapping

import (
	"errors"
	"sort"
	"strings"

	"github.com/aosp-rust/cratetests/pkg/config"
)

// ErrNoTestsFound signals that the package has no reverse-dependency tests
// and no import directories; the caller should remove any stale manifest
// instead of writing an empty one.
var ErrNoTestsFound = errors.New("no reverse-dependency tests found")

// TestEntry is one test in a group, optionally with execution option
// overrides from the static option table.
type TestEntry struct {
	Name    string              `json:"name"`
	Options []map[string]string `json:"options,omitempty"`
}

// Import references another package's manifest instead of enumerating its
// tests.
type Import struct {
	Path string `json:"path"`
}

// Manifest maps group names (and the "imports" pseudo-group) to their
// entries. Serializing it as a map yields the key-sorted output CI expects.
type Manifest map[string]any

// Build assembles the manifest for a package from its reverse-dependency
// test names and import directories. pkgDir is consulted for an optional
// per-package config artifact. Returns ErrNoTestsFound when there is nothing
// to record.
func Build(tests, dirs []string, pkgDir string, rules *config.Rules) (Manifest, error) {
	if len(tests) == 0 && len(dirs) == 0 {
		return nil, ErrNoTestsFound
	}

	pkgCfg, err := LoadPackageConfig(pkgDir)
	if err != nil {
		return nil, err
	}

	manifest := make(Manifest)
	for _, group := range rules.TestGroups {
		var entries []TestEntry
		for _, test := range tests {
			if rules.ExcludesTest(test) {
				continue
			}
			if !pkgCfg.allowsInGroup(test, group) {
				continue
			}
			entries = append(entries, TestEntry{Name: test, Options: rules.OptionsFor(test)})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
		if len(entries) > 0 {
			manifest[group] = entries
		}
	}

	if len(dirs) > 0 {
		imports := make([]Import, 0, len(dirs))
		for _, dir := range dirs {
			imports = append(imports, Import{Path: dir})
		}
		sort.Slice(imports, func(i, j int) bool { return imports[i].Path < imports[j].Path })
		manifest["imports"] = imports
	}

	return manifest, nil
}

// allowsInGroup applies the postsubmit override: a test forced to postsubmit
// is kept out of non-postsubmit groups and vice versa. Group membership is a
// substring check so custom group names containing "postsubmit" behave like
// the built-in one.
func (c *PackageConfig) allowsInGroup(test, group string) bool {
	if c == nil || c.PostsubmitTests == nil {
		return true
	}
	forced := false
	for _, t := range c.PostsubmitTests {
		if t == test {
			forced = true
			break
		}
	}
	return forced == strings.Contains(group, "postsubmit")
}
