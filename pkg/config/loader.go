package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// RulesFileName is the name of the optional rules override file, looked up
// at the repository root.
const RulesFileName = "crate_tests_rules.toml"

// Load returns the built-in rules, overlaid with any tables set in
// crate_tests_rules.toml under root. A missing file is not an error.
func Load(root string) (*Rules, error) {
	rules := Default()

	path := filepath.Join(root, RulesFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return rules, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", RulesFileName, err)
	}

	var override Rules
	if err := toml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", RulesFileName, err)
	}
	rules.merge(&override)
	return rules, nil
}
