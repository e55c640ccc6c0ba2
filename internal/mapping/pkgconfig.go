package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// PackageConfigFileName is the optional per-package config artifact.
const PackageConfigFileName = "test_mapping_config.json"

// PackageConfig is the per-package override read from a sibling config
// artifact. The only recognized key forces the listed tests into postsubmit.
// Read fresh per package, never cached.
type PackageConfig struct {
	PostsubmitTests []string `json:"postsubmit_tests"`
}

// LoadPackageConfig reads test_mapping_config.json from dir. The file may
// contain // comments, so it is standardized from JWCC before decoding.
// A missing file yields a nil config.
func LoadPackageConfig(dir string) (*PackageConfig, error) {
	data, err := os.ReadFile(filepath.Join(dir, PackageConfigFileName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", PackageConfigFileName, err)
	}

	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", PackageConfigFileName, err)
	}
	var cfg PackageConfig
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", PackageConfigFileName, err)
	}
	return &cfg, nil
}
