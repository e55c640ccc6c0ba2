package mapping

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/aosp-rust/cratetests/internal/log"
)

// FileName is the manifest file written into each package directory.
const FileName = "TEST_MAPPING"

// header is the generated-file comment preceding the JSON document.
const header = "// Generated by update-crate-tests for tests that depend on this crate.\n"

// Write serializes the manifest and persists it to TEST_MAPPING in dir,
// fully overwriting prior content. A file whose content already matches is
// left untouched. Reports whether the file was (re)written.
func Write(dir string, manifest Manifest) (bool, error) {
	content, err := Encode(manifest)
	if err != nil {
		return false, err
	}

	path := filepath.Join(dir, FileName)
	if prev, err := os.ReadFile(path); err == nil {
		if xxhash.Sum64(prev) == xxhash.Sum64(content) {
			log.Debug("TEST_MAPPING unchanged", "dir", dir)
			return false, nil
		}
	}

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

// Encode renders the manifest in its stable textual form: the generated-file
// header, then the JSON document with sorted keys, two-space indentation and
// a trailing newline.
func Encode(manifest Manifest) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(header)

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	return buf.Bytes(), nil
}

// Remove deletes a stale TEST_MAPPING from dir, if one exists.
func Remove(dir string) error {
	path := filepath.Join(dir, FileName)
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	log.Info("removed stale TEST_MAPPING", "dir", dir)
	return nil
}
