package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTables(t *testing.T) {
	rules := Default()

	wantGroups := []string{"presubmit", "presubmit-rust", "postsubmit"}
	if len(rules.TestGroups) != len(wantGroups) {
		t.Fatalf("TestGroups = %v, want %v", rules.TestGroups, wantGroups)
	}
	for i, g := range wantGroups {
		if rules.TestGroups[i] != g {
			t.Errorf("TestGroups[%d] = %q, want %q", i, rules.TestGroups[i], g)
		}
	}

	opts := rules.OptionsFor("ring_test_src_lib")
	if len(opts) != 1 || opts[0]["test-timeout"] != "100000" {
		t.Errorf("OptionsFor(ring_test_src_lib) = %v, want test-timeout=100000", opts)
	}
	if rules.OptionsFor("no_such_test") != nil {
		t.Error("OptionsFor(no_such_test) should be nil")
	}
}

func TestExcludesTest(t *testing.T) {
	rules := Default()

	tests := []struct {
		name string
		want bool
	}{
		{"ash_test_src_lib", true},
		{"open_then_run", true},
		{"diced_client_test", true},
		{"ring_test_src_lib", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := rules.ExcludesTest(tt.name); got != tt.want {
			t.Errorf("ExcludesTest(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestExcludesLabel(t *testing.T) {
	rules := Default()

	tests := []struct {
		label string
		want  bool
	}{
		{"//external/crosvm:crosvm_test", true},
		{"//external/adhd/cras:cras_test", true},
		{"//external/rust/crates/libc:libc_test_src_lib", false},
		{"//system/security/keystore2:keystore2_test", false},
	}
	for _, tt := range tests {
		if got := rules.ExcludesLabel(tt.label); got != tt.want {
			t.Errorf("ExcludesLabel(%q) = %v, want %v", tt.label, got, tt.want)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	rules, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !rules.ExcludesTest("ash_test_src_lib") {
		t.Error("Load() without override file should return defaults")
	}
}

func TestLoadOverrideFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
test_exclude = ["flaky_test_one"]

[test_options]
slow_test = [{ "test-timeout" = "900000" }]
`
	if err := os.WriteFile(filepath.Join(tmpDir, RulesFileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Overridden tables are replaced wholesale.
	if !rules.ExcludesTest("flaky_test_one") {
		t.Error("override deny-list entry not applied")
	}
	if rules.ExcludesTest("ash_test_src_lib") {
		t.Error("built-in deny-list should be replaced by the override")
	}
	opts := rules.OptionsFor("slow_test")
	if len(opts) != 1 || opts[0]["test-timeout"] != "900000" {
		t.Errorf("OptionsFor(slow_test) = %v, want test-timeout=900000", opts)
	}

	// Tables absent from the file keep their defaults.
	if len(rules.TestGroups) != 3 {
		t.Errorf("TestGroups = %v, want built-in defaults", rules.TestGroups)
	}
	if !rules.ExcludesLabel("//external/crosvm:x") {
		t.Error("ExcludePaths should keep built-in defaults")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, RulesFileName), []byte("not toml ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmpDir); err == nil {
		t.Error("Load() expected error for malformed file")
	}
}
