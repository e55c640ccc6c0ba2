// Package config holds the rule tables that drive TEST_MAPPING generation:
// test groups, per-test execution options, excluded tests and excluded
// build-label subtrees. The built-in defaults match what CI expects; an
// optional crate_tests_rules.toml at the repository root can replace any
// individual table.
package config

import "strings"

// Rules is the set of tables consulted while classifying reverse
// dependencies and assembling a TEST_MAPPING manifest.
type Rules struct {
	// TestGroups is the ordered list of group names to populate.
	// "presubmit" runs x86_64 device tests plus host tests, and
	// "presubmit-rust" runs arm64 device tests on physical devices.
	TestGroups []string `toml:"test_groups"`

	// TestOptions maps a test name to execution option overrides.
	// Consider fixing the upstream crate before adding to this table.
	TestOptions map[string][]map[string]string `toml:"test_options"`

	// TestExclude lists test names ignored entirely.
	TestExclude []string `toml:"test_exclude"`

	// ExcludePaths lists build-label prefixes whose targets are ignored.
	ExcludePaths []string `toml:"exclude_paths"`
}

// Default returns the built-in rule tables.
func Default() *Rules {
	return &Rules{
		TestGroups: []string{
			"presubmit",
			"presubmit-rust",
			"postsubmit",
		},
		TestOptions: map[string][]map[string]string{
			"ring_test_tests_digest_tests": {{"test-timeout": "600000"}},
			"ring_test_src_lib":            {{"test-timeout": "100000"}},
		},
		TestExclude: []string{
			"ash_test_src_lib",
			"ash_test_tests_constant_size_arrays",
			"ash_test_tests_display",
			"shared_library_test_src_lib",
			"vulkano_test_src_lib",

			// Helper binaries for aidl_integration_test, not meant to
			// run as individual tests.
			"aidl_test_rust_client",
			"aidl_test_rust_service",
			"aidl_test_rust_service_async",

			// Helper binary for AuthFsHostTest.
			"open_then_run",

			// TODO: Remove when b/198197213 is closed.
			"diced_client_test",
		},
		ExcludePaths: []string{
			"//external/adhd",
			"//external/crosvm",
			"//external/libchromeos-rs",
			"//external/vm_tools",
		},
	}
}

// ExcludesTest reports whether a test name is on the global deny-list.
func (r *Rules) ExcludesTest(name string) bool {
	for _, t := range r.TestExclude {
		if t == name {
			return true
		}
	}
	return false
}

// ExcludesLabel reports whether a build label falls under an excluded subtree.
func (r *Rules) ExcludesLabel(lbl string) bool {
	for _, prefix := range r.ExcludePaths {
		if strings.HasPrefix(lbl, prefix) {
			return true
		}
	}
	return false
}

// OptionsFor returns the execution option overrides for a test, or nil.
func (r *Rules) OptionsFor(name string) []map[string]string {
	return r.TestOptions[name]
}

// merge overlays non-empty tables from other onto r.
func (r *Rules) merge(other *Rules) {
	if len(other.TestGroups) > 0 {
		r.TestGroups = other.TestGroups
	}
	if len(other.TestOptions) > 0 {
		r.TestOptions = other.TestOptions
	}
	if len(other.TestExclude) > 0 {
		r.TestExclude = other.TestExclude
	}
	if len(other.ExcludePaths) > 0 {
		r.ExcludePaths = other.ExcludePaths
	}
}
