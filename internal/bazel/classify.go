package bazel

import (
	"strings"

	"github.com/bazelbuild/bazel-gazelle/label"

	"github.com/aosp-rust/cratetests/pkg/config"
)

// Rule kinds that identify a test target in queryview output. Everything
// else (libraries, binaries, generated code) is discarded.
const (
	ruleKindTest    = "rust_test"
	ruleKindTestAlt = "rust_test_"
)

// externalPrefix marks the namespace whose tests are referenced by package
// import rather than enumerated, bounding fan-out for widely used crates.
const externalPrefix = "//external/rust/"

// variantSeparator splits a target name from its build-variant suffix.
const variantSeparator = "--"

// Record is one reverse-dependency result: the rule kind reported by the
// oracle and the target it applies to.
type Record struct {
	Kind  string
	Raw   string // label exactly as printed by the oracle
	Label label.Label
}

// ParseRecord parses one line of `--output=label_kind` oracle output, of the
// form "<rule kind> rule <label>". It reports false for lines that do not
// match that shape or whose label does not parse.
func ParseRecord(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[1] != "rule" {
		return Record{}, false
	}
	lbl, err := label.Parse(fields[2])
	if err != nil || lbl.Relative {
		return Record{}, false
	}
	return Record{Kind: fields[0], Raw: fields[2], Label: lbl}, true
}

// TestName returns the bare test name of the record's target, with any
// build-variant suffix stripped.
func (r Record) TestName() string {
	name, _, _ := strings.Cut(r.Label.Name, variantSeparator)
	return name
}

// IsTest reports whether the record's rule kind is a test rule.
func (r Record) IsTest() bool {
	return r.Kind == ruleKindTest || r.Kind == ruleKindTestAlt
}

// classify sorts reverse-dependency records for the package at relPath into
// tests (local records, by bare name) and dirs (foreign records, by package
// path). A record is local when it lives in the analyzed package itself or
// anywhere outside the external crate namespace. Results are accumulated
// into sets so oracle output ordering cannot influence the outcome.
func classify(records []Record, relPath string, rules *config.Rules, tests, dirs map[string]struct{}) {
	for _, rec := range records {
		if !rec.IsTest() {
			continue
		}
		if rules.ExcludesLabel(rec.Raw) {
			continue
		}
		if rec.Label.Pkg == relPath || !strings.HasPrefix(rec.Raw, externalPrefix) {
			tests[rec.TestName()] = struct{}{}
		} else {
			dirs[rec.Label.Pkg] = struct{}{}
		}
	}
}
