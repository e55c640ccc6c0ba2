package bazel

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
)

// fakeRunner records invocations and serves canned output per command line.
type fakeRunner struct {
	calls   []string
	dirs    []string
	outputs map[string]string
	errs    map[string]error
}

func (f *fakeRunner) run(_ context.Context, dir, name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{filepath.Base(name)}, args...), " ")
	f.calls = append(f.calls, key)
	f.dirs = append(f.dirs, dir)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	return []byte(f.outputs[key]), nil
}

func TestSetup(t *testing.T) {
	fake := &fakeRunner{}
	c := NewClient("/repo", WithRunner(fake.run))

	if err := c.Setup(context.Background()); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	want := []string{
		"soong_ui.bash --make-mode bp2build",
		"soong_ui.bash --build-mode --all-modules --dir=. queryview",
	}
	if len(fake.calls) != len(want) {
		t.Fatalf("Setup() calls = %v, want %v", fake.calls, want)
	}
	for i := range want {
		if fake.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, fake.calls[i], want[i])
		}
	}
	for i, dir := range fake.dirs {
		if dir != "/repo" {
			t.Errorf("call[%d] ran in %q, want repository root", i, dir)
		}
	}
}

func TestSetupFailure(t *testing.T) {
	fake := &fakeRunner{errs: map[string]error{
		"soong_ui.bash --make-mode bp2build": errors.New("exit status 1"),
	}}
	c := NewClient("/repo", WithRunner(fake.run))

	if err := c.Setup(context.Background()); err == nil {
		t.Error("Setup() expected error when bp2build fails")
	}
}

func TestQueryTargets(t *testing.T) {
	fake := &fakeRunner{outputs: map[string]string{
		"bazel query --config=queryview //external/rust/crates/libc:all": strings.Join([]string{
			"//external/rust/crates/libc:libc",
			"//external/rust/crates/libc:libc_test_src_lib",
			"//external/rust/crates/libc:libc--windows_x86_64",
			"",
		}, "\n"),
	}}
	c := NewClient("/repo", WithRunner(fake.run))

	targets, err := c.QueryTargets(context.Background(), "external/rust/crates/libc")
	if err != nil {
		t.Fatalf("QueryTargets() error = %v", err)
	}

	want := []string{
		"//external/rust/crates/libc:libc",
		"//external/rust/crates/libc:libc_test_src_lib",
	}
	if len(targets) != len(want) {
		t.Fatalf("QueryTargets() = %v, want %v", targets, want)
	}
	for i := range want {
		if targets[i] != want[i] {
			t.Errorf("targets[%d] = %q, want %q", i, targets[i], want[i])
		}
	}
}

func TestQueryRdepsFailureAbortsPackage(t *testing.T) {
	fake := &fakeRunner{errs: map[string]error{
		"bazel query --config=queryview rdeps(//..., //pkg:foo) --output=label_kind": errors.New("exit status 7"),
	}}
	c := NewClient("/repo", WithRunner(fake.run))

	_, _, err := c.RdepTestsDirs(context.Background(), []string{"//pkg:foo"}, "pkg")
	if err == nil {
		t.Error("RdepTestsDirs() expected error when the oracle fails")
	}
}

func TestRdepTestsDirs(t *testing.T) {
	rdeps := func(target string, lines ...string) (string, string) {
		key := fmt.Sprintf("bazel query --config=queryview rdeps(//..., %s) --output=label_kind", target)
		return key, strings.Join(lines, "\n")
	}

	k1, v1 := rdeps("//external/rust/crates/mine:mine",
		"rust_library rule //external/rust/crates/mine:mine",
		"rust_test rule //external/rust/crates/mine:mine_test_src_lib--x86_64",
		"rust_test rule //external/rust/other:bar_test--variant",
		"rust_test rule //system/extras:extras_test",
	)
	k2, v2 := rdeps("//external/rust/crates/mine:mine_host",
		"rust_test_ rule //external/rust/crates/mine:mine_test_src_lib--aarch64",
		"rust_test rule //external/crosvm:crosvm_test",
	)

	fake := &fakeRunner{outputs: map[string]string{k1: v1, k2: v2}}
	c := NewClient("/repo", WithRunner(fake.run))

	tests, dirs, err := c.RdepTestsDirs(context.Background(),
		[]string{"//external/rust/crates/mine:mine", "//external/rust/crates/mine:mine_host"},
		"external/rust/crates/mine")
	if err != nil {
		t.Fatalf("RdepTestsDirs() error = %v", err)
	}

	wantTests := []string{"extras_test", "mine_test_src_lib"}
	wantDirs := []string{"external/rust/other"}
	if len(tests) != len(wantTests) {
		t.Fatalf("tests = %v, want %v", tests, wantTests)
	}
	for i := range wantTests {
		if tests[i] != wantTests[i] {
			t.Errorf("tests[%d] = %q, want %q", i, tests[i], wantTests[i])
		}
	}
	if len(dirs) != 1 || dirs[0] != wantDirs[0] {
		t.Errorf("dirs = %v, want %v", dirs, wantDirs)
	}
}
