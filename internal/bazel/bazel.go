// Package bazel drives the Bazel queryview oracle: one-time preparation of
// the query workspace, target listing for a package, and repo-wide reverse
// dependency queries, plus classification of the results into the test names
// and import directories that feed TEST_MAPPING generation.
package bazel

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aosp-rust/cratetests/internal/log"
	"github.com/aosp-rust/cratetests/pkg/config"
)

const (
	bazelRelPath = "tools/bazel"
	soongRelPath = "build/soong/soong_ui.bash"

	// Targets built for this platform are never relevant; skipping them
	// up front speeds up the rdeps queries. Not a correctness filter.
	irrelevantPlatform = "windows_x86"
)

// RunFunc executes an external command in dir and returns its stdout.
// The working directory is always passed explicitly; the oracle must run
// from the repository root regardless of the caller's cwd.
type RunFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

// Client issues read-only queries against the build-graph oracle.
type Client struct {
	root  string
	rules *config.Rules
	run   RunFunc
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the command executor. Used by tests.
func WithRunner(run RunFunc) Option {
	return func(c *Client) {
		c.run = run
	}
}

// WithRules replaces the default rule tables.
func WithRules(rules *config.Rules) Option {
	return func(c *Client) {
		c.rules = rules
	}
}

// NewClient creates a Client rooted at the repository top.
func NewClient(root string, opts ...Option) *Client {
	c := &Client{
		root:  root,
		rules: config.Default(),
		run:   runCommand,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Setup prepares the queryview workspace. It is a prerequisite for every
// query; a failure here aborts the whole run.
func (c *Client) Setup(ctx context.Context) error {
	soong := filepath.Join(c.root, soongRelPath)

	log.Info("Generating Bazel files...")
	if out, err := c.run(ctx, c.root, soong, "--make-mode", "bp2build"); err != nil {
		return fmt.Errorf("unable to generate bazel workspace: %w: %s", err, firstLine(out))
	}

	log.Info("Building Bazel Queryview. This can take a couple of minutes...")
	if out, err := c.run(ctx, c.root, soong, "--build-mode", "--all-modules", "--dir=.", "queryview"); err != nil {
		return fmt.Errorf("unable to build queryview: %w: %s", err, firstLine(out))
	}
	return nil
}

// QueryTargets returns the labels of all targets declared directly under the
// repo-relative package path.
func (c *Client) QueryTargets(ctx context.Context, relPath string) ([]string, error) {
	out, err := c.query(ctx, "//"+relPath+":all")
	if err != nil {
		return nil, fmt.Errorf("querying targets of //%s: %w", relPath, err)
	}

	seen := make(map[string]struct{})
	for _, line := range splitLines(out) {
		if strings.Contains(line, irrelevantPlatform) {
			continue
		}
		seen[line] = struct{}{}
	}

	targets := make([]string, 0, len(seen))
	for t := range seen {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	log.Debug("queried targets", "path", relPath, "count", len(targets))
	return targets, nil
}

// QueryRdeps returns every target in the repository that depends,
// transitively, on the given target. Transitivity is the oracle's business;
// this layer treats the result as opaque records.
func (c *Client) QueryRdeps(ctx context.Context, target string) ([]Record, error) {
	out, err := c.query(ctx, fmt.Sprintf("rdeps(//..., %s)", target), "--output=label_kind")
	if err != nil {
		return nil, fmt.Errorf("querying rdeps of %s: %w", target, err)
	}

	var records []Record
	for _, line := range splitLines(out) {
		rec, ok := ParseRecord(line)
		if !ok {
			log.V(4).Info("skipping unparsable rdeps line", "line", line)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// RdepTestsDirs resolves the reverse-dependency tests and import directories
// for every target of the package at relPath.
func (c *Client) RdepTestsDirs(ctx context.Context, targets []string, relPath string) (tests, dirs []string, err error) {
	testSet := make(map[string]struct{})
	dirSet := make(map[string]struct{})
	for _, target := range targets {
		records, err := c.QueryRdeps(ctx, target)
		if err != nil {
			return nil, nil, err
		}
		classify(records, relPath, c.rules, testSet, dirSet)
	}
	return sortedKeys(testSet), sortedKeys(dirSet), nil
}

func (c *Client) query(ctx context.Context, expr string, extra ...string) ([]byte, error) {
	bazel := filepath.Join(c.root, bazelRelPath)
	args := append([]string{"query", "--config=queryview", expr}, extra...)
	return c.run(ctx, c.root, bazel, args...)
}

// runCommand is the default RunFunc. Stderr is folded into the error so a
// failed oracle invocation surfaces its own diagnostics.
func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, fmt.Errorf("%s: %w: %s", name, err, firstLine(exitErr.Stderr))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func splitLines(out []byte) []string {
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func firstLine(out []byte) string {
	s := strings.TrimSpace(string(out))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
