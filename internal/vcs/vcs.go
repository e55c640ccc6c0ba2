// Package vcs drives the version-control collaborators: git for change
// detection and commits, repo for starting a work branch, and the Gerrit
// push remote. All of them are opaque external processes observed through
// exit status and output text.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/aosp-rust/cratetests/internal/log"
)

// BranchName is the work-item branch started before committing.
const BranchName = "tmp_auto_test_mapping"

// commitMessage is the exact message used for generated commits.
const commitMessage = "Update TEST_MAPPING\n\nTest: None"

// RunFunc executes an external command in dir, returning its combined
// output, exit code, and an error for failures to launch at all.
type RunFunc func(ctx context.Context, dir, name string, args ...string) ([]byte, int, error)

// Client runs version-control commands against a package directory.
type Client struct {
	run RunFunc
}

// Option configures a Client.
type Option func(*Client)

// WithRunner replaces the command executor. Used by tests.
func WithRunner(run RunFunc) Option {
	return func(c *Client) {
		c.run = run
	}
}

// New creates a version-control client.
func New(opts ...Option) *Client {
	c := &Client{run: runCommand}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Changed reports whether the working tree in dir has uncommitted changes.
func (c *Client) Changed(ctx context.Context, dir string) (bool, error) {
	_, code, err := c.run(ctx, dir, "git", "diff", "--quiet")
	if err != nil {
		return false, fmt.Errorf("git diff: %w", err)
	}
	return code == 1, nil
}

// Untracked reports whether dir holds a TEST_MAPPING that git does not track.
func (c *Client) Untracked(ctx context.Context, dir string) (bool, error) {
	if _, err := os.Stat(filepath.Join(dir, "TEST_MAPPING")); err != nil {
		return false, nil
	}
	_, code, err := c.run(ctx, dir, "git", "ls-files", "--error-unmatch", "TEST_MAPPING")
	if err != nil {
		return false, fmt.Errorf("git ls-files: %w", err)
	}
	return code == 1, nil
}

// BranchAndCommit starts a work branch in dir and commits the manifest.
// The per-package config artifact is added best-effort since it is not
// always present.
func (c *Client) BranchAndCommit(ctx context.Context, dir string) error {
	if err := c.check(ctx, dir, "repo", "start", BranchName, "."); err != nil {
		return err
	}
	if err := c.check(ctx, dir, "git", "add", "TEST_MAPPING"); err != nil {
		return err
	}
	if _, code, err := c.run(ctx, dir, "git", "add", "test_mapping_config.json"); err == nil && code != 0 {
		log.Debug("no per-package config to add", "dir", dir)
	}
	return c.check(ctx, dir, "git", "commit", "-m", commitMessage)
}

// PushChange pushes the commit in dir to the Gerrit remote, with a topic
// keyed to today's date.
func (c *Client) PushChange(ctx context.Context, dir string, now time.Time) error {
	topic := "topic=test-mapping-" + now.Format("01-02")
	return c.check(ctx, dir, "git", "push", "aosp", "HEAD:refs/for/master", "-o", topic)
}

// check runs a command and converts any non-zero exit into an error
// carrying the command's own output.
func (c *Client) check(ctx context.Context, dir, name string, args ...string) error {
	out, code, err := c.run(ctx, dir, name, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w", name, args[0], err)
	}
	if code != 0 {
		return fmt.Errorf("%s %s exited %d: %s", name, args[0], code, firstLine(out))
	}
	return nil
}

// runCommand is the default RunFunc.
func runCommand(ctx context.Context, dir, name string, args ...string) ([]byte, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return out, exitErr.ExitCode(), nil
		}
		return out, -1, err
	}
	return out, 0, nil
}

func firstLine(out []byte) string {
	for i, b := range out {
		if b == '\n' {
			return string(out[:i])
		}
	}
	return string(out)
}
