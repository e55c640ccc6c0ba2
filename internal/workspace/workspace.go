// Package workspace resolves the execution environment of the tool: the
// repository root, host-platform support, repo-relative package paths, and
// expansion of the path patterns given on the command line.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// RootEnvVar names the environment variable identifying the repository root.
const RootEnvVar = "ANDROID_BUILD_TOP"

// ErrNoRoot is returned when the repository root cannot be determined.
var ErrNoRoot = errors.New(RootEnvVar + " is not defined; you must first source build/envsetup.sh and select a target")

// ErrUnsupportedPlatform is returned on hosts the query oracle does not support.
var ErrUnsupportedPlatform = errors.New("this tool has only been tested on Linux")

// Env captures the execution environment. It ensures the tool runs within a
// checked-out repository on a supported host.
type Env struct {
	// Root is the absolute path to the top of the repository.
	Root string
}

// DiscoverEnv reads the repository root from the environment and validates
// the host platform. Both failures are fatal configuration errors.
func DiscoverEnv() (*Env, error) {
	if runtime.GOOS != "linux" {
		return nil, ErrUnsupportedPlatform
	}
	root := os.Getenv(RootEnvVar)
	if root == "" {
		return nil, ErrNoRoot
	}
	return &Env{Root: root}, nil
}

// Rel returns the path of a package relative to the repository root.
// The path must be absolute and located under the root.
func (e *Env) Rel(path string) (string, error) {
	rel, err := filepath.Rel(e.Root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("the path %s is not under %s; you must be in the directory of a crate or pass its absolute path as the argument", path, e.Root)
	}
	return rel, nil
}

// ExpandPaths converts each pattern to an absolute path, expands globs, and
// returns the sorted union of matches. With no patterns it returns the
// current directory. Patterns that match nothing contribute nothing.
func ExpandPaths(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		return []string{wd}, nil
	}

	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		abs, err := filepath.Abs(pattern)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", pattern, err)
		}
		matches, err := doublestar.FilepathGlob(abs)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", pattern, err)
		}
		for _, m := range matches {
			seen[m] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths, nil
}
