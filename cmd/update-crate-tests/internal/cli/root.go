// Package cli implements the update-crate-tests command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aosp-rust/cratetests/internal/bazel"
	"github.com/aosp-rust/cratetests/internal/log"
	"github.com/aosp-rust/cratetests/internal/mapping"
	"github.com/aosp-rust/cratetests/internal/vcs"
	"github.com/aosp-rust/cratetests/internal/workspace"
	"github.com/aosp-rust/cratetests/pkg/config"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
}

var rootFlags struct {
	branchAndCommit bool
	pushChange      bool
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "update-crate-tests [paths...]",
	Short: "Add or update tests in TEST_MAPPING",
	Long: `update-crate-tests uses Bazel to find reverse dependencies on a crate and
generates a TEST_MAPPING file. It accepts absolute, relative, or glob paths of
crate directories; with no arguments it assumes the crate is the current
directory.

A test_mapping_config.json file can be defined in the project directory to
configure the generated TEST_MAPPING file, for example:

    {
        // Run tests in postsubmit instead of presubmit.
        "postsubmit_tests": ["foo"]
    }`,
	SilenceUsage: true,
	RunE:         runRoot,
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("update-crate-tests %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.Flags().BoolVar(&rootFlags.branchAndCommit, "branch-and-commit", false,
		"Start a new branch and commit changes")
	rootCmd.Flags().BoolVar(&rootFlags.pushChange, "push-change", false,
		"Push the change to Gerrit")

	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 2,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")

	cobra.OnInitialize(initLogging)
}

// initLogging applies CLI flags to the logger.
func initLogging() {
	log.Init(globalFlags.verbosity, globalFlags.logFormat)
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	paths, err := workspace.ExpandPaths(args)
	if err != nil {
		return err
	}

	env, err := workspace.DiscoverEnv()
	if err != nil {
		return err
	}

	rules, err := config.Load(env.Root)
	if err != nil {
		return err
	}

	bz := bazel.NewClient(env.Root, bazel.WithRules(rules))
	if err := bz.Setup(ctx); err != nil {
		return err
	}
	git := vcs.New()

	// One package is fully resolved before the next begins; a failure
	// aborts that package only, and the run continues. The exit status
	// reflects every failure, not just the last one.
	var failed int
	for _, path := range paths {
		if err := processPackage(ctx, env, bz, git, rules, path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d packages failed", failed, len(paths))
	}
	return nil
}

// processPackage resolves one crate directory end to end: query, classify,
// build, persist, and optionally commit and push.
func processPackage(ctx context.Context, env *workspace.Env, bz *bazel.Client, git *vcs.Client, rules *config.Rules, path string) error {
	rel, err := env.Rel(path)
	if err != nil {
		return err
	}

	targets, err := bz.QueryTargets(ctx, rel)
	if err != nil {
		return err
	}
	tests, dirs, err := bz.RdepTestsDirs(ctx, targets, rel)
	if err != nil {
		return err
	}

	manifest, err := mapping.Build(tests, dirs, path, rules)
	switch {
	case errors.Is(err, mapping.ErrNoTestsFound):
		if err := mapping.Remove(path); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := mapping.Write(path, manifest); err != nil {
			return err
		}
		log.Info("TEST_MAPPING successfully updated", "path", rel)
	}

	if !rootFlags.branchAndCommit && !rootFlags.pushChange {
		return nil
	}

	changed, err := git.Changed(ctx, path)
	if err != nil {
		return err
	}
	untracked, err := git.Untracked(ctx, path)
	if err != nil {
		return err
	}
	if !changed && !untracked {
		return nil
	}

	if rootFlags.branchAndCommit {
		if err := git.BranchAndCommit(ctx, path); err != nil {
			return err
		}
	}
	if rootFlags.pushChange {
		if err := git.PushChange(ctx, path, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
