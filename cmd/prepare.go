package cmd

import (
	"fmt"

	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/lockfile"
	"github.com/grata-labs/gitcache/pkg/output"
	"github.com/spf13/cobra"
)

var (
	prepareLockfileFlag string
	prepareForceFlag    bool
	prepareVerboseFlag  bool
)

var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Accelerate every Git-sourced dependency in a lockfile",
	Long: `prepare runs the full acceleration pipeline for a lockfile: scan for
Git-sourced dependencies, resolve symbolic refs to commits, and build (or
fetch from cache) a tarball for each resolved dependency, concurrently.

This is the primary operation described in spec §2: it stages artifacts in
the local cache and cloud registry, but never installs packages or modifies
the lockfile itself.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if prepareVerboseFlag {
			viperSetVerbose()
		}

		path := prepareLockfileFlag
		if path == "" {
			path = "package-lock.json"
		}

		root, err := cacheRoot()
		if err != nil {
			return err
		}
		logger := newLogger(root)

		scanResult, err := lockfile.Scan(path, logger)
		if err != nil {
			return err
		}
		if !scanResult.HasGit {
			fmt.Println("no Git-sourced dependencies found; nothing to prepare")
			return nil
		}

		ctx, cancel := interruptContext()
		defer cancel()

		resolved := resolveDependencies(ctx, root, scanResult.Dependencies, logger)
		if len(resolved) == 0 {
			fmt.Println("no dependencies resolved; nothing to build")
			return nil
		}

		authRecord, err := loadAuth(root)
		if err != nil {
			return err
		}
		regClient := newRegistryClient(root, authRecord)
		h := buildHierarchy(root, regClient, authRecord.Token, gcpath.Platform(), prepareForceFlag, logger)

		outcomes := runPipeline(ctx, resolved, h, logger)
		return reportOutcomes(outcomes)
	},
}

// reportOutcomes prints a per-dependency summary and returns a
// process-level error only when every dependency failed (spec §7: the
// command exits 0 when at least one dependency succeeded, or when there
// were none to build).
func reportOutcomes(outcomes []BuildOutcome) error {
	table := output.NewTable("Dependency", "Status")
	succeeded := 0
	for _, o := range outcomes {
		status := "built"
		if o.Err != nil {
			status = "failed: " + o.Err.Error()
		} else {
			succeeded++
		}
		table.AddRow(o.Dependency.Name, status)
	}
	_ = table.Format(output.Table)

	fmt.Printf("%d/%d dependencies accelerated\n", succeeded, len(outcomes))
	if len(outcomes) > 0 && succeeded == 0 {
		return fmt.Errorf("all %d dependencies failed to build", len(outcomes))
	}
	return nil
}

func init() {
	rootCmd.AddCommand(prepareCmd)
	prepareCmd.Flags().StringVar(&prepareLockfileFlag, "lockfile", "", "path to the lockfile (default: package-lock.json)")
	prepareCmd.Flags().BoolVar(&prepareForceFlag, "force", false, "rebuild even if a cached artifact already exists")
	prepareCmd.Flags().BoolVar(&prepareVerboseFlag, "verbose", false, "enable debug-level logging for this run")
}
