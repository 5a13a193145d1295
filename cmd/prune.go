package cmd

import (
	"fmt"

	"github.com/grata-labs/gitcache/pkg/gcconfig"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/output"
	"github.com/grata-labs/gitcache/pkg/prune"
	"github.com/spf13/cobra"
)

var (
	pruneMaxSizeFlag    string
	pruneDryRunFlag     bool
	pruneSetDefaultFlag bool
	pruneVerboseFlag    bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Evict least-recently-used tarballs until the cache is back within its size bound",
	Long: `prune enumerates <commit>-<platform> directories under the tarball
cache, and if their aggregate size exceeds the configured (or --max-size)
bound, deletes directories by ascending mtime until the cache fits.

--dry-run reports the same accounting without deleting anything.
--set-default persists --max-size to config.json as the bound future runs
(without --max-size) will use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if pruneVerboseFlag {
			viperSetVerbose()
		}

		root, err := cacheRoot()
		if err != nil {
			return err
		}
		logger := newLogger(root)

		cfg, err := gcconfig.Load(gcpath.ConfigPath(root))
		if err != nil {
			return err
		}

		sizeStr := pruneMaxSizeFlag
		if sizeStr == "" {
			sizeStr = cfg.MaxCacheSize
		}
		bound, err := prune.ParseSize(sizeStr)
		if err != nil {
			return err
		}

		if pruneSetDefaultFlag && pruneMaxSizeFlag != "" {
			cfg.MaxCacheSize = pruneMaxSizeFlag
			if err := gcconfig.Save(gcpath.ConfigPath(root), cfg); err != nil {
				return err
			}
		}

		result, err := prune.Prune(gcpath.TarballsRoot(root), bound, pruneDryRunFlag)
		if err != nil {
			return err
		}
		logger.Info("prune complete", "scanned", result.Scanned, "deleted", result.Deleted, "spaceSaved", result.SpaceSaved)

		kv := output.NewKeyValue("prune")
		kv.Add("scanned", fmt.Sprintf("%d", result.Scanned))
		kv.Add("deleted", fmt.Sprintf("%d", result.Deleted))
		kv.Add("spaceSaved", fmt.Sprintf("%d bytes", result.SpaceSaved))
		kv.Add("withinLimit", fmt.Sprintf("%v", result.WithinLimit))
		if pruneDryRunFlag {
			kv.Add("mode", "dry-run")
		}
		return kv.Format(output.Table)
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
	pruneCmd.Flags().StringVar(&pruneMaxSizeFlag, "max-size", "", "size bound, e.g. 500MB (default: config.json's maxCacheSize, or 1GB)")
	pruneCmd.Flags().BoolVar(&pruneDryRunFlag, "dry-run", false, "report what would be deleted without deleting")
	pruneCmd.Flags().BoolVar(&pruneSetDefaultFlag, "set-default", false, "persist --max-size as the default bound")
	pruneCmd.Flags().BoolVar(&pruneVerboseFlag, "verbose", false, "enable debug-level logging for this run")
}
