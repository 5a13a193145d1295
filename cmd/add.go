package cmd

import (
	"fmt"
	"time"

	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/giturl"
	"github.com/grata-labs/gitcache/pkg/refresolver"
	"github.com/spf13/cobra"
)

var (
	addForceFlag bool
	addRefFlag   string
	addBuildFlag bool
)

var addCmd = &cobra.Command{
	Use:   "add <repo>",
	Short: "Resolve (and optionally build) a single Git-sourced dependency outside a lockfile",
	Args:  cobra.ExactArgs(1),
	Long: `add canonicalizes a repository URL, resolves the requested reference
(tag, branch, or commit; HEAD by default) to an immutable commit, and
records the resolution. With --build it also runs the tarball builder
immediately instead of waiting for 'prepare' or 'install' to need it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		canonical := giturl.Canonicalize(args[0])
		ref := addRefFlag
		if ref == "" {
			ref = giturl.ExtractRef(canonical)
		}

		root, err := cacheRoot()
		if err != nil {
			return err
		}
		logger := newLogger(root)

		ctx, cancel := interruptContext()
		defer cancel()

		cloneURL := giturl.StripFragment(canonical)

		var commit string
		if refresolver.IsLiteralCommit(ref) {
			commit = ref
		} else {
			commit, err = refresolver.Resolve(ctx, cloneURL, ref)
			if err != nil {
				return fmt.Errorf("resolving %s@%s: %w", cloneURL, ref, err)
			}
			if auditErr := refresolver.AppendAudit(gcpath.RefsLogPath(root), refresolver.AuditEntry{
				URL: cloneURL, Ref: ref, Commit: commit, Timestamp: time.Now().UTC(),
			}); auditErr != nil {
				logger.Warn("ref audit log write failed", "error", auditErr)
			}
		}

		fmt.Printf("%s@%s -> %s\n", cloneURL, ref, commit)

		if !addBuildFlag {
			return nil
		}

		authRecord, err := loadAuth(root)
		if err != nil {
			return err
		}
		regClient := newRegistryClient(root, authRecord)
		h := buildHierarchy(root, regClient, authRecord.Token, gcpath.Platform(), addForceFlag, logger)

		packageID := giturl.PackageID(canonical, commit)
		if _, err := h.Get(ctx, packageID); err != nil {
			return fmt.Errorf("building %s: %w", packageID, err)
		}
		fmt.Printf("built %s\n", packageID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().BoolVar(&addForceFlag, "force", false, "rebuild even if a cached artifact already exists")
	addCmd.Flags().StringVar(&addRefFlag, "ref", "", "tag, branch, or commit to resolve (default: HEAD or the URL's #fragment)")
	addCmd.Flags().BoolVar(&addBuildFlag, "build", false, "build the tarball immediately instead of deferring to install/prepare")
}
