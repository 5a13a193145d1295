package cmd

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/grata-labs/gitcache/pkg/gcerrors"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/lockfile"
	"github.com/spf13/cobra"
)

var installCmd = &cobra.Command{
	Use:   "install [npm-args...]",
	Short: "Accelerate Git-sourced dependencies, then delegate installation to npm",
	Long: `install runs the same acceleration pipeline as 'prepare' against
package-lock.json, then hands off to 'npm install' with NPM_CONFIG_CACHE
redirected to this tool's cache root so npm reuses the artifacts gitcache
just staged. Arguments after 'install' are passed through to npm verbatim.

gitcache never installs packages itself; this command's contract is
entirely about accelerating the Git-sourced portion of the dependency
graph before delegating to the host package manager.`,
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := cacheRoot()
		if err != nil {
			return err
		}
		logger := newLogger(root)

		scanResult, err := lockfile.Scan("package-lock.json", logger)
		if err != nil && !isUsageOnlyScanError(err) {
			return err
		}
		if scanResult != nil && scanResult.HasGit {
			ctx, cancel := interruptContext()
			resolved := resolveDependencies(ctx, root, scanResult.Dependencies, logger)
			if len(resolved) > 0 {
				authRecord, err := loadAuth(root)
				if err != nil {
					cancel()
					return err
				}
				regClient := newRegistryClient(root, authRecord)
				h := buildHierarchy(root, regClient, authRecord.Token, gcpath.Platform(), false, logger)
				outcomes := runPipeline(ctx, resolved, h, logger)
				for _, o := range outcomes {
					if o.Err != nil {
						logger.Warn("acceleration failed, npm will fetch this dependency directly", "dependency", o.Dependency.Name, "error", o.Err)
					}
				}
			}
			cancel()
		}

		npmCmd := exec.Command("npm", append([]string{"install"}, args...)...)
		npmCmd.Stdin = os.Stdin
		npmCmd.Stdout = os.Stdout
		npmCmd.Stderr = os.Stderr
		npmCmd.Env = append(os.Environ(), fmt.Sprintf("NPM_CONFIG_CACHE=%s", root))
		return npmCmd.Run()
	},
}

// isUsageOnlyScanError reports whether err is a missing-lockfile error,
// which install tolerates (there may be no Git dependencies to accelerate
// at all) rather than a malformed-lockfile error, which is still fatal.
func isUsageOnlyScanError(err error) bool {
	kind, ok := gcerrors.KindOf(err)
	return ok && kind == gcerrors.LockfileMissing
}

func init() {
	rootCmd.AddCommand(installCmd)
}
