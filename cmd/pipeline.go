package cmd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/grata-labs/gitcache/pkg/gcerrors"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/giturl"
	"github.com/grata-labs/gitcache/pkg/hierarchy"
	"github.com/grata-labs/gitcache/pkg/lockfile"
	"github.com/grata-labs/gitcache/pkg/refresolver"
)

// BuildOutcome is the per-dependency result of running the acceleration
// pipeline, matching the allSettled-style aggregation of spec §5: a
// dependency-level failure never fails the batch.
type BuildOutcome struct {
	Dependency lockfile.GitDependency
	PackageID  string
	Err        error
}

// resolveDependencies fills in ResolvedCommit for every dependency in deps,
// skipping ones that fail resolution (spec §7: RefResolutionFailed drops
// the dependency from the buildable set rather than failing the run).
// Literal 40-hex references bypass the network per spec invariant (5).
func resolveDependencies(ctx context.Context, root string, deps []lockfile.GitDependency, logger *slog.Logger) []lockfile.GitDependency {
	resolved := make([]lockfile.GitDependency, 0, len(deps))
	refsLog := gcpath.RefsLogPath(root)

	for _, dep := range deps {
		if refresolver.IsLiteralCommit(dep.Reference) {
			dep.ResolvedCommit = dep.Reference
			resolved = append(resolved, dep)
			continue
		}

		cloneURL := giturl.StripFragment(dep.PreferredURL)
		commit, err := refresolver.Resolve(ctx, cloneURL, dep.Reference)
		if err != nil {
			if logger != nil {
				logger.Warn("ref resolution failed", "dependency", dep.Name, "ref", dep.Reference, "error", err)
			}
			continue
		}

		if auditErr := refresolver.AppendAudit(refsLog, refresolver.AuditEntry{
			URL: cloneURL, Ref: dep.Reference, Commit: commit, Timestamp: time.Now(),
		}); auditErr != nil && logger != nil {
			logger.Warn("ref audit log write failed", "error", auditErr)
		}

		dep.ResolvedCommit = commit
		resolved = append(resolved, dep)
	}
	return resolved
}

// runPipeline builds (or fetches, via the cache hierarchy) a tarball for
// every resolved dependency concurrently. Building distinct (commit,
// platform) keys is explicitly parallel per spec §5; per-task failures are
// isolated and aggregated rather than aborting the batch.
func runPipeline(ctx context.Context, deps []lockfile.GitDependency, h *hierarchy.Hierarchy, logger *slog.Logger) []BuildOutcome {
	outcomes := make([]BuildOutcome, len(deps))
	var wg sync.WaitGroup

	for i, dep := range deps {
		wg.Add(1)
		go func(i int, dep lockfile.GitDependency) {
			defer wg.Done()

			if ctx.Err() != nil {
				outcomes[i] = BuildOutcome{Dependency: dep, Err: gcerrors.New(gcerrors.Cancelled, "pipeline.runPipeline", ctx.Err())}
				return
			}

			packageID := giturl.PackageID(dep.PreferredURL, dep.ResolvedCommit)
			_, err := h.Get(ctx, packageID)
			if err != nil && logger != nil {
				logger.Warn("dependency build failed", "dependency", dep.Name, "packageId", packageID, "error", err)
			}
			outcomes[i] = BuildOutcome{Dependency: dep, PackageID: packageID, Err: err}
		}(i, dep)
	}

	wg.Wait()
	return outcomes
}
