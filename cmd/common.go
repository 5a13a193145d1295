package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/grata-labs/gitcache/pkg/auth"
	"github.com/grata-labs/gitcache/pkg/contentcache"
	"github.com/grata-labs/gitcache/pkg/gcerrors"
	"github.com/grata-labs/gitcache/pkg/gclog"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/hierarchy"
	"github.com/grata-labs/gitcache/pkg/registry"
	"github.com/grata-labs/gitcache/pkg/tarball"
	"github.com/spf13/viper"
)

// isCancellation reports whether err represents a user-initiated
// cancellation (spec exit code 130), as opposed to a usage/runtime error.
func isCancellation(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	kind, ok := gcerrors.KindOf(err)
	return ok && kind == gcerrors.Cancelled
}

// interruptContext derives a context cancelled on SIGINT, so the tarball
// builder's scoped cleanup runs before the process exits, per spec §5.
func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// cacheRoot resolves and ensures <home>/.gitcache exists.
func cacheRoot() (string, error) {
	root, err := gcpath.Root()
	if err != nil {
		return "", err
	}
	if err := gcpath.EnsureDir(root); err != nil {
		return "", err
	}
	return root, nil
}

// newLogger builds the file-backed structured logger, honoring
// GITCACHE_VERBOSE. Logger construction failures degrade to a discard
// logger rather than failing the command: logging is an ambient concern,
// never load-bearing for pipeline correctness.
func newLogger(root string) *slog.Logger {
	level := gclog.LevelFromVerbose(viper.GetBool("GITCACHE_VERBOSE"))
	logger, err := gclog.New(root, level)
	if err != nil {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	return logger
}

// loadAuth reads the persisted auth record, falling back to GITCACHE_TOKEN
// when no record has been issued yet (e.g. a CI environment that only sets
// the env var).
func loadAuth(root string) (auth.Record, error) {
	record, err := auth.Load(gcpath.AuthPath(root))
	if err != nil {
		return auth.Record{}, err
	}
	if record.Token == "" {
		if envToken := viper.GetString("GITCACHE_TOKEN"); envToken != "" {
			return auth.Issue(envToken), nil
		}
	}
	return record, nil
}

// newRegistryClient constructs a registry.Client bound to record and the
// configured (or default) API base URL. Passing the full record (rather
// than a bare token) lets the client refresh-before-dispatch per spec
// §4.7: record.NeedsRefresh gates the refresh, and a successful refresh is
// persisted back to auth.json via OnRefreshed.
func newRegistryClient(root string, record auth.Record) *registry.Client {
	return registry.New(registry.Config{
		BaseURL:     viper.GetString("GITCACHE_API_URL"),
		Token:       record.Token,
		Verbose:     viper.GetBool("GITCACHE_VERBOSE"),
		AuthRecord:  record,
		Refresh:     registryTokenRefresher,
		OnRefreshed: persistRefreshedAuth(root),
	})
}

// registryTokenRefresher is the TokenRefresher wired into every
// registry.Client: spec §4.10 treats the actual token exchange as an
// opaque, out-of-core-scope callable, and this CLI does not expose one
// itself, so it reports failure. currentToken falls back to the existing
// (possibly stale) token on a refresher error, and a resulting 401
// surfaces downstream as an ordinary RegistryHttpError.
func registryTokenRefresher(ctx context.Context) (string, error) {
	return "", fmt.Errorf("automatic token refresh is not available; run 'gitcache auth login' again")
}

// persistRefreshedAuth returns the OnRefreshed callback that writes a
// freshly exchanged token back to auth.json, best-effort.
func persistRefreshedAuth(root string) func(auth.Record) {
	return func(r auth.Record) {
		_ = auth.Save(gcpath.AuthPath(root), r)
	}
}

// buildHierarchy composes the three-tier cache hierarchy of spec §4.8:
// Local content store, Registry, then Git (as a read-through builder keyed
// by packageID, which splitPackageID parses back into (gitURL, commit) for
// tarball.Build).
func buildHierarchy(root string, regClient *registry.Client, token string, platform string, force bool, logger *slog.Logger) *hierarchy.Hierarchy {
	local := contentcache.New(gcpath.ContentRoot(root))

	git := &hierarchy.GitStrategy{
		Build: func(ctx context.Context, packageID string) ([]byte, error) {
			gitURL, commit, err := splitPackageID(packageID)
			if err != nil {
				return nil, err
			}
			artifact, err := tarball.Build(ctx, root, gitURL, commit, tarball.Options{Force: force, Platform: platform})
			if err != nil {
				return nil, err
			}
			return os.ReadFile(artifact.TarPath)
		},
	}

	h := hierarchy.New(
		hierarchy.NewLocalStrategy(local),
		hierarchy.NewRegistryStrategy(regClient, token),
		git,
	)
	if logger != nil {
		h.OnError(func(strategy, op string, err error) {
			logger.Warn("cache tier failed", "strategy", strategy, "op", op, "error", err)
		})
	}
	return h
}

// viperSetVerbose overrides GITCACHE_VERBOSE for the current process,
// letting a --verbose flag take precedence over the environment the way
// the teacher's per-command flags shadow viper-bound env vars.
func viperSetVerbose() {
	viper.Set("GITCACHE_VERBOSE", true)
}

// splitPackageID reverses giturl.PackageID: "<gitURL>#<commit>" ->
// (gitURL, commit).
func splitPackageID(packageID string) (gitURL, commit string, err error) {
	idx := strings.LastIndex(packageID, "#")
	if idx == -1 {
		return "", "", fmt.Errorf("malformed packageId %q: missing commit fragment", packageID)
	}
	return packageID[:idx], packageID[idx+1:], nil
}
