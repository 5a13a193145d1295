// Package refresolver turns a symbolic Git reference (tag, branch, or HEAD)
// into an immutable 40-hex commit, without cloning the repository, by
// listing the remote's advertised references over the Git smart-HTTP/SSH
// protocol.
package refresolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/protocol/packp"
	"github.com/go-git/go-git/v5/plumbing/transport"
	transportclient "github.com/go-git/go-git/v5/plumbing/transport/client"

	"github.com/grata-labs/gitcache/pkg/gcerrors"
)

// Timeout bounds a single ref-listing invocation (spec: 30s per call).
const Timeout = 30 * time.Second

var hexCommitPattern = regexp.MustCompile(`^[0-9a-f]{40}$`)

// IsLiteralCommit reports whether ref is already a 40-hex commit, in which
// case no resolution is required.
func IsLiteralCommit(ref string) bool {
	return hexCommitPattern.MatchString(ref)
}

// Resolve lists refs advertised by url and resolves ref (a tag, branch, or
// "HEAD") to its commit. If the listing carries no match for ref and ref is
// not already "HEAD", it recurses once against HEAD. The returned commit is
// always validated against the 40-hex shape; any failure returns
// RefResolutionFailed.
func Resolve(ctx context.Context, url, ref string) (string, error) {
	listCtx, cancel := context.WithTimeout(ctx, Timeout)
	defer cancel()

	ar, err := listRefs(listCtx, url)
	if err != nil {
		return "", gcerrors.New(gcerrors.RefResolutionFailed, "refresolver.Resolve", err)
	}

	commit, found := matchRef(ar, ref)
	if !found {
		if ref != "HEAD" {
			return Resolve(ctx, url, "HEAD")
		}
		return "", gcerrors.New(gcerrors.RefResolutionFailed, "refresolver.Resolve",
			fmt.Errorf("no ref matching %q advertised by %s", ref, url))
	}

	if !hexCommitPattern.MatchString(commit) {
		return "", gcerrors.New(gcerrors.RefResolutionFailed, "refresolver.Resolve",
			fmt.Errorf("candidate %q for ref %q is not a 40-hex commit", commit, ref))
	}
	return commit, nil
}

func listRefs(ctx context.Context, url string) (*packp.AdvRefs, error) {
	ep, err := transport.NewEndpoint(url)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint %s: %w", url, err)
	}

	cli, err := transportclient.NewClient(ep)
	if err != nil {
		return nil, fmt.Errorf("creating transport for %s: %w", url, err)
	}

	sess, err := cli.NewUploadPackSession(ep, nil)
	if err != nil {
		return nil, fmt.Errorf("opening session for %s: %w", url, err)
	}
	defer func() { _ = sess.Close() }()

	ar, err := sess.AdvertisedReferencesContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing refs for %s: %w", url, err)
	}
	return ar, nil
}

// matchRef parses the advertised references the way the first line of
// `git ls-remote <url> <ref>` would: peeled (dereferenced) tags take
// priority over lightweight tags, which take priority over branches.
func matchRef(ar *packp.AdvRefs, ref string) (string, bool) {
	if ref == "HEAD" {
		if hash, ok := ar.References[plumbing.HEAD.String()]; ok {
			return hash.String(), true
		}
	}

	candidates := []string{
		"refs/tags/" + ref,
		"refs/heads/" + ref,
	}

	for _, candidate := range candidates {
		if hash, ok := ar.Peeled[candidate]; ok {
			return hash.String(), true
		}
	}
	for _, candidate := range candidates {
		if hash, ok := ar.References[candidate]; ok {
			return hash.String(), true
		}
	}
	return "", false
}

// AuditEntry is one line of the append-only resolution log.
type AuditEntry struct {
	URL       string
	Ref       string
	Commit    string
	Timestamp time.Time
}

// AppendAudit appends a resolution record to logPath. Failures to write are
// intentionally swallowed by the caller (the spec treats audit-log write
// failures as non-fatal); AppendAudit itself still returns the error so the
// caller can choose to log it.
func AppendAudit(logPath string, entry AuditEntry) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	line := fmt.Sprintf("%s\t%s\t%s\t%s\n",
		entry.URL, entry.Ref, entry.Commit, entry.Timestamp.UTC().Format(time.RFC3339))
	_, err = f.WriteString(line)
	return err
}
