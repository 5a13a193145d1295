// Package giturl classifies and canonicalizes Git dependency URLs, and
// repairs the npm lockfile defect where an HTTPS manifest URL is silently
// rewritten to SSH in the lockfile (spec §4.2).
package giturl

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	sshURLPattern      = regexp.MustCompile(`^ssh://git@github\.com/([^/]+)/(.+?)(?:\.git)?/?$`)
	scpURLPattern      = regexp.MustCompile(`^git@github\.com:([^/]+)/(.+?)(?:\.git)?/?$`)
	githubShortPattern = regexp.MustCompile(`^github:([^/]+)/(.+?)(?:\.git)?/?$`)
	gitlabShortPattern = regexp.MustCompile(`^gitlab:([^/]+)/(.+?)(?:\.git)?/?$`)
	bitbucketShortPtn  = regexp.MustCompile(`^bitbucket:([^/]+)/(.+?)(?:\.git)?/?$`)

	// packageIDPattern matches the logical cache key "<git-url>#<commit>",
	// either a URL scheme form or the SSH-shortcut "git@host:owner/repo.git".
	packageIDPattern = regexp.MustCompile(`^(?:[a-z]+(?:\+[a-z]+)?://.+|git@[^:]+:.+)#[0-9a-f]{7,40}$`)
)

// IsGitURL reports whether s identifies a Git-sourced dependency per the
// recognized prefixes and shorthand schemes.
func IsGitURL(s string) bool {
	switch {
	case strings.HasPrefix(s, "git+"):
		return true
	case strings.HasPrefix(s, "git://"):
		return true
	case strings.HasPrefix(s, "git@"):
		return true
	case strings.HasPrefix(s, "github:"):
		return true
	case strings.HasPrefix(s, "gitlab:"):
		return true
	case strings.HasPrefix(s, "bitbucket:"):
		return true
	case (strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")) && strings.Contains(s, ".git"):
		return true
	default:
		return false
	}
}

// Canonicalize rewrites u to its canonical HTTPS form per the ordered
// rules in spec §4.2, preserving (or restoring) a git+ prefix and any
// trailing #ref fragment.
func Canonicalize(u string) string {
	hadPrefix := strings.HasPrefix(u, "git+")
	rest := strings.TrimPrefix(u, "git+")

	base, ref := splitFragment(rest)
	rewritten, isHTTPS := rewriteToHTTPS(base)

	out := rewritten
	if ref != "" {
		out += "#" + ref
	}
	if hadPrefix || isHTTPS {
		return "git+" + out
	}
	return out
}

// splitFragment separates a trailing #ref from u, returning the base URL
// and the ref (without its leading #). ref is "" if u carries none.
func splitFragment(u string) (base, ref string) {
	idx := strings.Index(u, "#")
	if idx == -1 {
		return u, ""
	}
	return u[:idx], u[idx+1:]
}

// rewriteToHTTPS applies the ordered SSH/SCP/shorthand rewrite rules to a
// fragment-free URL, reporting whether the result is an HTTPS URL.
func rewriteToHTTPS(u string) (result string, isHTTPS bool) {
	if m := sshURLPattern.FindStringSubmatch(u); m != nil {
		return "https://github.com/" + m[1] + "/" + trimGitSuffix(m[2]) + ".git", true
	}
	if m := scpURLPattern.FindStringSubmatch(u); m != nil {
		return "https://github.com/" + m[1] + "/" + trimGitSuffix(m[2]) + ".git", true
	}
	if m := githubShortPattern.FindStringSubmatch(u); m != nil {
		return "https://github.com/" + m[1] + "/" + trimGitSuffix(m[2]) + ".git", true
	}
	if m := gitlabShortPattern.FindStringSubmatch(u); m != nil {
		return "https://gitlab.com/" + m[1] + "/" + trimGitSuffix(m[2]) + ".git", true
	}
	if m := bitbucketShortPtn.FindStringSubmatch(u); m != nil {
		return "https://bitbucket.org/" + m[1] + "/" + trimGitSuffix(m[2]) + ".git", true
	}

	if strings.HasPrefix(u, "https://") {
		return u, true
	}
	return u, false
}

func trimGitSuffix(repo string) string {
	return strings.TrimSuffix(repo, ".git")
}

// ExtractRef returns the substring after the last '#' in u, or "HEAD" if u
// carries no fragment.
func ExtractRef(u string) string {
	idx := strings.LastIndex(u, "#")
	if idx == -1 || idx == len(u)-1 {
		return "HEAD"
	}
	return u[idx+1:]
}

// StripFragment removes a trailing #fragment and/or ?query from u, leaving
// a URL suitable for handing to Git directly.
func StripFragment(u string) string {
	if idx := strings.Index(u, "#"); idx != -1 {
		u = u[:idx]
	}
	if idx := strings.Index(u, "?"); idx != -1 {
		u = u[:idx]
	}
	return u
}

// PackageID builds the canonical cache-hierarchy key "<git-url>#<commit>"
// for a fragment-stripped gitURL and a resolved commit.
func PackageID(gitURL, commit string) string {
	return fmt.Sprintf("%s#%s", StripFragment(gitURL), commit)
}

// ValidatePackageID reports whether id matches the logical key shape the
// spec mandates: a URL (or SSH-shortcut) followed by "#" and a 7-40 hex
// commit.
func ValidatePackageID(id string) bool {
	return packageIDPattern.MatchString(id)
}

// PreferredURL implements the manifest-vs-lockfile policy of spec §4.2:
// when both URLs are present, the manifest URL wins (it predates npm's
// SSH rewrite); otherwise the lockfile URL is used.
func PreferredURL(manifestURL, lockfileURL string) string {
	if manifestURL != "" {
		return Canonicalize(manifestURL)
	}
	return Canonicalize(lockfileURL)
}
