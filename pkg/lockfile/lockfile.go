// Package lockfile scans an npm lockfile for Git-sourced dependencies
// across the two schema shapes the host package manager has shipped
// (nested v1 trees, flat v2+ package maps), side-loading the sibling
// manifest to repair the SSH-rewrite defect described in pkg/giturl.
package lockfile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/grata-labs/gitcache/pkg/gcerrors"
	"github.com/grata-labs/gitcache/pkg/giturl"
)

// manifestSections are the four standard dependency sections a package.json
// may declare; any of them may carry a Git-sourced versionSpec.
var manifestSections = []string{
	"dependencies",
	"devDependencies",
	"peerDependencies",
	"optionalDependencies",
}

// GitDependency is one record per Git-sourced package occurrence in a
// lockfile. ResolvedCommit is left empty until the ref resolver fills it.
type GitDependency struct {
	Name           string `json:"name"`
	ManifestURL    string `json:"manifestUrl,omitempty"`
	LockfileURL    string `json:"lockfileUrl"`
	PreferredURL   string `json:"preferredUrl"`
	Reference      string `json:"reference"`
	ResolvedCommit string `json:"resolvedCommit,omitempty"`
	Integrity      string `json:"integrity,omitempty"`
}

// LockfileScanResult is the immutable result of scanning one lockfile.
type LockfileScanResult struct {
	SchemaVersion int             `json:"schemaVersion"`
	Dependencies  []GitDependency `json:"dependencies"`
	HasGit        bool            `json:"hasGit"`
}

type v1Entry struct {
	Resolved     string             `json:"resolved"`
	Integrity    string             `json:"integrity"`
	Dependencies map[string]v1Entry `json:"dependencies"`
}

type v1Lockfile struct {
	LockfileVersion int                `json:"lockfileVersion"`
	Dependencies    map[string]v1Entry `json:"dependencies"`
}

type v2Entry struct {
	Name      string `json:"name"`
	Resolved  string `json:"resolved"`
	Integrity string `json:"integrity"`
}

type v2Lockfile struct {
	LockfileVersion int                `json:"lockfileVersion"`
	Packages        map[string]v2Entry `json:"packages"`
}

// Scan reads the lockfile at path and emits a GitDependency for every
// Git-sourced entry, honoring the v1/v2+ schema split and the
// manifest-vs-lockfile URL preference policy. logger may be nil; when
// non-nil, a sibling manifest that fails to parse is logged as a warning
// rather than failing the scan.
func Scan(path string, logger *slog.Logger) (*LockfileScanResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, gcerrors.New(gcerrors.LockfileMissing, "lockfile.Scan", err)
		}
		return nil, gcerrors.New(gcerrors.LocalIoError, "lockfile.Scan", err)
	}

	var meta struct {
		LockfileVersion int             `json:"lockfileVersion"`
		Packages        json.RawMessage `json:"packages"`
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, gcerrors.New(gcerrors.LockfileMalformed, "lockfile.Scan", err)
	}

	manifestURLs := loadManifestGitURLs(filepath.Dir(path), logger)

	schemaVersion := meta.LockfileVersion
	if schemaVersion == 0 {
		schemaVersion = 1
	}

	var deps []GitDependency
	if schemaVersion >= 2 && len(meta.Packages) > 0 {
		deps, err = scanV2(raw, manifestURLs)
	} else {
		deps, err = scanV1(raw, manifestURLs)
	}
	if err != nil {
		return nil, gcerrors.New(gcerrors.LockfileMalformed, "lockfile.Scan", err)
	}

	return &LockfileScanResult{
		SchemaVersion: schemaVersion,
		Dependencies:  deps,
		HasGit:        len(deps) > 0,
	}, nil
}

func scanV1(raw []byte, manifestURLs map[string]string) ([]GitDependency, error) {
	var lf v1Lockfile
	if err := json.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("parsing v1 lockfile: %w", err)
	}

	var deps []GitDependency
	var walk func(tree map[string]v1Entry)
	walk = func(tree map[string]v1Entry) {
		for name, entry := range tree {
			if giturl.IsGitURL(entry.Resolved) {
				deps = append(deps, newGitDependency(name, entry.Resolved, entry.Integrity, manifestURLs))
			}
			if entry.Dependencies != nil {
				walk(entry.Dependencies)
			}
		}
	}
	walk(lf.Dependencies)
	return deps, nil
}

func scanV2(raw []byte, manifestURLs map[string]string) ([]GitDependency, error) {
	var lf v2Lockfile
	if err := json.Unmarshal(raw, &lf); err != nil {
		return nil, fmt.Errorf("parsing v2+ lockfile: %w", err)
	}

	var deps []GitDependency
	for path, entry := range lf.Packages {
		if !giturl.IsGitURL(entry.Resolved) {
			continue
		}
		name := entry.Name
		if name == "" {
			name = nameFromPackagePath(path)
		}
		deps = append(deps, newGitDependency(name, entry.Resolved, entry.Integrity, manifestURLs))
	}
	return deps, nil
}

func newGitDependency(name, lockfileURL, integrity string, manifestURLs map[string]string) GitDependency {
	manifestURL := manifestURLs[name]
	return GitDependency{
		Name:         name,
		ManifestURL:  manifestURL,
		LockfileURL:  lockfileURL,
		PreferredURL: giturl.PreferredURL(manifestURL, lockfileURL),
		Reference:    giturl.ExtractRef(lockfileURL),
		Integrity:    integrity,
	}
}

// nameFromPackagePath derives a package name from a v2+ packages key, e.g.
// "node_modules/lodash" -> "lodash", "node_modules/@scope/pkg" -> "@scope/pkg".
func nameFromPackagePath(path string) string {
	idx := strings.LastIndex(path, "node_modules/")
	if idx == -1 {
		return path
	}
	rest := path[idx+len("node_modules/"):]
	if strings.HasPrefix(rest, "@") {
		parts := strings.SplitN(rest, "/", 3)
		if len(parts) >= 2 {
			return parts[0] + "/" + parts[1]
		}
	}
	parts := strings.SplitN(rest, "/", 2)
	return parts[0]
}

type packageManifest struct {
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

func (m packageManifest) section(name string) map[string]string {
	switch name {
	case "dependencies":
		return m.Dependencies
	case "devDependencies":
		return m.DevDependencies
	case "peerDependencies":
		return m.PeerDependencies
	case "optionalDependencies":
		return m.OptionalDependencies
	default:
		return nil
	}
}

// loadManifestGitURLs side-loads the sibling package.json and returns the
// {name -> versionSpec} mapping restricted to Git-sourced entries across
// the four standard dependency sections. Any failure to read or parse the
// manifest is a warning, not a failure: an empty map is returned.
func loadManifestGitURLs(dir string, logger *slog.Logger) map[string]string {
	result := make(map[string]string)

	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		if logger != nil && !os.IsNotExist(err) {
			logger.Warn("reading sibling manifest", "error", err)
		}
		return result
	}

	var manifest packageManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		if logger != nil {
			logger.Warn("parsing sibling manifest", "error", err)
		}
		return result
	}

	for _, section := range manifestSections {
		for name, spec := range manifest.section(section) {
			if giturl.IsGitURL(spec) {
				result[name] = spec
			}
		}
	}
	return result
}
