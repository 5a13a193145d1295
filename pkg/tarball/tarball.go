// Package tarball builds content-addressed npm package tarballs from a Git
// commit: shallow clone, checkout, install, pack, and persist with an
// integrity hash and metadata record. It is grounded on the same external
// process orchestration shape as a plain `git clone`/`npm pack` pipeline,
// but drives Git through go-git rather than shelling out to the git binary.
package tarball

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/grata-labs/gitcache/pkg/gcerrors"
	"github.com/grata-labs/gitcache/pkg/gcmetrics"
	"github.com/grata-labs/gitcache/pkg/gcpath"
	"github.com/grata-labs/gitcache/pkg/giturl"
)

const defaultPackFilename = "package.tgz"

// PackageInfo mirrors the name/version pair the host package manager
// reports for the packed project, when discoverable.
type PackageInfo struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`
}

// Metadata is the persistent record written alongside package.tgz.
type Metadata struct {
	GitURL      string       `json:"gitUrl"`
	Commit      string       `json:"commit"`
	Platform    string       `json:"platform"`
	Integrity   string       `json:"integrity"`
	BuildTime   string       `json:"buildTime"`
	PackageInfo *PackageInfo `json:"packageInfo,omitempty"`
}

// Options configures a single build invocation.
type Options struct {
	Force            bool
	SkipBuildScripts bool
	Platform         string
}

// Artifact is the return value of Build: the on-disk location plus its
// metadata record.
type Artifact struct {
	Dir      string
	TarPath  string
	MetaPath string
	Metadata Metadata
}

func artifactPaths(cacheRoot, commit, platform string) (dir, tarPath, metaPath string) {
	dir = gcpath.ArtifactDir(cacheRoot, commit, platform)
	tarPath = filepath.Join(dir, defaultPackFilename)
	metaPath = filepath.Join(dir, "metadata.json")
	return
}

// Build produces (or reuses) the tarball for (gitURL, commit) on the given
// platform. It implements the fast path (existing complete artifact) and the
// slow path (clone/checkout/install/pack) described by the tarball builder
// contract.
func Build(ctx context.Context, cacheRoot, gitURL, commit string, opts Options) (*Artifact, error) {
	platform := opts.Platform
	if platform == "" {
		platform = gcpath.Platform()
	}

	dir, tarPath, metaPath := artifactPaths(cacheRoot, commit, platform)

	if !opts.Force {
		if artifact, ok := readExisting(dir, tarPath, metaPath); ok {
			return artifact, nil
		}
	}

	return buildSlow(ctx, dir, tarPath, metaPath, gitURL, commit, platform, opts)
}

// buildSlow runs the clone/checkout/install/pack slow path, dispatched to
// the Git origin tier. Its outcome (success/failure) is counted by
// gcmetrics.BuildsTotal, distinct from the fast path's cache reuse.
func buildSlow(ctx context.Context, dir, tarPath, metaPath, gitURL, commit, platform string, opts Options) (artifact *Artifact, err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		gcmetrics.BuildsTotal.WithLabelValues(outcome).Inc()
	}()

	tmpDir, err := os.MkdirTemp("", "gitcache-build-*")
	if err != nil {
		return nil, gcerrors.New(gcerrors.LocalIoError, "tarball.Build", err)
	}
	defer os.RemoveAll(tmpDir)

	cloneURL := giturl.StripFragment(gitURL)

	repo, err := shallowClone(ctx, cloneURL, tmpDir)
	if err != nil {
		return nil, gcerrors.New(gcerrors.CheckoutFailed, "tarball.Build", err)
	}
	if err := materializeCommit(ctx, repo, commit); err != nil {
		return nil, gcerrors.New(gcerrors.CheckoutFailed, "tarball.Build", err)
	}

	if err := installDependencies(ctx, tmpDir, opts.SkipBuildScripts); err != nil {
		return nil, gcerrors.New(gcerrors.InstallFailed, "tarball.Build", err)
	}

	if !opts.SkipBuildScripts && declaresPrepareHook(tmpDir) {
		runPrepareHook(ctx, tmpDir)
	}

	packedName, err := pack(ctx, tmpDir)
	if err != nil {
		return nil, gcerrors.New(gcerrors.PackFailed, "tarball.Build", err)
	}

	if err := gcpath.EnsureDir(dir); err != nil {
		return nil, gcerrors.New(gcerrors.LocalIoError, "tarball.Build", err)
	}

	srcTar := filepath.Join(tmpDir, packedName)
	stagingTar := tarPath + ".tmp"
	if err := moveFile(srcTar, stagingTar); err != nil {
		return nil, gcerrors.New(gcerrors.PackFailed, "tarball.Build", err)
	}
	if err := os.Rename(stagingTar, tarPath); err != nil {
		return nil, gcerrors.New(gcerrors.PackFailed, "tarball.Build", err)
	}

	integrity, err := computeIntegrity(tarPath)
	if err != nil {
		return nil, gcerrors.New(gcerrors.IntegrityFailed, "tarball.Build", err)
	}

	meta := Metadata{
		GitURL:      cloneURL,
		Commit:      commit,
		Platform:    platform,
		Integrity:   integrity,
		BuildTime:   time.Now().UTC().Format(time.RFC3339),
		PackageInfo: readPackageInfo(tmpDir),
	}
	if err := writeMetadata(metaPath, meta); err != nil {
		return nil, gcerrors.New(gcerrors.LocalIoError, "tarball.Build", err)
	}

	return &Artifact{Dir: dir, TarPath: tarPath, MetaPath: metaPath, Metadata: meta}, nil
}

// readExisting implements the fast path: a complete artifact (both tarball
// and metadata present) is trusted without consulting the network, per the
// write-then-rename discipline that writes metadata.json last.
func readExisting(dir, tarPath, metaPath string) (*Artifact, bool) {
	if _, err := os.Stat(tarPath); err != nil {
		return nil, false
	}
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, false
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, false
	}
	return &Artifact{Dir: dir, TarPath: tarPath, MetaPath: metaPath, Metadata: meta}, true
}

func shallowClone(ctx context.Context, url, dir string) (*git.Repository, error) {
	repo, err := git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
		URL:   url,
		Depth: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("shallow clone %s: %w", url, err)
	}
	return repo, nil
}

// materializeCommit tests whether commit is already reachable from the
// shallow clone; if not, it unshallows (deepens) the clone before checkout.
func materializeCommit(ctx context.Context, repo *git.Repository, commit string) error {
	hash := plumbing.NewHash(commit)

	if _, err := repo.CommitObject(hash); err != nil {
		if err := deepen(ctx, repo); err != nil {
			return fmt.Errorf("unshallowing clone: %w", err)
		}
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: hash, Force: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", commit, err)
	}
	return nil
}

func deepen(ctx context.Context, repo *git.Repository) error {
	remote, err := repo.Remote("origin")
	if err != nil {
		return err
	}
	err = remote.FetchContext(ctx, &git.FetchOptions{
		Depth: 0,
		Tags:  git.AllTags,
		Force: true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return err
	}
	return nil
}

// installDependencies attempts a lockfile-based install, retrying with a
// non-lockfile install on failure. When skipBuildScripts is set the host's
// ignore-scripts flag is appended to both attempts.
func installDependencies(ctx context.Context, dir string, skipBuildScripts bool) error {
	ciArgs := []string{"ci"}
	installArgs := []string{"install"}
	if skipBuildScripts {
		ciArgs = append(ciArgs, "--ignore-scripts")
		installArgs = append(installArgs, "--ignore-scripts")
	}

	if err := runNpm(ctx, dir, ciArgs...); err == nil {
		return nil
	}
	return runNpm(ctx, dir, installArgs...)
}

func declaresPrepareHook(dir string) bool {
	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return false
	}
	var manifest struct {
		Scripts map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return false
	}
	_, ok := manifest.Scripts["prepare"]
	return ok
}

func runPrepareHook(ctx context.Context, dir string) {
	_ = runNpm(ctx, dir, "run", "prepare")
}

// pack invokes the host pack operation and returns the produced filename,
// taken from the last non-empty line of its stdout.
func pack(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "npm", "pack")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("npm pack: %w", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			return line, nil
		}
	}
	return defaultPackFilename, nil
}

func runNpm(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "npm", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("npm %s: %w\n%s", strings.Join(args, " "), err, out)
	}
	return nil
}

func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Cross-device rename: fall back to copy then remove.
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return err
	}
	return os.Remove(src)
}

func computeIntegrity(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return "sha256-" + base64.StdEncoding.EncodeToString(sum[:]), nil
}

func readPackageInfo(dir string) *PackageInfo {
	raw, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return nil
	}
	var info PackageInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil
	}
	if info.Name == "" {
		return nil
	}
	return &info
}

func writeMetadata(path string, meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
