// Package prune enforces the LRU size bound on the local tarball cache,
// scanning the tarballs subtree the way the rest of this codebase scans a
// resource directory for orphaned or oversized entries, then evicting the
// least-recently-touched artifact directories until the store is back
// within bound.
package prune

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/grata-labs/gitcache/pkg/gcerrors"
	"github.com/grata-labs/gitcache/pkg/gcmetrics"
)

var artifactDirPattern = regexp.MustCompile(`^[0-9a-f]{40}-.+$`)

// unitMultipliers are the supported size units, powers of 1024, matched
// case-insensitively.
var unitMultipliers = map[string]int64{
	"B":  1,
	"KB": 1 << 10,
	"MB": 1 << 20,
	"GB": 1 << 30,
	"TB": 1 << 40,
}

// ParseSize parses a human size string like "500MB" into bytes. Returns
// InvalidSize (via gcerrors) on any unrecognized unit or unparsable number.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	upper := strings.ToUpper(s)

	for _, unit := range []string{"TB", "GB", "MB", "KB", "B"} {
		if strings.HasSuffix(upper, unit) {
			numPart := strings.TrimSpace(s[:len(s)-len(unit)])
			n, err := strconv.ParseFloat(numPart, 64)
			if err != nil {
				return 0, gcerrors.New(gcerrors.InvalidSize, "prune.ParseSize", fmt.Errorf("invalid size %q: %w", s, err))
			}
			return int64(n * float64(unitMultipliers[unit])), nil
		}
	}
	return 0, gcerrors.New(gcerrors.InvalidSize, "prune.ParseSize", fmt.Errorf("invalid size %q: unrecognized unit", s))
}

// artifact is one tarball directory under scan.
type artifact struct {
	dir        string
	sizeBytes  int64
	accessTime int64 // unix seconds, from package.tgz's mtime
}

// Result is the accounting returned by Prune.
type Result struct {
	Scanned     int
	Deleted     int
	SpaceSaved  int64
	WithinLimit bool
}

// Prune enumerates artifact directories under tarballsRoot, and if their
// aggregate size exceeds boundBytes, deletes directories by ascending
// accessTime (package.tgz's mtime) until the total is back within bound.
// dryRun performs the same accounting without deleting anything.
func Prune(tarballsRoot string, boundBytes int64, dryRun bool) (Result, error) {
	artifacts, err := scan(tarballsRoot)
	if err != nil {
		return Result{}, gcerrors.New(gcerrors.PruneScanError, "prune.Prune", err)
	}

	var total int64
	for _, a := range artifacts {
		total += a.sizeBytes
	}

	result := Result{Scanned: len(artifacts)}
	if total <= boundBytes {
		result.WithinLimit = true
		return result, nil
	}

	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].accessTime < artifacts[j].accessTime })

	for _, a := range artifacts {
		if total <= boundBytes {
			break
		}
		if dryRun {
			total -= a.sizeBytes
			result.Deleted++
			result.SpaceSaved += a.sizeBytes
			continue
		}
		if err := os.RemoveAll(a.dir); err != nil {
			continue
		}
		total -= a.sizeBytes
		result.Deleted++
		result.SpaceSaved += a.sizeBytes
	}
	result.WithinLimit = total <= boundBytes
	if !dryRun && result.SpaceSaved > 0 {
		gcmetrics.BytesPruned.Add(float64(result.SpaceSaved))
	}
	return result, nil
}

func scan(tarballsRoot string) ([]artifact, error) {
	entries, err := os.ReadDir(tarballsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading tarballs root: %w", err)
	}

	var artifacts []artifact
	for _, entry := range entries {
		if !entry.IsDir() || !artifactDirPattern.MatchString(entry.Name()) {
			continue
		}
		tarPath := filepath.Join(tarballsRoot, entry.Name(), "package.tgz")
		info, err := os.Stat(tarPath)
		if err != nil {
			continue
		}
		artifacts = append(artifacts, artifact{
			dir:        filepath.Join(tarballsRoot, entry.Name()),
			sizeBytes:  info.Size(),
			accessTime: info.ModTime().Unix(),
		})
	}
	return artifacts, nil
}
