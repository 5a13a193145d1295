package gcpath

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRoot(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory available: %v", err)
	}

	root, err := Root()
	if err != nil {
		t.Fatalf("Root() error: %v", err)
	}
	want := filepath.Join(home, ".gitcache")
	if root != want {
		t.Fatalf("Root() = %q, want %q", root, want)
	}
}

func TestArtifactDir(t *testing.T) {
	dir := ArtifactDir("/cache", "abc123", "linux-amd64")
	if !strings.HasSuffix(dir, filepath.Join("tarballs", "abc123-linux-amd64")) {
		t.Fatalf("ArtifactDir() = %q, unexpected shape", dir)
	}
}

func TestPlatformStable(t *testing.T) {
	a := Platform()
	b := Platform()
	if a != b {
		t.Fatalf("Platform() not stable across calls: %q vs %q", a, b)
	}
	if strings.ToLower(a) != a {
		t.Fatalf("Platform() = %q, want lowercase", a)
	}
	if !strings.Contains(a, "-") {
		t.Fatalf("Platform() = %q, want hyphen-joined", a)
	}
}
