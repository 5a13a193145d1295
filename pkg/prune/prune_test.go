package prune

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"500MB": 500 * (1 << 20),
		"1GB":   1 << 30,
		"10KB":  10 * (1 << 10),
		"100B":  100,
		"2TB":   2 * (1 << 40),
		"1.5GB": int64(1.5 * float64(1<<30)),
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		if err != nil {
			t.Fatalf("ParseSize(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseSize(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseSize_Invalid(t *testing.T) {
	if _, err := ParseSize("not-a-size"); err == nil {
		t.Fatal("expected error for invalid size")
	}
}

func makeArtifact(t *testing.T, root, name string, size int, age time.Duration) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	tarPath := filepath.Join(dir, "package.tgz")
	if err := os.WriteFile(tarPath, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(tarPath, mtime, mtime); err != nil {
		t.Fatal(err)
	}
}

func TestPrune_WithinLimitDeletesNothing(t *testing.T) {
	root := t.TempDir()
	makeArtifact(t, root, "abc123def456abc123def456abc123def456abcd-linux-amd64", 100, time.Hour)

	result, err := Prune(root, 10_000, false)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if !result.WithinLimit || result.Deleted != 0 {
		t.Fatalf("expected no deletions, got %+v", result)
	}
}

func TestPrune_EvictsOldestFirst(t *testing.T) {
	root := t.TempDir()
	oldName := "1111111111111111111111111111111111111111-linux-amd64"
	newName := "2222222222222222222222222222222222222222-linux-amd64"
	makeArtifact(t, root, oldName, 1000, 2*time.Hour)
	makeArtifact(t, root, newName, 1000, time.Minute)

	result, err := Prune(root, 1000, false)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if result.Deleted != 1 {
		t.Fatalf("expected 1 deletion, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(root, oldName)); !os.IsNotExist(err) {
		t.Error("expected the older artifact to be deleted")
	}
	if _, err := os.Stat(filepath.Join(root, newName)); err != nil {
		t.Error("expected the newer artifact to survive")
	}
}

func TestPrune_DryRunDeletesNothing(t *testing.T) {
	root := t.TempDir()
	name := "3333333333333333333333333333333333333333-linux-amd64"
	makeArtifact(t, root, name, 1000, time.Hour)

	result, err := Prune(root, 100, true)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if result.Deleted != 1 || result.SpaceSaved != 1000 {
		t.Fatalf("expected dry-run accounting of 1 deletion, got %+v", result)
	}
	if _, err := os.Stat(filepath.Join(root, name)); err != nil {
		t.Fatal("dry-run must not actually delete the artifact")
	}
}

func TestPrune_IgnoresNonMatchingDirs(t *testing.T) {
	root := t.TempDir()
	os.MkdirAll(filepath.Join(root, "not-a-hash-dir"), 0755)

	result, err := Prune(root, 0, false)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if result.Scanned != 0 {
		t.Fatalf("expected non-matching directory to be ignored, got %+v", result)
	}
}

func TestPrune_MissingRootIsEmptyNotError(t *testing.T) {
	result, err := Prune(filepath.Join(t.TempDir(), "nonexistent"), 1000, false)
	if err != nil {
		t.Fatalf("Prune() error: %v", err)
	}
	if result.Scanned != 0 {
		t.Fatalf("expected 0 scanned for missing root, got %+v", result)
	}
}
