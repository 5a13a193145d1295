package tarball

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestReadExisting_FastPath(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, defaultPackFilename)
	metaPath := filepath.Join(dir, "metadata.json")

	if err := os.WriteFile(tarPath, []byte("fake tarball"), 0644); err != nil {
		t.Fatal(err)
	}
	meta := Metadata{GitURL: "https://github.com/foo/bar.git", Commit: "abc123", Platform: "linux-amd64"}
	if err := writeMetadata(metaPath, meta); err != nil {
		t.Fatal(err)
	}

	artifact, ok := readExisting(dir, tarPath, metaPath)
	if !ok {
		t.Fatal("expected fast path to find the existing artifact")
	}
	if artifact.Metadata.Commit != "abc123" {
		t.Errorf("Commit = %q, want abc123", artifact.Metadata.Commit)
	}
}

func TestReadExisting_MissingTarball(t *testing.T) {
	dir := t.TempDir()
	if _, ok := readExisting(dir, filepath.Join(dir, defaultPackFilename), filepath.Join(dir, "metadata.json")); ok {
		t.Fatal("expected no match when tarball is absent")
	}
}

func TestReadExisting_MissingMetadata(t *testing.T) {
	dir := t.TempDir()
	tarPath := filepath.Join(dir, defaultPackFilename)
	if err := os.WriteFile(tarPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, ok := readExisting(dir, tarPath, filepath.Join(dir, "metadata.json")); ok {
		t.Fatal("expected no match when metadata.json is absent (write-then-rename discipline)")
	}
}

func TestComputeIntegrity(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "package.tgz")
	if err := os.WriteFile(path, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	integrity, err := computeIntegrity(path)
	if err != nil {
		t.Fatalf("computeIntegrity() error: %v", err)
	}
	if integrity[:7] != "sha256-" {
		t.Errorf("integrity = %q, want sha256- prefix", integrity)
	}
}

func TestWriteMetadata_AtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata.json")
	meta := Metadata{GitURL: "https://github.com/foo/bar.git", Commit: "deadbeef", Platform: "darwin-arm64"}

	if err := writeMetadata(path, meta); err != nil {
		t.Fatalf("writeMetadata() error: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("expected .tmp staging file to be renamed away")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got Metadata
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.Commit != "deadbeef" {
		t.Errorf("Commit = %q, want deadbeef", got.Commit)
	}
}

func TestDeclaresPrepareHook(t *testing.T) {
	dir := t.TempDir()
	if declaresPrepareHook(dir) {
		t.Fatal("expected false with no package.json")
	}

	os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"scripts":{"prepare":"tsc"}}`), 0644)
	if !declaresPrepareHook(dir) {
		t.Fatal("expected true when scripts.prepare is declared")
	}
}

func TestReadPackageInfo(t *testing.T) {
	dir := t.TempDir()
	if info := readPackageInfo(dir); info != nil {
		t.Fatalf("expected nil with no package.json, got %+v", info)
	}

	os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"lodash","version":"4.17.21"}`), 0644)
	info := readPackageInfo(dir)
	if info == nil || info.Name != "lodash" || info.Version != "4.17.21" {
		t.Fatalf("readPackageInfo() = %+v, want {lodash 4.17.21}", info)
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.tgz")
	dst := filepath.Join(dir, "dst.tgz")
	os.WriteFile(src, []byte("payload"), 0644)

	if err := moveFile(src, dst); err != nil {
		t.Fatalf("moveFile() error: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatal("expected source file to be gone after move")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != "payload" {
		t.Fatalf("dst content = %q, %v; want payload", data, err)
	}
}

func TestArtifactPaths(t *testing.T) {
	dir, tarPath, metaPath := artifactPaths("/cache", "abc123", "linux-amd64")
	if filepath.Base(tarPath) != defaultPackFilename {
		t.Errorf("tarPath = %q, want base %q", tarPath, defaultPackFilename)
	}
	if filepath.Base(metaPath) != "metadata.json" {
		t.Errorf("metaPath = %q, want base metadata.json", metaPath)
	}
	if filepath.Dir(tarPath) != dir || filepath.Dir(metaPath) != dir {
		t.Errorf("tarPath/metaPath not under artifact dir %q", dir)
	}
}
