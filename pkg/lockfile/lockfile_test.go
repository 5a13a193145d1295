package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestScan_MissingFile(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "package-lock.json"), nil)
	if err == nil {
		t.Fatal("expected error for missing lockfile")
	}
}

func TestScan_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package-lock.json", "{not json")
	if _, err := Scan(path, nil); err == nil {
		t.Fatal("expected error for malformed lockfile")
	}
}

// TestScan_V2SSHDefectRepair grounds spec scenario 1: npm v7+ SSH defect
// repair. A v2 lockfile entry carries the SSH-rewritten URL; the sibling
// manifest carries the original HTTPS spec, which must win as preferredUrl.
func TestScan_V2SSHDefectRepair(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"dependencies": {
			"lodash": "git+https://github.com/lodash/lodash.git#4.17.21"
		}
	}`)
	path := writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 2,
		"packages": {
			"node_modules/lodash": {
				"resolved": "git+ssh://git@github.com/lodash/lodash.git#abc123def456abc123def456abc123def456abcd"
			}
		}
	}`)

	result, err := Scan(path, nil)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if !result.HasGit || len(result.Dependencies) != 1 {
		t.Fatalf("expected 1 git dependency, got %+v", result)
	}

	dep := result.Dependencies[0]
	wantPreferred := "git+https://github.com/lodash/lodash.git#4.17.21"
	if dep.PreferredURL != wantPreferred {
		t.Errorf("PreferredURL = %q, want %q", dep.PreferredURL, wantPreferred)
	}
	wantRef := "abc123def456abc123def456abc123def456abcd"
	if dep.Reference != wantRef {
		t.Errorf("Reference = %q, want %q", dep.Reference, wantRef)
	}
}

// TestScan_ShorthandNormalization grounds spec scenario 2: a manifest-only
// shorthand spec normalizes to its HTTPS form with a restored git+ prefix.
func TestScan_ShorthandNormalization(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{
		"dependencies": {
			"chalk": "github:chalk/chalk#v5.0.0"
		}
	}`)
	path := writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 2,
		"packages": {
			"node_modules/chalk": {
				"resolved": "github:chalk/chalk#v5.0.0"
			}
		}
	}`)

	result, err := Scan(path, nil)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(result.Dependencies) != 1 {
		t.Fatalf("expected 1 git dependency, got %+v", result)
	}
	want := "git+https://github.com/chalk/chalk.git#v5.0.0"
	if got := result.Dependencies[0].PreferredURL; got != want {
		t.Errorf("PreferredURL = %q, want %q", got, want)
	}
}

func TestScan_V1NestedTraversal(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package-lock.json", `{
		"dependencies": {
			"outer": {
				"resolved": "https://registry.npmjs.org/outer/-/outer-1.0.0.tgz",
				"dependencies": {
					"inner-git": {
						"resolved": "git+https://github.com/foo/inner.git#main"
					}
				}
			}
		}
	}`)

	result, err := Scan(path, nil)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.SchemaVersion != 1 {
		t.Fatalf("SchemaVersion = %d, want 1", result.SchemaVersion)
	}
	if len(result.Dependencies) != 1 || result.Dependencies[0].Name != "inner-git" {
		t.Fatalf("expected a single inner-git dependency, got %+v", result.Dependencies)
	}
	if result.Dependencies[0].Reference != "main" {
		t.Errorf("Reference = %q, want main", result.Dependencies[0].Reference)
	}
}

func TestScan_V2ScopedPackageName(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 3,
		"packages": {
			"node_modules/@scope/pkg": {
				"resolved": "git+https://github.com/scope/pkg.git#v1.0.0"
			}
		}
	}`)

	result, err := Scan(path, nil)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(result.Dependencies) != 1 {
		t.Fatalf("expected 1 dependency, got %+v", result.Dependencies)
	}
	if got := result.Dependencies[0].Name; got != "@scope/pkg" {
		t.Errorf("Name = %q, want @scope/pkg", got)
	}
}

func TestScan_NoGitDependencies(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 2,
		"packages": {
			"node_modules/leftpad": {
				"resolved": "https://registry.npmjs.org/leftpad/-/leftpad-1.0.0.tgz"
			}
		}
	}`)

	result, err := Scan(path, nil)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if result.HasGit {
		t.Fatalf("expected HasGit = false, got %+v", result)
	}
}

func TestScan_UnknownVersionDefaultsToV1(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 99,
		"dependencies": {
			"foo": {
				"resolved": "git+https://github.com/foo/foo.git#main"
			}
		}
	}`)

	result, err := Scan(path, nil)
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if len(result.Dependencies) != 1 {
		t.Fatalf("expected v1 fallback to find the nested dependency, got %+v", result.Dependencies)
	}
}

func TestScan_MissingManifestIsWarningNotFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "package-lock.json", `{
		"lockfileVersion": 2,
		"packages": {
			"node_modules/foo": {
				"resolved": "git+https://github.com/foo/foo.git#main"
			}
		}
	}`)

	if _, err := Scan(path, nil); err != nil {
		t.Fatalf("Scan() with no sibling manifest should succeed, got error: %v", err)
	}
}
