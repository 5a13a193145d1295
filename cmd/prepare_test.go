package cmd

import (
	"errors"
	"testing"

	"github.com/grata-labs/gitcache/pkg/lockfile"
)

func TestReportOutcomesAllSucceeded(t *testing.T) {
	outcomes := []BuildOutcome{
		{Dependency: lockfile.GitDependency{Name: "lodash"}, PackageID: "a#1"},
		{Dependency: lockfile.GitDependency{Name: "chalk"}, PackageID: "b#2"},
	}
	if err := reportOutcomes(outcomes); err != nil {
		t.Fatalf("reportOutcomes() = %v, want nil", err)
	}
}

func TestReportOutcomesPartialFailure(t *testing.T) {
	outcomes := []BuildOutcome{
		{Dependency: lockfile.GitDependency{Name: "lodash"}, PackageID: "a#1"},
		{Dependency: lockfile.GitDependency{Name: "chalk"}, Err: errors.New("clone failed")},
	}
	if err := reportOutcomes(outcomes); err != nil {
		t.Fatalf("reportOutcomes() = %v, want nil (one dependency still succeeded)", err)
	}
}

func TestReportOutcomesAllFailed(t *testing.T) {
	outcomes := []BuildOutcome{
		{Dependency: lockfile.GitDependency{Name: "lodash"}, Err: errors.New("clone failed")},
		{Dependency: lockfile.GitDependency{Name: "chalk"}, Err: errors.New("resolve failed")},
	}
	if err := reportOutcomes(outcomes); err == nil {
		t.Fatal("reportOutcomes() = nil, want error when every dependency fails")
	}
}

func TestReportOutcomesEmpty(t *testing.T) {
	if err := reportOutcomes(nil); err != nil {
		t.Fatalf("reportOutcomes(nil) = %v, want nil", err)
	}
}
