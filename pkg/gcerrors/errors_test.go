package gcerrors

import (
	"errors"
	"testing"
)

func TestFatalClassification(t *testing.T) {
	fatal := New(LockfileMissing, "scan", errors.New("no such file"))
	if !IsFatal(fatal) {
		t.Fatalf("expected LockfileMissing to be fatal")
	}

	warn := New(CheckoutFailed, "build", errors.New("checkout failed"))
	if IsFatal(warn) {
		t.Fatalf("expected CheckoutFailed to be non-fatal")
	}
}

func TestKindOf(t *testing.T) {
	err := New(RegistryQuotaExceeded, "upload", errors.New("429"))
	kind, ok := KindOf(err)
	if !ok || kind != RegistryQuotaExceeded {
		t.Fatalf("KindOf() = %v, %v; want RegistryQuotaExceeded, true", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain")); ok {
		t.Fatalf("expected plain error to not match a Kind")
	}
}

func TestUnwrap(t *testing.T) {
	root := errors.New("root cause")
	wrapped := New(InstallFailed, "npm ci", root)
	if !errors.Is(wrapped, root) {
		t.Fatalf("expected errors.Is to see through the wrapper")
	}
}

func TestNewNil(t *testing.T) {
	if New(CheckoutFailed, "op", nil) != nil {
		t.Fatalf("New() with nil err should return nil")
	}
}
