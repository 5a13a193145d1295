package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, email, orgID string) string {
	t.Helper()
	claims := jwt.MapClaims{"email": email, "orgId": orgID}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("unused-signing-key"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return signed
}

func TestClassify(t *testing.T) {
	if Classify("ci_abc123") != KindCI {
		t.Error("expected ci_-prefixed token to classify as CI")
	}
	if Classify("usertoken123") != KindUser {
		t.Error("expected unprefixed token to classify as user")
	}
}

func TestIssue_CITokenNeverExpires(t *testing.T) {
	r := Issue("ci_abc123")
	if r.Kind != KindCI {
		t.Fatalf("Kind = %v, want KindCI", r.Kind)
	}
	if !r.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero value for a CI token", r.ExpiresAt)
	}
	if !r.IsAuthenticated() {
		t.Error("expected a freshly issued CI token to be authenticated")
	}
}

func TestIssue_UserTokenGetsExpiry(t *testing.T) {
	r := Issue(signToken(t, "dev@example.com", "org-1"))
	if r.Kind != KindUser {
		t.Fatalf("Kind = %v, want KindUser", r.Kind)
	}
	if r.ExpiresAt.IsZero() {
		t.Error("expected a user token to get a recorded expiry")
	}
	if r.Email != "dev@example.com" || r.OrgID != "org-1" {
		t.Errorf("claims = %+v, want email/orgId populated from the token", r)
	}
	if !r.IsAuthenticated() {
		t.Error("expected a freshly issued user token to be authenticated")
	}
}

func TestIsAuthenticated_ExpiredUserToken(t *testing.T) {
	r := Record{Token: "usertoken", Kind: KindUser, ExpiresAt: time.Now().Add(-time.Hour)}
	if r.IsAuthenticated() {
		t.Fatal("expected an expired user token to not be authenticated")
	}
}

func TestIsAuthenticated_EmptyToken(t *testing.T) {
	if (Record{}).IsAuthenticated() {
		t.Fatal("expected an empty record to not be authenticated")
	}
}

func TestNeedsRefresh(t *testing.T) {
	soon := Record{Token: "t", Kind: KindUser, ExpiresAt: time.Now().Add(2 * time.Hour)}
	if !soon.NeedsRefresh(24 * time.Hour) {
		t.Error("expected a token expiring within threshold to need refresh")
	}

	later := Record{Token: "t", Kind: KindUser, ExpiresAt: time.Now().Add(48 * time.Hour)}
	if later.NeedsRefresh(24 * time.Hour) {
		t.Error("expected a token expiring beyond threshold to not need refresh")
	}

	ci := Record{Token: "ci_t", Kind: KindCI}
	if ci.NeedsRefresh(24 * time.Hour) {
		t.Error("expected a CI token to never need refresh")
	}
}

func TestRefreshIfNeeded_CallsRefreshOnlyWhenNeeded(t *testing.T) {
	called := false
	refresh := func(ctx context.Context, current Record) (Record, error) {
		called = true
		return Issue("new-user-token"), nil
	}

	fresh := Record{Token: "t", Kind: KindUser, ExpiresAt: time.Now().Add(48 * time.Hour)}
	if _, err := RefreshIfNeeded(context.Background(), fresh, 24*time.Hour, refresh); err != nil {
		t.Fatalf("RefreshIfNeeded() error: %v", err)
	}
	if called {
		t.Error("expected refresh not to be called for a token far from expiry")
	}

	expiring := Record{Token: "t", Kind: KindUser, ExpiresAt: time.Now().Add(time.Hour)}
	if _, err := RefreshIfNeeded(context.Background(), expiring, 24*time.Hour, refresh); err != nil {
		t.Fatalf("RefreshIfNeeded() error: %v", err)
	}
	if !called {
		t.Error("expected refresh to be called for a token near expiry")
	}
}

func TestSaveLoadLogout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")

	r := Issue("ci_abc123")
	if err := Save(path, r); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Token != r.Token {
		t.Errorf("loaded.Token = %q, want %q", loaded.Token, r.Token)
	}

	if err := Logout(path); err != nil {
		t.Fatalf("Logout() error: %v", err)
	}
	afterLogout, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after logout error: %v", err)
	}
	if afterLogout.IsAuthenticated() {
		t.Fatal("expected logout to clear authentication")
	}
}

func TestLoad_MissingFileIsUnauthenticatedNotError(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "auth.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if r.IsAuthenticated() {
		t.Fatal("expected a missing auth file to be unauthenticated")
	}
}
