// Package auth manages the single-file token record persisted at
// <cacheRoot>/auth.json: classification of CI vs user tokens, expiry
// tracking, and unverified JWT claim extraction for display purposes. It
// follows the same load/save-a-JSON-record shape used for on-disk metadata
// elsewhere in this codebase.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// userTokenTTL is the expiry window recorded for a user token at issue.
const userTokenTTL = 30 * 24 * time.Hour

// Kind classifies a token as belonging to CI (never expires) or a user
// (30-day expiry recorded at issue).
type Kind string

const (
	KindCI   Kind = "ci"
	KindUser Kind = "user"
)

// Classify reports the Kind of token by its prefix.
func Classify(token string) Kind {
	if strings.HasPrefix(token, "ci_") {
		return KindCI
	}
	return KindUser
}

// Record is the persisted auth.json shape.
type Record struct {
	Token     string    `json:"token"`
	Kind      Kind      `json:"kind"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Email     string    `json:"email,omitempty"`
	OrgID     string    `json:"orgId,omitempty"`
}

// Claims are the unverified JWT fields surfaced for display purposes only;
// the registry, not this client, is the source of truth for authorization.
type Claims struct {
	Email string
	OrgID string
}

// ParseClaims extracts email/orgId from a JWT without verifying its
// signature: the token is only ever used as a bearer credential against the
// registry, which performs the authoritative verification.
func ParseClaims(token string) (Claims, error) {
	parser := jwt.NewParser()
	mapClaims := jwt.MapClaims{}
	_, _, err := parser.ParseUnverified(token, mapClaims)
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token claims: %w", err)
	}

	var claims Claims
	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}
	if orgID, ok := mapClaims["orgId"].(string); ok {
		claims.OrgID = orgID
	}
	return claims, nil
}

// Issue builds a Record for token, classifying it and, for user tokens,
// stamping the 30-day expiry window. JWT claim extraction failures are
// tolerated: an opaque (non-JWT) CI token is still a valid Record.
func Issue(token string) Record {
	now := time.Now().UTC()
	kind := Classify(token)

	record := Record{Token: token, Kind: kind, IssuedAt: now}
	if kind == KindUser {
		record.ExpiresAt = now.Add(userTokenTTL)
	}
	if claims, err := ParseClaims(token); err == nil {
		record.Email = claims.Email
		record.OrgID = claims.OrgID
	}
	return record
}

// IsAuthenticated reports whether r carries a non-empty, non-expired token.
func (r Record) IsAuthenticated() bool {
	if r.Token == "" {
		return false
	}
	if r.Kind == KindCI {
		return true
	}
	return time.Now().UTC().Before(r.ExpiresAt)
}

// NeedsRefresh reports whether a user token is within threshold of expiry.
// CI tokens never need refresh.
func (r Record) NeedsRefresh(threshold time.Duration) bool {
	if r.Kind == KindCI || r.Token == "" {
		return false
	}
	return time.Now().UTC().Add(threshold).After(r.ExpiresAt)
}

// RefreshFunc exchanges a near-expiry user token for a fresh one. Its
// implementation (a registry round-trip) is out of this package's scope.
type RefreshFunc func(ctx context.Context, current Record) (Record, error)

// RefreshIfNeeded replaces r with a freshly issued record when it is a user
// token within threshold of expiry; otherwise r is returned unchanged.
func RefreshIfNeeded(ctx context.Context, r Record, threshold time.Duration, refresh RefreshFunc) (Record, error) {
	if !r.NeedsRefresh(threshold) {
		return r, nil
	}
	return refresh(ctx, r)
}

// Load reads the Record at path. A missing file is reported as a zero-value,
// unauthenticated Record rather than an error.
func Load(path string) (Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{}, nil
		}
		return Record{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var r Record
	if err := json.Unmarshal(raw, &r); err != nil {
		return Record{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return r, nil
}

// Save persists r to path.
func Save(path string, r Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Logout overwrites the record at path with an empty token, preserving no
// other state.
func Logout(path string) error {
	return Save(path, Record{})
}
