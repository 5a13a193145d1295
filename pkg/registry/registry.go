// Package registry is the client for the cloud registry tier of the cache
// hierarchy: authenticated lookup, download, and upload of tarball
// artifacts against the hosted API. Its request-dispatch shape (bearer
// header, direct-storage follow-up GET/PUT, discriminated error strings)
// is grounded on the cache-service client pattern used elsewhere in this
// codebase for fetching remote artifacts over plain HTTP.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/grata-labs/gitcache/pkg/auth"
)

const (
	// DefaultTimeout is the per-request abort timer.
	DefaultTimeout = 5 * time.Second
	// DefaultRetries is the number of retry attempts after the first try.
	DefaultRetries = 2
	// DefaultRefreshThreshold is how far ahead of expiry a user token is
	// eagerly exchanged for a fresh one before a request is dispatched.
	DefaultRefreshThreshold = 24 * time.Hour
)

// TokenRefresher exchanges a near-expiry user token for a fresh one. The
// registry client treats it as an opaque callable; its implementation is
// out of this package's scope.
type TokenRefresher func(ctx context.Context) (string, error)

// Config configures a Client.
type Config struct {
	BaseURL          string
	Token            string
	Timeout          time.Duration
	Retries          int
	BackgroundUpload bool
	Verbose          bool
	Refresh          TokenRefresher
	// AuthRecord is the full record backing Token, including its
	// classification and expiry. Supplying it alongside Refresh enables
	// refresh-before-dispatch (spec §4.7); the zero value disables the
	// mechanism, since auth.Record{}.NeedsRefresh is always false.
	AuthRecord auth.Record
	// OnRefreshed is called, best-effort, after a successful refresh so the
	// caller can persist the new record (e.g. to auth.json).
	OnRefreshed func(auth.Record)
}

// Client is the authenticated HTTP client for the registry tier.
type Client struct {
	cfg        Config
	httpClient *http.Client

	// mu serializes refresh-before-dispatch: concurrent requests that all
	// observe an expiring token coalesce onto a single refresh (spec §5),
	// since a blocked caller re-checks NeedsRefresh once it acquires mu and
	// finds the token already current.
	mu     sync.Mutex
	record auth.Record
}

// New constructs a Client, filling in the default timeout and retry count
// when unset.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: cfg.Timeout}, record: cfg.AuthRecord}
}

// currentToken returns the bearer token for an authenticated request,
// refreshing it first if cfg.Refresh is set and the backing record is a
// user token nearing expiry. A refresh failure is non-fatal: the stale
// token is returned and the request proceeds (a resulting 401 is handled
// as an ordinary RegistryHttpError by the caller).
func (c *Client) currentToken(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Refresh == nil || !c.record.NeedsRefresh(DefaultRefreshThreshold) {
		return c.cfg.Token
	}

	newToken, err := c.cfg.Refresh(ctx)
	if err != nil || newToken == "" {
		return c.cfg.Token
	}

	c.record = auth.Issue(newToken)
	c.cfg.Token = newToken
	if c.cfg.OnRefreshed != nil {
		c.cfg.OnRefreshed(c.record)
	}
	return c.cfg.Token
}

// ValidateTokenResult is the outcome of POST /api/auth/validate-token.
type ValidateTokenResult struct {
	Organization string
}

// ValidateTokenError discriminates why validation failed.
type ValidateTokenError struct {
	Kind string // "invalid", "access_denied", "http:<code>", "network"
	Err  error
}

func (e *ValidateTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind
}

// ValidateToken validates a CI-prefixed token and returns its bound org.
func (c *Client) ValidateToken(ctx context.Context, token string) (*ValidateTokenResult, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/auth/validate-token", struct {
		Token string `json:"token"`
	}{Token: token}, "")
	if err != nil {
		return nil, &ValidateTokenError{Kind: "network", Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Organization string `json:"organization"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, &ValidateTokenError{Kind: "network", Err: err}
		}
		return &ValidateTokenResult{Organization: body.Organization}, nil
	case http.StatusUnauthorized:
		return nil, &ValidateTokenError{Kind: "invalid"}
	case http.StatusForbidden:
		return nil, &ValidateTokenError{Kind: "access_denied"}
	default:
		return nil, &ValidateTokenError{Kind: fmt.Sprintf("http:%d", resp.StatusCode)}
	}
}

// Organization is one entry from GET /api/organizations.
type Organization struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}

// Organizations lists the caller's organizations.
func (c *Client) Organizations(ctx context.Context) ([]Organization, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/organizations", nil, c.currentToken(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing organizations: http:%d", resp.StatusCode)
	}
	var orgs []Organization
	if err := json.NewDecoder(resp.Body).Decode(&orgs); err != nil {
		return nil, fmt.Errorf("decoding organizations: %w", err)
	}
	return orgs, nil
}

// ArtifactMetadata is the existence-probe response for a packageId.
type ArtifactMetadata struct {
	ID       string `json:"id"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
	Hash     string `json:"hash"`
}

// Has probes for a packageId's artifact, returning false when unauthenticated
// or on any probe error.
func (c *Client) Has(ctx context.Context, packageID string) bool {
	if c.cfg.Token == "" {
		return false
	}
	resp, err := c.doRequest(ctx, http.MethodGet, "/artifacts/lookup/"+packageID, nil, c.currentToken(ctx))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Get fetches a packageId's artifact: lookup for its internal id, a
// time-bound download URL, then the bytes from that URL.
func (c *Client) Get(ctx context.Context, packageID string) ([]byte, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/artifacts/lookup/"+packageID, nil, c.currentToken(ctx))
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", packageID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup %s: http:%d", packageID, resp.StatusCode)
	}
	var meta ArtifactMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("decoding lookup response: %w", err)
	}

	downloadResp, err := c.doRequest(ctx, http.MethodPost, "/artifacts/"+meta.ID+"/download", nil, c.currentToken(ctx))
	if err != nil {
		return nil, fmt.Errorf("requesting download url: %w", err)
	}
	defer downloadResp.Body.Close()
	var downloadBody struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(downloadResp.Body).Decode(&downloadBody); err != nil {
		return nil, fmt.Errorf("decoding download response: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadBody.URL, nil)
	if err != nil {
		return nil, err
	}
	bytesResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading artifact bytes: %w", err)
	}
	defer bytesResp.Body.Close()
	return io.ReadAll(bytesResp.Body)
}

// UploadRequest is the payload for POST /artifacts.
type UploadRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	Hash        string `json:"hash"`
}

// UploadAsync dispatches a fire-and-forget upload. Errors are only logged by
// the caller-supplied logFn (nil-safe: a nil logFn silently drops errors).
func (c *Client) UploadAsync(ctx context.Context, req UploadRequest, data []byte, logFn func(error)) {
	go func() {
		if err := c.upload(ctx, req, data); err != nil && logFn != nil {
			logFn(err)
		}
	}()
}

func (c *Client) upload(ctx context.Context, req UploadRequest, data []byte) error {
	resp, err := c.doRequest(ctx, http.MethodPost, "/artifacts", req, c.currentToken(ctx))
	if err != nil {
		return fmt.Errorf("initiating upload: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		UploadURL  string `json:"uploadUrl"`
		ArtifactID string `json:"artifactId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding upload init response: %w", err)
	}
	if body.UploadURL == "" {
		// Artifact already exists server-side; nothing more to do.
		return nil
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, body.UploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	putResp, err := c.httpClient.Do(putReq)
	if err != nil {
		return fmt.Errorf("uploading artifact bytes: %w", err)
	}
	putResp.Body.Close()

	completeResp, err := c.doRequest(ctx, http.MethodPost, "/artifacts/"+body.ArtifactID+"/complete", nil, c.currentToken(ctx))
	if err != nil {
		return fmt.Errorf("confirming upload: %w", err)
	}
	defer completeResp.Body.Close()

	switch completeResp.StatusCode {
	case http.StatusRequestEntityTooLarge, http.StatusTooManyRequests:
		// Quota exceeded: treated as success without confirmation.
		return nil
	case http.StatusOK:
		return nil
	default:
		return fmt.Errorf("confirming upload: http:%d", completeResp.StatusCode)
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, token string) (*http.Response, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		var reader io.Reader
		if data != nil {
			reader = bytes.NewReader(data)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
		if err != nil {
			return nil, err
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
