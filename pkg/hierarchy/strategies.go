package hierarchy

import (
	"context"

	"github.com/grata-labs/gitcache/pkg/contentcache"
	"github.com/grata-labs/gitcache/pkg/registry"
)

// LocalStrategy adapts the content-addressed byte store to Strategy. It is
// always available and accepts writes.
type LocalStrategy struct {
	cache *contentcache.Cache
}

// NewLocalStrategy wraps cache as the first (local) tier.
func NewLocalStrategy(cache *contentcache.Cache) *LocalStrategy {
	return &LocalStrategy{cache: cache}
}

func (s *LocalStrategy) Name() string                          { return "local" }
func (s *LocalStrategy) Available(ctx context.Context) bool     { return true }
func (s *LocalStrategy) Has(ctx context.Context, id string) bool { return s.cache.Has(id) }
func (s *LocalStrategy) Get(ctx context.Context, id string) ([]byte, error) {
	return s.cache.Get(id)
}
func (s *LocalStrategy) Store(ctx context.Context, id string, data []byte) error {
	return s.cache.Store(id, data)
}

// RegistryStrategy adapts the cloud registry client to Strategy. Available
// reports whether a bearer token is configured.
type RegistryStrategy struct {
	client *registry.Client
	token  string
}

// NewRegistryStrategy wraps client as the second (cloud) tier. token is the
// currently active auth token; an empty token marks the tier unavailable.
func NewRegistryStrategy(client *registry.Client, token string) *RegistryStrategy {
	return &RegistryStrategy{client: client, token: token}
}

func (s *RegistryStrategy) Name() string                      { return "registry" }
func (s *RegistryStrategy) Available(ctx context.Context) bool { return s.token != "" }
func (s *RegistryStrategy) Has(ctx context.Context, id string) bool {
	return s.client.Has(ctx, id)
}
func (s *RegistryStrategy) Get(ctx context.Context, id string) ([]byte, error) {
	return s.client.Get(ctx, id)
}
func (s *RegistryStrategy) Store(ctx context.Context, id string, data []byte) error {
	s.client.UploadAsync(ctx, registry.UploadRequest{FileName: id, Size: int64(len(data))}, data, nil)
	return nil
}

// GitStrategy is the terminal, always-present tier: its Has is
// unconditionally true (it is the cache of last resort) and its Store is a
// no-op, since a built tarball is already persisted by the tarball builder
// before it reaches the hierarchy.
type GitStrategy struct {
	// Build returns the tarball bytes for packageID, producing the on-disk
	// artifact with the tarball builder when none exists yet.
	Build func(ctx context.Context, packageID string) ([]byte, error)
}

func (s *GitStrategy) Name() string                      { return "git" }
func (s *GitStrategy) Available(ctx context.Context) bool { return true }
func (s *GitStrategy) Has(ctx context.Context, id string) bool { return true }
func (s *GitStrategy) Get(ctx context.Context, id string) ([]byte, error) {
	return s.Build(ctx, id)
}
func (s *GitStrategy) Store(ctx context.Context, id string, data []byte) error { return nil }
