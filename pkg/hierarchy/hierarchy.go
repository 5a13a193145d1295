// Package hierarchy composes the three cache tiers (local content store,
// cloud registry, Git origin) into a single ordered strategy chain with
// transparent promotion on miss, following the precedence-chain pattern
// used for install-target detection elsewhere in this codebase, generalized
// from a fixed detector list to a pluggable Strategy interface.
package hierarchy

import (
	"context"
	"fmt"

	"github.com/grata-labs/gitcache/pkg/gcmetrics"
)

// Strategy is one tier of the cache hierarchy.
type Strategy interface {
	Name() string
	// Available reports whether this tier is currently usable at all (for
	// example, the registry tier is unavailable while unauthenticated).
	Available(ctx context.Context) bool
	Has(ctx context.Context, packageID string) bool
	Get(ctx context.Context, packageID string) ([]byte, error)
	// Store writes bytes for packageID. Strategies that don't accept writes
	// (e.g. a read-through Git strategy) return nil unconditionally.
	Store(ctx context.Context, packageID string, data []byte) error
}

// StrategyStatus is one entry of the per-strategy snapshot returned by
// GetStatus.
type StrategyStatus struct {
	Name      string
	Available bool
}

// Hierarchy is an ordered composition of strategies, queried Local first,
// then Registry, then Git (as a read-through builder).
type Hierarchy struct {
	strategies []Strategy
	onError    func(strategy, op string, err error)
}

// New constructs a Hierarchy over strategies in lookup order.
func New(strategies ...Strategy) *Hierarchy {
	return &Hierarchy{strategies: strategies}
}

// OnError registers a callback invoked whenever a strategy fails; the
// hierarchy itself always continues to the next strategy regardless.
func (h *Hierarchy) OnError(fn func(strategy, op string, err error)) {
	h.onError = fn
}

func (h *Hierarchy) logErr(strategy, op string, err error) {
	if h.onError != nil && err != nil {
		h.onError(strategy, op, err)
	}
}

// ErrNotFound is returned when no strategy in the hierarchy has packageID.
var ErrNotFound = fmt.Errorf("not found in any cache tier")

// Get walks strategies in order; on the first Has, it calls Get, then
// promotes the bytes into every earlier strategy best-effort.
func (h *Hierarchy) Get(ctx context.Context, packageID string) ([]byte, error) {
	for i, s := range h.strategies {
		if !s.Available(ctx) {
			continue
		}
		if !s.Has(ctx, packageID) {
			gcmetrics.CacheMisses.WithLabelValues(s.Name()).Inc()
			continue
		}
		data, err := s.Get(ctx, packageID)
		if err != nil {
			gcmetrics.CacheMisses.WithLabelValues(s.Name()).Inc()
			h.logErr(s.Name(), "get", err)
			continue
		}
		gcmetrics.CacheHits.WithLabelValues(s.Name()).Inc()
		h.promote(ctx, packageID, data, i)
		return data, nil
	}
	return nil, ErrNotFound
}

// promote writes data into every strategy ahead of foundAt, best-effort.
func (h *Hierarchy) promote(ctx context.Context, packageID string, data []byte, foundAt int) {
	for i := 0; i < foundAt; i++ {
		if err := h.strategies[i].Store(ctx, packageID, data); err != nil {
			h.logErr(h.strategies[i].Name(), "promote", err)
		}
	}
}

// Store writes data to every strategy that accepts writes. Failures are
// logged, never returned: a store is best-effort across the hierarchy.
func (h *Hierarchy) Store(ctx context.Context, packageID string, data []byte) {
	for _, s := range h.strategies {
		if err := s.Store(ctx, packageID, data); err != nil {
			h.logErr(s.Name(), "store", err)
		}
	}
}

// Has reports true if any available strategy has packageID.
func (h *Hierarchy) Has(ctx context.Context, packageID string) bool {
	for _, s := range h.strategies {
		if s.Available(ctx) && s.Has(ctx, packageID) {
			return true
		}
	}
	return false
}

// GetStatus returns a per-strategy availability/authentication snapshot.
func (h *Hierarchy) GetStatus(ctx context.Context) []StrategyStatus {
	statuses := make([]StrategyStatus, 0, len(h.strategies))
	for _, s := range h.strategies {
		statuses = append(statuses, StrategyStatus{
			Name:      s.Name(),
			Available: s.Available(ctx),
		})
	}
	return statuses
}
