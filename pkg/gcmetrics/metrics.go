// Package gcmetrics exposes internal cache-hierarchy counters via
// prometheus/client_golang, surfaced by the status command's --detailed
// view rather than scraped over HTTP.
package gcmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry is a dedicated prometheus registry, kept separate from the
// default global one so the CLI can render its contents without risking
// collisions with anything else that imports this package.
var Registry = prometheus.NewRegistry()

var (
	// CacheHits counts hierarchy Get() hits by tier (local, registry, git).
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gitcache_cache_hits_total",
		Help: "Cache hierarchy hits by tier.",
	}, []string{"tier"})

	// CacheMisses counts hierarchy Get() misses by tier.
	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gitcache_cache_misses_total",
		Help: "Cache hierarchy misses by tier.",
	}, []string{"tier"})

	// BuildsTotal counts tarball builds, by outcome (success, failure).
	BuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gitcache_builds_total",
		Help: "Tarball builds dispatched by the Git origin tier.",
	}, []string{"outcome"})

	// BytesPruned sums bytes reclaimed by the pruner.
	BytesPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gitcache_bytes_pruned_total",
		Help: "Total bytes reclaimed by prune runs.",
	})
)

func init() {
	Registry.MustRegister(CacheHits, CacheMisses, BuildsTotal, BytesPruned)
}

// Snapshot is a flattened, display-friendly read of the current counters.
type Snapshot struct {
	HitsByTier   map[string]float64
	MissesByTier map[string]float64
	Builds       map[string]float64
	BytesPruned  float64
}

// Gather reads the current counter values into a Snapshot.
func Gather() (Snapshot, error) {
	families, err := Registry.Gather()
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		HitsByTier:   map[string]float64{},
		MissesByTier: map[string]float64{},
		Builds:       map[string]float64{},
	}
	for _, fam := range families {
		switch fam.GetName() {
		case "gitcache_cache_hits_total":
			for _, m := range fam.GetMetric() {
				snap.HitsByTier[labelValue(m, "tier")] = m.GetCounter().GetValue()
			}
		case "gitcache_cache_misses_total":
			for _, m := range fam.GetMetric() {
				snap.MissesByTier[labelValue(m, "tier")] = m.GetCounter().GetValue()
			}
		case "gitcache_builds_total":
			for _, m := range fam.GetMetric() {
				snap.Builds[labelValue(m, "outcome")] = m.GetCounter().GetValue()
			}
		case "gitcache_bytes_pruned_total":
			for _, m := range fam.GetMetric() {
				snap.BytesPruned = m.GetCounter().GetValue()
			}
		}
	}
	return snap, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, pair := range m.GetLabel() {
		if pair.GetName() == name {
			return pair.GetValue()
		}
	}
	return ""
}
