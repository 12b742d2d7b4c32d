// Package cache is the cross-cutting metrics wrapper around the trie's
// fastcache/LRU pair and the pipeline's outcome counters (spec §4.4/§9
// C8). It does not implement caching itself — internal/trie.Cache
// already does that — it only turns cache occupancy and pipeline
// decisions into `prometheus.CounterVec`/`GaugeVec` series. Shipping
// those metrics anywhere is the out-of-scope metrics shipper; this
// package stops at exposing a `prometheus.Gatherer`.
package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/trie"
)

// Metrics is one node's metrics registry: independently constructed, no
// package-level state, so tests can instantiate as many as they like
// without cross-talk (spec §9 "no ambient globals").
type Metrics struct {
	registry *prometheus.Registry

	txOutcomes   *prometheus.CounterVec
	mempoolDepth prometheus.Gauge
	cacheEntries *prometheus.GaugeVec
	cacheMisses  prometheus.Counter
	lastMisses   uint64
}

// New creates a fresh, independently registered Metrics set.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		txOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slimchain",
			Name:      "tx_outcomes_total",
			Help:      "Transaction proposals by pipeline outcome.",
		}, []string{"status"}),
		mempoolDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "slimchain",
			Name:      "mempool_depth",
			Help:      "Current number of pending proposals in the mempool.",
		}),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "slimchain",
			Name:      "trie_cache_entries",
			Help:      "Entry counts for the trie's cache tiers.",
		}, []string{"tier"}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slimchain",
			Name:      "trie_cache_encoding_misses_total",
			Help:      "Encoding-cache misses that fell through to the durable store.",
		}),
	}
	reg.MustRegister(m.txOutcomes, m.mempoolDepth, m.cacheEntries, m.cacheMisses)
	return m
}

// Gatherer exposes the registry for an embedding HTTP /metrics handler —
// out of scope here, but the seam this package owes that subsystem.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// ObserveOutcome records one proposal's final pipeline status.
func (m *Metrics) ObserveOutcome(status pipeline.Status) {
	m.txOutcomes.WithLabelValues(status.String()).Inc()
}

// ObserveMempool records the mempool's current size.
func (m *Metrics) ObserveMempool(pool *pipeline.Pool) {
	m.mempoolDepth.Set(float64(pool.Size()))
}

// ObserveTrieCache records a snapshot of the trie cache's stats.
func (m *Metrics) ObserveTrieCache(c *trie.Cache) {
	stats := c.Stats()
	m.cacheEntries.WithLabelValues("encoding").Set(float64(stats.EncEntries))
	m.cacheEntries.WithLabelValues("decoded").Set(float64(stats.DecodedLen))
	if stats.EncMisses > m.lastMisses {
		m.cacheMisses.Add(float64(stats.EncMisses - m.lastMisses))
		m.lastMisses = stats.EncMisses
	}
}
