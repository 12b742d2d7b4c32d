package trie

import (
	"github.com/VictoriaMetrics/fastcache"
	lru "github.com/hashicorp/golang-lru"

	"github.com/slimchain/slimchain/internal/types"
)

// Cache sits between a Trie and its durable Store. It has two tiers,
// mirroring spec §9's "hash cache keyed by node identity; cache is
// best-effort, never authoritative":
//   - enc:   a fastcache of raw canonical encodings, keyed by node hash.
//     fastcache is an off-heap byte cache, the right shape for the
//     variable-length encoded bytes every node hashes to.
//   - nodes: a small LRU of already-decoded Node values, so a hot branch
//     on the path to a frequently-read key isn't re-parsed on every get.
//
// Either tier can be evicted or dropped entirely without affecting
// correctness — a miss always falls through to Store and, for the decode
// cache, to decodeNode.
type Cache struct {
	store Store
	enc   *fastcache.Cache
	nodes *lru.Cache
}

// NewCache wraps store with an encoding cache of encBytes capacity and a
// decoded-node LRU of nodeCacheSize entries.
func NewCache(store Store, encBytes int, nodeCacheSize int) *Cache {
	nodes, err := lru.New(nodeCacheSize)
	if err != nil {
		// Only returns an error for a non-positive size; fall back to a
		// minimal cache rather than panicking a storage node over a
		// misconfigured cache size.
		nodes, _ = lru.New(1)
	}
	return &Cache{
		store: store,
		enc:   fastcache.New(encBytes),
		nodes: nodes,
	}
}

func (c *Cache) Get(h types.Hash) ([]byte, bool) {
	if v, ok := c.enc.HasGet(nil, h[:]); ok {
		return v, true
	}
	enc, ok := c.store.Get(h)
	if ok {
		c.enc.Set(h[:], enc)
	}
	return enc, ok
}

func (c *Cache) Put(h types.Hash, enc []byte) {
	c.store.Put(h, enc)
	c.enc.Set(h[:], enc)
}

func (c *Cache) Decoded(h types.Hash) (Node, bool) {
	v, ok := c.nodes.Get(h)
	if !ok {
		return nil, false
	}
	n, ok := v.(Node)
	return n, ok
}

func (c *Cache) CacheDecoded(h types.Hash, n Node) {
	c.nodes.Add(h, n)
}

// CacheStats is a snapshot of both cache tiers' occupancy/hit-rate,
// exposed so internal/cache can turn it into Prometheus gauges without
// this package knowing anything about metrics.
type CacheStats struct {
	EncEntries   uint64
	EncGetCalls  uint64
	EncMisses    uint64
	DecodedLen   int
}

func (c *Cache) Stats() CacheStats {
	var s fastcache.Stats
	c.enc.UpdateStats(&s)
	return CacheStats{
		EncEntries:  s.EntriesCount,
		EncGetCalls: s.GetCalls,
		EncMisses:   s.Misses,
		DecodedLen:  c.nodes.Len(),
	}
}
