package pipeline

import (
	"encoding/binary"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/holiman/bloomfilter/v2"

	"github.com/slimchain/slimchain/internal/types"
)

// writeKey is the hashable (A,K) pair the per-height write-index tracks.
// K == zero Hash{} stands for an account-level write (nonce/code), which
// spec §4.4's SSI check treats the same as any storage-slot write.
type writeKey struct {
	addr types.Address
	key  types.Hash
}

// heightIndex is one height's write-index: a bloomfilter prefilter (cheap
// "definitely not modified" reject) over an exact golang-set for the
// authoritative check — the same best-effort-cache-over-authoritative-
// source shape internal/trie's own Cache uses.
type heightIndex struct {
	bloom *bloomfilter.Filter
	exact mapset.Set[writeKey]
}

func newHeightIndex() *heightIndex {
	// 4096 entries / 1% false-positive rate comfortably covers a single
	// block's write set; a bloom hit (including a false positive) still has
	// to pass the exact set, so an undersized filter only costs a few wasted
	// exact-set lookups, never correctness.
	bf, _ := bloomfilter.NewOptimal(4096, 0.01)
	return &heightIndex{bloom: bf, exact: mapset.NewSet[writeKey]()}
}

func (h *heightIndex) add(wk writeKey) {
	h.bloom.Add(bloomHash(wk))
	h.exact.Add(wk)
}

func (h *heightIndex) modifies(wk writeKey) bool {
	if !h.bloom.Contains(bloomHash(wk)) {
		return false
	}
	return h.exact.Contains(wk)
}

// bloomHash folds (addr,key) down to the single uint64 bloomfilter.Filter
// hashes on — the filter itself is agnostic to what produced it, so
// Keccak256's first 8 bytes serve as well as any other hash here.
func bloomHash(wk writeKey) uint64 {
	h := types.Keccak256(wk.addr[:], wk.key[:])
	return binary.BigEndian.Uint64(h[:8])
}

// WriteIndex maintains spec §4.4's SSI per-height write-index over the
// temp-state window: one heightIndex per committed block height.
type WriteIndex struct {
	mu      sync.RWMutex
	byHeight map[uint64]*heightIndex
	minH    uint64
	maxH    uint64
}

func NewWriteIndex() *WriteIndex {
	return &WriteIndex{byHeight: make(map[uint64]*heightIndex)}
}

// Record indexes a committed block's write set at height.
func (w *WriteIndex) Record(height uint64, ws types.WriteSet) {
	w.mu.Lock()
	defer w.mu.Unlock()
	idx, ok := w.byHeight[height]
	if !ok {
		idx = newHeightIndex()
		w.byHeight[height] = idx
	}
	for _, a := range ws.Accounts {
		idx.add(writeKey{addr: a.Addr})
	}
	for _, s := range ws.Storage {
		idx.add(writeKey{addr: s.Addr, key: s.Key})
	}
	if height > w.maxH || w.maxH == 0 {
		w.maxH = height
	}
	if w.minH == 0 || height < w.minH {
		w.minH = height
	}
}

// Evict drops the write-index entry for a height falling out of the
// temp-state window (mirrors TempState's own base-merge eviction).
func (w *WriteIndex) Evict(height uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.byHeight, height)
}

// ModifiedSince reports whether any block in (since, upTo] modified
// (addr, key) — spec §4.4's SSI predicate: "none of its read keys were
// modified by any block in the interval (R_i, R_j]" expressed over heights
// rather than roots (heights and the window's retained roots are in
// one-to-one correspondence).
func (w *WriteIndex) ModifiedSince(since, upTo uint64, addr types.Address, key *types.Hash) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	wk := writeKey{addr: addr}
	if key != nil {
		wk.key = *key
	}
	for h := since + 1; h <= upTo; h++ {
		idx, ok := w.byHeight[h]
		if !ok {
			continue
		}
		if idx.modifies(wk) {
			return true
		}
	}
	return false
}
