// Package pipeline implements spec §4.4's block pipeline: tx intake, the
// SSI/OCC conflict policy, block assembly, apply, fork handling, and the
// five-state block state machine.
package pipeline

import (
	"sync"
	"time"

	"github.com/slimchain/slimchain/internal/types"
)

const poolShardCount = 256

// Status is the client-visible outcome of a submitted TxReq — spec §6's
// `GET /tx/{req_hash}` result shape.
type Status int

const (
	StatusPending Status = iota
	StatusCommitted
	StatusOutdated
	StatusConflicted
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCommitted:
		return "committed"
	case StatusOutdated:
		return "outdated"
	case StatusConflicted:
		return "conflicted"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// entry is one mempool slot: a proposal plus the bookkeeping the pool needs
// to answer status queries and to order assembly by arrival.
type entry struct {
	proposal  *types.TxProposal
	status    Status
	arrivedAt time.Time
	seq       uint64
}

// shard is one `sync.RWMutex`-guarded bucket of the mempool, matching §5's
// "concurrent map with per-shard locks": readers (status queries, block
// assembly scans) don't contend with each other, only with a shard's own
// writer.
type shard struct {
	mu      sync.RWMutex
	entries map[types.Hash]*entry
}

// Pool is the sharded concurrent mempool a miner holds proposals in until
// they are included, rejected, or expired (spec §3's TxProposal lifecycle).
// Sharding is by the first byte of req_hash.
type Pool struct {
	shards  [poolShardCount]*shard
	seq     uint64
	seqMu   sync.Mutex
	maxSize int
}

// NewPool builds an empty pool. maxSize is `miner.max_txs * k`, the
// backpressure cap of spec §5: Submit past this returns false.
func NewPool(maxSize int) *Pool {
	p := &Pool{maxSize: maxSize}
	for i := range p.shards {
		p.shards[i] = &shard{entries: make(map[types.Hash]*entry)}
	}
	return p
}

func (p *Pool) shardFor(h types.Hash) *shard {
	return p.shards[h[0]]
}

func (p *Pool) nextSeq() uint64 {
	p.seqMu.Lock()
	defer p.seqMu.Unlock()
	p.seq++
	return p.seq
}

// Size reports the pool's current pending count, used against
// miner.max_txs/min_txs assembly triggers and the backpressure cap.
func (p *Pool) Size() int {
	n := 0
	for _, s := range p.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Submit admits proposal into the pool as pending, returning false if the
// pool is already at its backpressure cap (spec §5: "Miner refuses new
// TxReqs when the pool exceeds max_txs · k").
func (p *Pool) Submit(proposal *types.TxProposal) bool {
	if p.maxSize > 0 && p.Size() >= p.maxSize {
		return false
	}
	h := proposal.ReqHash
	s := p.shardFor(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[h]; exists {
		return true
	}
	s.entries[h] = &entry{proposal: proposal, status: StatusPending, arrivedAt: time.Now(), seq: p.nextSeq()}
	return true
}

// SetStatus updates a proposal's terminal/interim status, e.g. after a
// conflict check or block commit.
func (p *Pool) SetStatus(reqHash types.Hash, status Status) {
	s := p.shardFor(reqHash)
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[reqHash]; ok {
		e.status = status
	}
}

// Status reports a proposal's current status, or (StatusRejected, false) if
// the pool has never seen it.
func (p *Pool) Status(reqHash types.Hash) (Status, bool) {
	s := p.shardFor(reqHash)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[reqHash]
	if !ok {
		return StatusRejected, false
	}
	return e.status, true
}

// Remove drops a proposal from the pool entirely (after it is included in a
// committed block, or expires).
func (p *Pool) Remove(reqHash types.Hash) {
	s := p.shardFor(reqHash)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, reqHash)
}

// Pending returns every pending proposal in arrival order, per spec §4.4's
// assembly rule. Arrival order is the per-Submit sequence number, so two
// proposals stamped with the same time.Now() instant are still ordered by
// which was submitted first; req_hash lexicographic order is the fallback
// comparison only when sequence numbers are equal.
func (p *Pool) Pending() []*types.TxProposal {
	var all []*entry
	for _, s := range p.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			if e.status == StatusPending {
				all = append(all, e)
			}
		}
		s.mu.RUnlock()
	}
	sortEntries(all)
	out := make([]*types.TxProposal, len(all))
	for i, e := range all {
		out[i] = e.proposal
	}
	return out
}

// FirstArrival returns the arrival time of the oldest pending proposal, used
// by assembly's `now - first_tx_ts >= max_block_interval` trigger.
func (p *Pool) FirstArrival() (time.Time, bool) {
	var first time.Time
	found := false
	for _, s := range p.shards {
		s.mu.RLock()
		for _, e := range s.entries {
			if e.status != StatusPending {
				continue
			}
			if !found || e.arrivedAt.Before(first) {
				first = e.arrivedAt
				found = true
			}
		}
		s.mu.RUnlock()
	}
	return first, found
}

func sortEntries(all []*entry) {
	// Insertion sort: mempool snapshots are small relative to max_txs, and
	// this runs once per block assembly, not per request.
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && less(all[j], all[j-1]); j-- {
			all[j-1], all[j] = all[j], all[j-1]
		}
	}
}

func less(a, b *entry) bool {
	if a.seq != b.seq {
		return a.seq < b.seq
	}
	return string(a.proposal.ReqHash[:]) < string(b.proposal.ReqHash[:])
}
