package pipeline

import (
	"time"

	"github.com/slimchain/slimchain/internal/types"
)

// AssemblyPolicy is spec §4.4's assembly trigger: `miner.max_txs`,
// `miner.min_txs`, `miner.max_block_interval_ms`.
type AssemblyPolicy struct {
	MaxTxs            int
	MinTxs            int
	MaxBlockInterval  time.Duration
}

// ShouldAssemble reports whether the pool should close a block now: either
// it has reached MaxTxs, or it has at least MinTxs and the oldest pending
// proposal has waited at least MaxBlockInterval.
func (p AssemblyPolicy) ShouldAssemble(pool *Pool, now time.Time) bool {
	size := pool.Size()
	if size >= p.MaxTxs {
		return true
	}
	if size < p.MinTxs {
		return false
	}
	first, ok := pool.FirstArrival()
	if !ok {
		return false
	}
	return now.Sub(first) >= p.MaxBlockInterval
}

// SelectForBlock returns up to MaxTxs pending proposals in assembly order
// (arrival order, ties broken by req_hash — Pool.Pending already orders
// this way).
func (p AssemblyPolicy) SelectForBlock(pool *Pool) []*types.TxProposal {
	pending := pool.Pending()
	if len(pending) > p.MaxTxs {
		pending = pending[:p.MaxTxs]
	}
	return pending
}
