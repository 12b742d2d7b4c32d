// Package node constructs the storage and miner NodeContext variants from a
// loaded config (NewStorageNode, NewMinerNode); the client role has no
// constructor here. Both share internal/state, internal/trie, and
// internal/types; they differ only in which capability interfaces
// (exec.Backend, consensus.Backend) they instantiate and whether they hold
// full or partial state.
package node

import (
	"fmt"

	"github.com/slimchain/slimchain/internal/cache"
	"github.com/slimchain/slimchain/internal/config"
	"github.com/slimchain/slimchain/internal/consensus"
	"github.com/slimchain/slimchain/internal/consensus/pow"
	"github.com/slimchain/slimchain/internal/consensus/raft"
	"github.com/slimchain/slimchain/internal/exec"
	"github.com/slimchain/slimchain/internal/pipeline"
	"github.com/slimchain/slimchain/internal/slimlog"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

// StorageNode is role=storage: holds the full durable trie and code
// store, runs exec.Backend (Simple or TEE) for miners that ask it to
// execute requests.
type StorageNode struct {
	Full    *state.FullState
	Backend exec.Backend
	Pool    *exec.Pool
	Metrics *cache.Metrics
	Log     slimlog.Logger
}

// MinerNode is role=miner: holds only the partial trie, runs the block
// pipeline and a consensus.Backend.
type MinerNode struct {
	Partial    *state.PartialState
	Temp       *state.TempState
	MemPool    *pipeline.Pool
	Check      pipeline.ConflictCheck
	Policy     pipeline.AssemblyPolicy
	Consensus  consensus.Backend
	Metrics    *cache.Metrics
	Log        slimlog.Logger
}

// NewStorageNode wires a storage node's collaborators per cfg. TEE
// selection is driven by whether cfg.TEE carries an API key — an empty
// key means "no attestation service configured", so the node falls back
// to Simple rather than silently running an enclave with no way to
// reach its attestation service.
func NewStorageNode(cfg *config.Config, nodes state.CodeStore, outerStore trie.Store) (*StorageNode, error) {
	full := state.NewFullState(outerStore, nodes)
	log := slimlog.New("storage")

	var backend exec.Backend
	if cfg.TEE.APIKey != "" {
		key, err := types.GenerateKeyPair()
		if err != nil {
			return nil, fmt.Errorf("node: generating TEE signing key: %w", err)
		}
		backend = exec.NewTEE(key)
	} else {
		backend = exec.NewSimple()
	}

	return &StorageNode{
		Full:    full,
		Backend: backend,
		Pool:    exec.NewPool(backend, 4, 256),
		Metrics: cache.New(),
		Log:     log,
	}, nil
}

// NewMinerNode wires a miner node's collaborators per cfg: conflict
// policy, assembly policy, and consensus backend all come straight from
// config (spec §6's chain/miner/pow/raft sections). chain is required for
// chain.consensus = "pow" (it's the node's own block store, already open);
// raftLog is required for "raft" (the external replication layer's log) —
// whichever the config doesn't select may be nil.
func NewMinerNode(cfg *config.Config, parentRoot types.Hash, writeIndex *pipeline.WriteIndex, chain pow.ChainReader, raftLog raft.Log, nowUnixS func() int64) (*MinerNode, error) {
	partial := state.NewPartialState(parentRoot)
	pool := pipeline.NewPool(0)
	policy := pipeline.AssemblyPolicy{
		MaxTxs:           cfg.Miner.MaxTxs,
		MinTxs:           cfg.Miner.MinTxs,
		MaxBlockInterval: cfg.Miner.MaxBlockInterval(),
	}

	var check pipeline.ConflictCheck
	switch cfg.Chain.ConflictCheck {
	case config.ConflictSSI:
		check = pipeline.SSI{Index: writeIndex}
	case config.ConflictOCC:
		check = pipeline.OCC{}
	default:
		return nil, fmt.Errorf("node: unknown chain.conflict_check %q", cfg.Chain.ConflictCheck)
	}

	mn := &MinerNode{
		Partial: partial,
		MemPool: pool,
		Check:   check,
		Policy:  policy,
		Metrics: cache.New(),
		Log:     slimlog.New("miner"),
	}

	switch cfg.Chain.Consensus {
	case config.ConsensusPoW:
		if chain == nil {
			return nil, fmt.Errorf("node: chain.consensus = pow requires a block store")
		}
		mn.Consensus = pow.New(chain, pool, policy, check, partial, nowUnixS)
	case config.ConsensusRaft:
		if raftLog == nil {
			return nil, fmt.Errorf("node: chain.consensus = raft requires a replication log")
		}
		mn.Consensus = raft.New(raftLog, pool, policy, check, partial, cfg.Raft.SnapshotPolicyLogsSinceLast, nowUnixS)
	default:
		return nil, fmt.Errorf("node: unknown chain.consensus %q", cfg.Chain.Consensus)
	}
	return mn, nil
}
