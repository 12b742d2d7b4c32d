package pipeline

import (
	"errors"
	"fmt"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/state"
	"github.com/slimchain/slimchain/internal/types"
)

// Propose runs spec §4.4's conflict check + assembly + apply against the
// miner's partial trie, which sits at the parent block's state root:
// proposals failing the
// configured ConflictCheck are tagged conflicted/outdated in pool and
// excluded; the rest are selected by AssemblyPolicy and applied
// sequentially, producing the block's state_root.
func Propose(
	pool *Pool,
	policy AssemblyPolicy,
	check ConflictCheck,
	cc ConflictContext,
	partial *state.PartialState,
	height uint64,
	parent types.Hash,
	timestampS int64,
	header types.ConsensusHeader,
) (*types.Block, error) {
	var included []*types.TxProposal
	for _, prop := range pool.Pending() {
		propCC := cc
		propCC.HeightSeen = prop.BlockHeightSeen
		if err := check.Check(prop, propCC); err != nil {
			switch {
			case errs.Retryable(err):
				if isOutdated(err) {
					pool.SetStatus(prop.ReqHash, StatusOutdated)
				} else {
					pool.SetStatus(prop.ReqHash, StatusConflicted)
				}
			default:
				pool.SetStatus(prop.ReqHash, StatusRejected)
			}
			continue
		}
		included = append(included, prop)
		if len(included) >= policy.MaxTxs {
			break
		}
	}
	if len(included) < policy.MinTxs {
		return nil, fmt.Errorf("pipeline: assembly trigger not met (%d < min_txs %d)", len(included), policy.MinTxs)
	}

	root := partial.Root()
	for _, prop := range included {
		newRoot, err := partial.Apply(prop)
		if err != nil {
			pool.SetStatus(prop.ReqHash, StatusRejected)
			return nil, fmt.Errorf("pipeline: apply %s: %w", prop.ReqHash, err)
		}
		root = newRoot
	}

	return &types.Block{
		Height:     height,
		Parent:     parent,
		StateRoot:  root,
		TxList:     copyProposals(included),
		TimestampS: timestampS,
		Header:     header,
	}, nil
}

func copyProposals(in []*types.TxProposal) []types.TxProposal {
	out := make([]types.TxProposal, len(in))
	for i, p := range in {
		out[i] = *p
	}
	return out
}

func isOutdated(err error) bool {
	return errors.Is(err, errs.ErrOutdated)
}
