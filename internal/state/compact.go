package state

import "github.com/slimchain/slimchain/internal/types"

// CompactProofs implements `miner.compress_trie` (spec §4.3): blocks of
// proposals often touch overlapping paths (the same hot account read by
// several txs), so rather than broadcast every proposal's full ReadProof,
// collect the block's node encodings into one deduplicated pool and strip
// each proposal's own ReadProof down to nothing (the pool supplies every
// node any of them needs). This is bandwidth-only: LoadProof-ing the pool
// into a PartialState before calling Apply on each proposal in turn leaves
// every resulting root identical to the uncompacted case.
func CompactProofs(proposals []*types.TxProposal) (pool types.ProofNode, dedupedCount int) {
	seen := make(map[types.Hash][]byte)
	order := make([]types.Hash, 0)
	for _, p := range proposals {
		for _, enc := range p.ReadProof.Nodes {
			h := types.Keccak256(enc)
			if _, ok := seen[h]; !ok {
				seen[h] = enc
				order = append(order, h)
			} else {
				dedupedCount++
			}
		}
		p.ReadProof = types.ProofNode{}
	}
	nodes := make([][]byte, len(order))
	for i, h := range order {
		nodes[i] = seen[h]
	}
	return types.ProofNode{Nodes: nodes}, dedupedCount
}
