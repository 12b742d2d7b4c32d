package state

import (
	"errors"
	"fmt"

	"github.com/slimchain/slimchain/internal/errs"
	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

// discardCodeStore satisfies CodeStore for PartialState: a miner tracks
// code hashes for account encoding but never needs the bytes themselves
// (it never executes), so there is nothing useful to persist.
type discardCodeStore struct{}

func (discardCodeStore) Put(types.Hash, []byte) error             { return nil }
func (discardCodeStore) Get(types.Hash) ([]byte, bool, error)      { return nil, false, nil }

// PartialState is the pruned trie a miner keeps per retained block root —
// spec §3's "Partial trie": exactly the paths needed to read recently
// touched keys plus the siblings needed to recompute the root after a
// write, with everything else represented as an opaque hash stub.
type PartialState struct {
	store *trie.MemStore
	cache *trie.Cache
	root  types.Hash
}

// NewPartialState opens a partial state at root with no nodes loaded yet;
// LoadProof populates it before Get/Apply can resolve anything beneath it.
func NewPartialState(root types.Hash) *PartialState {
	store := trie.NewMemStore()
	return &PartialState{
		store: store,
		cache: trie.NewCache(store, 1<<20, 256),
		root:  root,
	}
}

// LoadProof merges proof's nodes into the partial state's backing store.
// Proofs from different proposals against the same root are additive: the
// partial trie only grows the set of paths it can resolve.
func (ps *PartialState) LoadProof(proof types.ProofNode) {
	for _, enc := range proof.Nodes {
		ps.store.Put(types.Keccak256(enc), enc)
	}
}

func (ps *PartialState) Root() types.Hash { return ps.root }

func (ps *PartialState) Get(addr types.Address, key *types.Hash) ([]byte, bool, error) {
	outer := trie.New(ps.root, ps.cache)
	b, found, err := outer.Get(acctKey(addr))
	if err != nil || !found || key == nil {
		return b, found, err
	}
	acct, ok := types.DecodeAccount(b)
	if !ok {
		return nil, false, fmt.Errorf("state: corrupt account encoding for %s", addr)
	}
	storageTrie := trie.New(acct.StorageRoot, ps.cache)
	return storageTrie.Get(storageKey(*key))
}

// Apply performs spec §4.3's `apply(tx_proposal) -> new_root | reject`: a
// proposal is rejected (ErrProofInvalid, never ErrStorageCorruption — a
// miner's partial state not yet extending far enough is an ordinary,
// expected outcome, not data corruption) when its read_proof does not
// extend this partial trie consistently with the proposal's own read_set.
// A proposal computed against a root this partial state is not currently
// sitting at is rejected with ErrOutdated.
func (ps *PartialState) Apply(prop *types.TxProposal) (types.Hash, error) {
	if prop.StateRootSeen != ps.root {
		return types.Hash{}, fmt.Errorf("%w: proposal seen root %s, partial state at %s",
			errs.ErrOutdated, prop.StateRootSeen, ps.root)
	}
	ps.LoadProof(prop.ReadProof)

	for _, rk := range prop.ReadSet {
		if _, _, err := ps.Get(rk.Addr, rk.Key); err != nil {
			if errors.Is(err, errs.ErrStorageCorruption) {
				return types.Hash{}, fmt.Errorf("%w: read proof does not authenticate %s", errs.ErrProofInvalid, rk.Addr)
			}
			return types.Hash{}, err
		}
	}

	newRoot, err := applyWriteSet(ps.cache, discardCodeStore{}, ps.root, prop.Writes)
	if err != nil {
		if errors.Is(err, errs.ErrStorageCorruption) {
			return types.Hash{}, fmt.Errorf("%w: read proof insufficient to apply writes", errs.ErrProofInvalid)
		}
		return types.Hash{}, err
	}
	ps.root = newRoot
	return newRoot, nil
}
