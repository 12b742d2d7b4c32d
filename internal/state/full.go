package state

import (
	"fmt"

	"github.com/slimchain/slimchain/internal/trie"
	"github.com/slimchain/slimchain/internal/types"
)

// FullState is the durable full state a storage node keeps: the outer
// account trie plus every account's storage trie, all sharing one
// content-addressed node store (spec §4.3's "Full state (storage nodes)").
type FullState struct {
	nodes trie.Store
	code  CodeStore
	cache *trie.Cache
}

// NewFullState wraps nodes/code with a best-effort trie.Cache in front of
// the node store, matching internal/trie's own cache-over-authoritative
// pattern.
func NewFullState(nodes trie.Store, code CodeStore) *FullState {
	return &FullState{nodes: nodes, code: code, cache: trie.NewCache(nodes, 32<<20, 4096)}
}

func acctKey(a types.Address) []byte {
	h := types.Keccak256(a[:])
	return h[:]
}

func storageKey(k types.Hash) []byte {
	h := types.Keccak256(k[:])
	return h[:]
}

func (fs *FullState) readAccount(outer *trie.Trie, addr types.Address) (types.Account, bool, error) {
	b, found, err := outer.Get(acctKey(addr))
	if err != nil {
		return types.Account{}, false, err
	}
	if !found {
		return types.EmptyAccount(), false, nil
	}
	acct, ok := types.DecodeAccount(b)
	if !ok {
		return types.Account{}, false, fmt.Errorf("state: corrupt account encoding for %s", addr)
	}
	return acct, true, nil
}

// Reader is a read-only view of full state at a fixed root — spec §4.3's
// `state_at(root) -> reader`, and the "four untrusted operations"
// (get_nonce, get_code, get_value, get_read_proof) of spec §4.2's TEE
// boundary are implemented directly against it.
type Reader struct {
	fs    *FullState
	Root  types.Hash
	outer *trie.Trie
}

func (fs *FullState) StateAt(root types.Hash) *Reader {
	return &Reader{fs: fs, Root: root, outer: trie.New(root, fs.cache)}
}

func (r *Reader) Account(addr types.Address) (types.Account, bool, error) {
	return r.fs.readAccount(r.outer, addr)
}

func (r *Reader) GetNonce(addr types.Address) (uint64, error) {
	acct, _, err := r.Account(addr)
	return acct.Nonce, err
}

func (r *Reader) GetCode(addr types.Address) ([]byte, error) {
	acct, found, err := r.Account(addr)
	if err != nil || !found || acct.CodeHash == types.EmptyCodeHash {
		return nil, err
	}
	code, _, err := r.fs.code.Get(acct.CodeHash)
	return code, err
}

func (r *Reader) GetCodeLen(addr types.Address) (int, error) {
	code, err := r.GetCode(addr)
	return len(code), err
}

func (r *Reader) GetValue(addr types.Address, key types.Hash) (types.Hash, error) {
	acct, found, err := r.Account(addr)
	if err != nil || !found {
		return types.Hash{}, err
	}
	storageTrie := trie.New(acct.StorageRoot, r.fs.cache)
	v, found, err := storageTrie.Get(storageKey(key))
	if err != nil || !found {
		return types.Hash{}, err
	}
	return types.BytesToHash(v), nil
}

// GetReadProof builds the partial-trie subset authenticating every key in
// keys from this reader's root — spec §4.2's untrusted `get_read_proof`.
// Account reads (Key == nil) are proven in the outer trie; storage reads
// additionally prove the slot in that account's storage trie. ProofNode is
// a flat, deduplicated bag of node encodings, so both tries' nodes can
// share one proof without ambiguity (node hashes are collision-resistant
// across the whole keyspace).
func (r *Reader) GetReadProof(keys []types.ReadKey) (*types.ProofNode, error) {
	collected := make(map[types.Hash][]byte)
	addrSeen := make(map[types.Address]bool)
	var acctKeys [][]byte
	for _, rk := range keys {
		if !addrSeen[rk.Addr] {
			addrSeen[rk.Addr] = true
			acctKeys = append(acctKeys, acctKey(rk.Addr))
		}
	}
	acctProof, err := r.outer.Prove(acctKeys)
	if err != nil {
		return nil, err
	}
	for _, enc := range acctProof.Nodes {
		collected[types.Keccak256(enc)] = enc
	}
	for _, rk := range keys {
		if rk.Key == nil {
			continue
		}
		acct, found, err := r.Account(rk.Addr)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		storageTrie := trie.New(acct.StorageRoot, r.fs.cache)
		storageProof, err := storageTrie.Prove([][]byte{storageKey(*rk.Key)})
		if err != nil {
			return nil, err
		}
		for _, enc := range storageProof.Nodes {
			collected[types.Keccak256(enc)] = enc
		}
	}
	nodes := make([][]byte, 0, len(collected))
	for _, enc := range collected {
		nodes = append(nodes, enc)
	}
	return &types.ProofNode{Nodes: nodes}, nil
}

// Apply commits a tx's write set against root, updating each touched
// account's nonce/code and storage trie, then the outer trie, returning the
// new state root. Used both by storage nodes (to keep full state current)
// and, at a smaller scale, by the partial trie's own apply on miners.
func (fs *FullState) Apply(root types.Hash, ws types.WriteSet) (types.Hash, error) {
	return applyWriteSet(fs.cache, fs.code, root, ws)
}

// applyWriteSet holds the account/storage-trie update logic shared by full
// state (storage nodes) and partial state (miners) — the same algorithm,
// the only difference being which trie.Cache/CodeStore it runs against.
func applyWriteSet(cache *trie.Cache, code CodeStore, root types.Hash, ws types.WriteSet) (types.Hash, error) {
	outer := trie.New(root, cache)
	readAccount := func(addr types.Address) (types.Account, bool, error) {
		b, found, err := outer.Get(acctKey(addr))
		if err != nil {
			return types.Account{}, false, err
		}
		if !found {
			return types.EmptyAccount(), false, nil
		}
		acct, ok := types.DecodeAccount(b)
		if !ok {
			return types.Account{}, false, fmt.Errorf("state: corrupt account encoding for %s", addr)
		}
		return acct, true, nil
	}

	byAddr := make(map[types.Address][]types.StorageWrite)
	for _, w := range ws.Storage {
		byAddr[w.Addr] = append(byAddr[w.Addr], w)
	}

	touched := make(map[types.Address]types.Account)
	order := make([]types.Address, 0, len(ws.Accounts))
	for _, ad := range ws.Accounts {
		acct, _, err := readAccount(ad.Addr)
		if err != nil {
			return types.Hash{}, err
		}
		acct.Nonce = ad.Nonce
		if ad.CodeChanged {
			ch := types.Keccak256(ad.Code)
			if err := code.Put(ch, ad.Code); err != nil {
				return types.Hash{}, err
			}
			acct.CodeHash = ch
		}
		if _, ok := touched[ad.Addr]; !ok {
			order = append(order, ad.Addr)
		}
		touched[ad.Addr] = acct
	}
	for addr := range byAddr {
		if _, ok := touched[addr]; ok {
			continue
		}
		acct, _, err := readAccount(addr)
		if err != nil {
			return types.Hash{}, err
		}
		touched[addr] = acct
		order = append(order, addr)
	}

	for addr, writes := range byAddr {
		acct := touched[addr]
		storageTrie := trie.New(acct.StorageRoot, cache)
		var newRoot types.Hash
		var err error
		for _, w := range writes {
			newRoot, err = storageTrie.Put(storageKey(w.Key), w.Value[:])
			if err != nil {
				return types.Hash{}, err
			}
		}
		acct.StorageRoot = newRoot
		touched[addr] = acct
	}

	newRoot := root
	for _, addr := range order {
		acct := touched[addr]
		var err error
		newRoot, err = outer.Put(acctKey(addr), acct.Encode())
		if err != nil {
			return types.Hash{}, err
		}
	}
	return newRoot, nil
}
