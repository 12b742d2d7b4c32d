package trie

import (
	"bytes"
	"fmt"

	"github.com/slimchain/slimchain/internal/types"
)

// Prove returns the minimal substructure of t authenticating get(key) for
// every key in keys, plus (by virtue of every branch node's encoding
// already containing all of its children's hashes) everything needed to
// recompute the root after a subsequent write to any of those keys —
// spec §4.1's `prove(root, keys) -> partial_trie`.
func (t *Trie) Prove(keys [][]byte) (*types.ProofNode, error) {
	collected := make(map[types.Hash][]byte)
	for _, key := range keys {
		if err := t.collectProof(collected, t.root, keyToNibbles(key)); err != nil {
			return nil, err
		}
	}
	nodes := make([][]byte, 0, len(collected))
	for _, enc := range collected {
		nodes = append(nodes, enc)
	}
	return &types.ProofNode{Nodes: nodes}, nil
}

func (t *Trie) collectProof(collected map[types.Hash][]byte, n Node, key []byte) error {
	switch n := n.(type) {
	case nil:
		return nil
	case hashNode:
		h := types.Hash(n)
		if h == EmptyRoot {
			return nil
		}
		enc, ok := t.cache.Get(h)
		if !ok {
			return fmt.Errorf("trie: cannot prove, node %s missing from store", h)
		}
		collected[h] = enc
		rn, err := decodeNode(enc)
		if err != nil {
			return err
		}
		return t.collectProof(collected, rn, key)
	case *shortNode:
		if !hasPrefix(key, n.Key) {
			return nil
		}
		return t.collectProof(collected, n.Val, key[len(n.Key):])
	case *fullNode:
		if len(key) == 0 {
			return nil
		}
		return t.collectProof(collected, n.Children[key[0]], key[1:])
	case valueNode:
		return nil
	default:
		return fmt.Errorf("trie: cannot prove through node %T", n)
	}
}

// OpenFromProof builds a Trie rooted at root whose only resolvable nodes
// are those in proof — exactly what a verifier (or, per spec §4.2, a TEE
// enclave checking that state_root authenticates its accumulated reads)
// has available: the claimed root plus the proof bytes, nothing else.
func OpenFromProof(root types.Hash, proof *types.ProofNode) *Trie {
	store := NewMemStore()
	for _, enc := range proof.Nodes {
		store.Put(types.Keccak256(enc), enc)
	}
	cache := NewCache(store, 1<<16, 64)
	return New(root, cache)
}

// Verify reconstructs reads from proof alone and checks both that it
// authenticates root and that the value it yields for key matches value
// (found=false meaning an absence proof) — spec §4.1's
// `verify(root, key, value_or_absence, proof) -> bool`, and the property
// tests of spec §8 ("any modified proof byte -> false").
func Verify(root types.Hash, key []byte, value []byte, found bool, proof *types.ProofNode) bool {
	store := NewMemStore()
	for _, enc := range proof.Nodes {
		h := types.Keccak256(enc)
		store.Put(h, enc)
	}
	cache := NewCache(store, 1<<16, 64)
	pt := New(root, cache)
	got, gotFound, err := pt.Get(key)
	if err != nil {
		return false
	}
	if gotFound != found {
		return false
	}
	return !found || bytes.Equal(got, value)
}
